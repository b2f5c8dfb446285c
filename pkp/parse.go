package pkp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DelaTrain/scraper/model"
)

var trainNumberRe = regexp.MustCompile(`^(\D+)(\d+)([^,]*),?$`)

// ParseTrainNumber splits a published train designation like
// "TLK 38170 KARKONOSZE" into category, number and optional name.
func ParseTrainNumber(full string) (category string, number int, name string, err error) {
	m := trainNumberRe.FindStringSubmatch(strings.TrimSpace(full))
	if m == nil {
		return "", 0, "", fmt.Errorf("unparsable train designation %q", full)
	}
	number, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", fmt.Errorf("unparsable train number in %q", full)
	}
	return strings.TrimSpace(m[1]), number, strings.TrimSpace(m[3]), nil
}

var romanValues = map[byte]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

func romanToDecimal(s string) int {
	total := 0
	prev := 0
	for i := 0; i < len(s); i++ {
		v := romanValues[s[i]&^0x20]
		if v > prev {
			total += v - 2*prev
		} else {
			total += v
		}
		prev = v
	}
	return total
}

// parseStationTrack parses a "platform/track" cell like "IV/2". Anything
// not in that shape yields nil.
func parseStationTrack(s string) *model.StationTrack {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return nil
	}
	return &model.StationTrack{Platform: romanToDecimal(parts[0]), Track: parts[1]}
}

// firstStrippedLine returns the first non-empty trimmed line of a cell's
// text content.
func firstStrippedLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// parseStationSearch extracts train summaries from a station search
// result page.
func parseStationSearch(doc *goquery.Document) ([]model.TrainSummary, error) {
	var summaries []model.TrainSummary
	var parseErr error
	doc.Find("tr.zebracol-1, tr.zebracol-2").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		tds := row.Find("td")
		if tds.Length() == 0 {
			return true
		}
		full := firstStrippedLine(tds.First().Text())
		category, number, _, err := ParseTrainNumber(full)
		if err != nil {
			parseErr = err
			return false
		}
		href, _ := tds.First().Find("a").First().Attr("href")
		days := strings.TrimSpace(tds.Last().Text())
		summaries = append(summaries, model.TrainSummary{
			Category: category,
			Number:   number,
			URL:      href,
			Days:     days,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return summaries, nil
}

// disambiguationTarget inspects a search response for the ambiguous-station
// error form. It returns the exact option value for the requested station
// and the form action to resubmit to.
func disambiguationTarget(doc *goquery.Document, station string) (value, action string, ok bool) {
	msg := strings.TrimSpace(doc.Find("td.errormessage").First().Text())
	if msg == "" || !strings.Contains(msg, "jednoznaczne") {
		return "", "", false
	}
	doc.Find("select.error option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if strings.TrimSpace(opt.Text()) == station {
			value, _ = opt.Attr("value")
			return false
		}
		return true
	})
	if value == "" {
		return "", "", false
	}
	action, _ = doc.Find(`form[name="ts_trainsearch"]`).First().Attr("action")
	return value, action, action != ""
}

type subtrainRows struct {
	designation string
	rows        []*goquery.Selection
}

// parseTrainDocument parses a full train page into its subtrains. A row
// carrying a train designation starts a new subtrain; the boundary row is
// shared with the previous one, matching how the service renders the
// renumbering point.
func parseTrainDocument(doc *goquery.Document, extraParams ...string) ([]*model.Train, error) {
	main := doc.Find("#tq_trainroute_content_table_alteAnsicht").First()
	if main.Length() == 0 {
		return nil, nil
	}

	var subs []*subtrainRows
	main.Find("table").First().Find("tr.zebracol-1, tr.zebracol-2").Each(func(_ int, row *goquery.Selection) {
		tds := row.Find("td")
		if tds.Length() == 0 {
			return
		}
		idx := tds.Length() - 1
		if tds.Length() > 5 {
			idx = tds.Length() - 2
		}
		designation := strings.TrimSpace(tds.Eq(idx).Text())
		if designation == "" {
			if len(subs) > 0 {
				subs[len(subs)-1].rows = append(subs[len(subs)-1].rows, row)
			}
			return
		}
		if len(subs) > 0 {
			subs[len(subs)-1].rows = append(subs[len(subs)-1].rows, row)
		}
		subs = append(subs, &subtrainRows{designation: designation, rows: []*goquery.Selection{row}})
	})

	var params []string
	if bold := main.Find("span.bold").First(); bold.Length() > 0 {
		lines := strings.Split(bold.Parent().Text(), "\n")
		first := true
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if first {
				first = false
				continue
			}
			params = append(params, trimmed)
		}
	}

	var trains []*model.Train
	for _, sub := range subs {
		train, err := parseSubtrain(sub)
		if err != nil {
			return nil, err
		}
		train.AddParams(params...)
		train.AddParams(extraParams...)
		trains = append(trains, train)
	}
	return trains, nil
}

func parseSubtrain(sub *subtrainRows) (*model.Train, error) {
	category, number, name, err := ParseTrainNumber(sub.designation)
	if err != nil {
		return nil, err
	}
	train := &model.Train{Category: category, Number: number, Name: name}
	for _, row := range sub.rows {
		tds := row.Find("td")
		stationName := strings.TrimSpace(tds.Eq(1).Find("a").First().Text())
		if stationName == "" {
			stationName = strings.TrimSpace(tds.Eq(1).Text())
		}
		arrival, err := model.ParseTimeOfDay(strings.TrimSpace(tds.Eq(2).Text()))
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", stationName, err)
		}
		depIdx := 3
		if tds.Length() > 6 {
			depIdx = 4
		}
		departure, err := model.ParseTimeOfDay(strings.TrimSpace(tds.Eq(depIdx).Text()))
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", stationName, err)
		}
		var track *model.StationTrack
		if tds.Length() > 5 {
			track = parseStationTrack(tds.Last().Text())
		}
		train.Stops = append(train.Stops, model.TrainStop{
			StationName: stationName,
			Arrival:     arrival,
			Departure:   departure,
			Track:       track,
		})
	}
	return train, nil
}
