package pkp

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/DelaTrain/scraper/model"
)

const sessionCookie = "HAFAS-PROD-OLD-03"

// Client talks to the rozklad-pkp train search service.
type Client struct {
	httpClient *http.Client
	searchURL  string
	userAgent  string
}

func NewClient(searchURL, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		searchURL:  searchURL,
		userAgent:  userAgent,
	}
}

func searchPayload(station string, day time.Time, disambiguated bool) url.Values {
	name := station
	if !disambiguated {
		name = strings.ReplaceAll(station, " ", "+")
	}
	payload := url.Values{
		"trainname":   {""},
		"stationname": {name},
		"selectDate":  {"oneday"},
		"date":        {day.Format("02.01.06")},
		"time":        {""},
	}
	if disambiguated {
		payload["start"] = []string{"yes", "Szukaj"}
	} else {
		payload["start"] = []string{"Szukaj"}
	}
	return payload
}

func (c *Client) do(req *http.Request) (*goquery.Document, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.AddCookie(&http.Cookie{Name: "HAFAS-PROD-OLD-CL-SSL", Value: sessionCookie})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", req.URL, resp.Status)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (c *Client) postForm(rawURL string, form url.Values) (*goquery.Document, error) {
	req, err := http.NewRequest(http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// ListTrains fetches the timetable listing for a station on the given day.
// An ambiguous station name triggers one disambiguation round trip using
// the exact option the service offers.
func (c *Client) ListTrains(station string, day time.Time) ([]model.TrainSummary, error) {
	doc, err := c.postForm(c.searchURL, searchPayload(station, day, false))
	if err != nil {
		return nil, fmt.Errorf("station search %q: %w", station, err)
	}
	if value, action, ok := disambiguationTarget(doc, station); ok {
		doc, err = c.postForm(action, searchPayload(value, day, true))
		if err != nil {
			return nil, fmt.Errorf("station search %q (disambiguated): %w", station, err)
		}
	}
	summaries, err := parseStationSearch(doc)
	if err != nil {
		return nil, fmt.Errorf("station search %q: %w", station, err)
	}
	return summaries, nil
}

// FetchTrain fetches a summary's full itinerary. The result may contain
// several co-numbered subtrains; the summary's running-days note is merged
// into each subtrain's params.
func (c *Client) FetchTrain(summary model.TrainSummary) ([]*model.Train, error) {
	req, err := http.NewRequest(http.MethodGet, summary.URL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", summary, err)
	}
	trains, err := parseTrainDocument(doc, summary.Days)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", summary, err)
	}
	return trains, nil
}
