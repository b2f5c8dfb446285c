package delatrain

import (
	"fmt"
	"log"
	"math"

	"github.com/DelaTrain/scraper/model"
)

// ScrapeStep advances the scrape phase by one unit of work: locating one
// station, fetching one queued train, or scraping one station's timetable,
// in that order of precedence. It returns true once all three queues are
// empty. A collaborator error leaves the failed item queued for retry.
func (s *State) ScrapeStep(schedule ScheduleSource, maps MapSource) (bool, error) {
	switch {
	case len(s.StationsToLocate) > 0:
		return false, s.locateOne(maps)
	case len(s.TrainsToScrape) > 0:
		return false, s.scrapeTrainOne(schedule)
	case len(s.StationsToScrape) > 0:
		return false, s.scrapeStationOne(schedule)
	}
	return true, nil
}

func (s *State) locateOne(maps MapSource) error {
	name := sortedNames(s.StationsToLocate)[0]
	station, err := maps.ResolveStation(name)
	if err != nil {
		return fmt.Errorf("locate %q: %w", name, err)
	}
	delete(s.StationsToLocate, name)
	if station == nil {
		s.BrokenStations[name] = true
		log.Printf("could not locate station %q, held for fixup", name)
		return nil
	}
	s.StationsToScrape[name] = station
	log.Printf("located station %q at %v", name, station.Location)
	return nil
}

func (s *State) scrapeTrainOne(schedule ScheduleSource) error {
	summary := s.TrainsToScrape[len(s.TrainsToScrape)-1]
	if s.Blacklist[summary.Key()] {
		s.TrainsToScrape = s.TrainsToScrape[:len(s.TrainsToScrape)-1]
		log.Printf("skipping blacklisted train %s", summary)
		return nil
	}
	trains, err := schedule.FetchTrain(summary)
	if err != nil {
		return fmt.Errorf("fetch train %s: %w", summary, err)
	}
	s.TrainsToScrape = s.TrainsToScrape[:len(s.TrainsToScrape)-1]
	for _, train := range trains {
		s.queueStopStations(s.absorbTrain(train))
	}
	return nil
}

func (s *State) scrapeStationOne(schedule ScheduleSource) error {
	name := s.nextStationToScrape()
	summaries, err := schedule.ListTrains(name, s.Day)
	if err != nil {
		return fmt.Errorf("list trains at %q: %w", name, err)
	}
	s.Stations[name] = s.StationsToScrape[name]
	delete(s.StationsToScrape, name)

	queued := 0
	for _, summary := range summaries {
		key := summary.Key()
		if s.Blacklist[key] || s.Trains[key] != nil || s.trainQueued(key) {
			continue
		}
		s.TrainsToScrape = append(s.TrainsToScrape, summary)
		queued++
	}
	log.Printf("scraped station %q: %d trains listed, %d new", name, len(summaries), queued)
	return nil
}

// nextStationToScrape grows the scraped set by nearest-neighbor expansion:
// the pending station closest to any already-scraped one. The first pick
// and all ties fall to the lexicographically smallest name.
func (s *State) nextStationToScrape() string {
	pending := sortedNames(s.StationsToScrape)
	if len(s.Stations) == 0 {
		return pending[0]
	}
	best := pending[0]
	bestDist := math.Inf(1)
	for _, name := range pending {
		candidate := s.StationsToScrape[name]
		for _, scraped := range s.Stations {
			if d := candidate.DistanceTo(scraped); d < bestDist {
				best, bestDist = name, d
			}
		}
	}
	return best
}

// queueStopStations queues every stop station not yet known in any
// partition for the locate phase. Callers pass the dedup winner, never a
// train that lost a merge.
func (s *State) queueStopStations(train *model.Train) {
	for _, stop := range train.Stops {
		if !s.stationKnown(stop.StationName) {
			s.StationsToLocate[stop.StationName] = true
		}
	}
}

// absorbTrain adds a fetched train to the known set, resolving duplicates
// first, and returns the train that survives. A direct (category, number)
// match is an immediate duplicate; so is sharing two timed stops with one
// already-known train. A single shared timed stop is coincidence and never
// merges.
func (s *State) absorbTrain(incoming *model.Train) *model.Train {
	if known, ok := s.Trains[incoming.Key()]; ok {
		return s.resolveDuplicate(known, incoming)
	}
	if known := s.findTimedDuplicate(incoming); known != nil {
		return s.resolveDuplicate(known, incoming)
	}
	s.Trains[incoming.Key()] = incoming
	s.indexTimedStops(incoming)
	log.Printf("found train %s with %d stops", incoming, len(incoming.Stops))
	return incoming
}

func (s *State) findTimedDuplicate(incoming *model.Train) *model.Train {
	shared := map[model.TrainKey]int{}
	for _, stop := range incoming.Stops {
		if !stop.Timed() {
			continue
		}
		owner, ok := s.timedStops[stop.Key()]
		if !ok {
			continue
		}
		shared[owner]++
		if shared[owner] >= 2 {
			return s.Trains[owner]
		}
	}
	return nil
}

// resolveDuplicate merges two trains covering one physical run. Both keys
// are blacklisted against requeueing, the winner absorbs the loser's name
// and params, and only the winner stays known and indexed.
func (s *State) resolveDuplicate(known, incoming *model.Train) *model.Train {
	s.Blacklist[known.Key()] = true
	s.Blacklist[incoming.Key()] = true
	s.purgeTimedStops(known.Key())
	delete(s.Trains, known.Key())

	winner, loser := pickWinner(known, incoming)
	if winner.Name == "" {
		winner.Name = loser.Name
	}
	winner.AddParams(loser.Params...)
	s.Trains[winner.Key()] = winner
	s.indexTimedStops(winner)
	log.Printf("trains %s and %s are duplicates, kept %s", known.Key(), incoming.Key(), winner.Key())
	return winner
}

// pickWinner prefers more stops, then the lower train number; at a full tie
// the previously known train is kept.
func pickWinner(known, incoming *model.Train) (winner, loser *model.Train) {
	switch {
	case len(incoming.Stops) > len(known.Stops):
		return incoming, known
	case len(known.Stops) > len(incoming.Stops):
		return known, incoming
	case incoming.Number < known.Number:
		return incoming, known
	}
	return known, incoming
}
