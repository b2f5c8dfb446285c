package delatrain

import (
	"sort"
	"time"

	"github.com/DelaTrain/scraper/model"
	"github.com/DelaTrain/scraper/railnet"
)

// State is the orchestrator's full mutable state: every queue, set and
// derived collection of the scrape, fixup and pathfinding phases. A station
// name occupies at most one of the to-locate, to-scrape, scraped and broken
// partitions at any time.
type State struct {
	// Day is the schedule day every timetable listing of this crawl asks
	// for. Pinned once at reset so a multi-day resumable run, and the
	// timed-stop fingerprints derived from it, describe one consistent day.
	Day time.Time

	StationsToLocate map[string]bool
	StationsToScrape map[string]*model.Station
	BrokenStations   map[string]bool
	Stations         map[string]*model.Station

	TrainsToScrape []model.TrainSummary // consumed as a stack
	Blacklist      map[model.TrainKey]bool
	Trains         map[model.TrainKey]*model.Train

	RailsToFind     []string
	RailsToSimplify []model.StationPair
	TrainsToAnalyze []model.TrainKey
	Rails           map[model.StationPair]*model.Rail
	RoutingRules    map[model.StationPair]*model.RoutingRule
	UsedRails       map[model.StationPair]bool
	RouteProblems   map[model.StationPair]string

	// timedStops maps every timed stop of every known train to its owning
	// train, the fingerprint index for duplicate detection. Derived; rebuilt
	// on checkpoint load.
	timedStops map[model.StopKey]model.TrainKey

	// railGraph is the memoized station-connectivity graph; invalidated
	// whenever the rail set or geometry changes.
	railGraph *railnet.StationGraph
}

func NewState() *State {
	return &State{
		StationsToLocate: map[string]bool{},
		StationsToScrape: map[string]*model.Station{},
		BrokenStations:   map[string]bool{},
		Stations:         map[string]*model.Station{},
		Blacklist:        map[model.TrainKey]bool{},
		Trains:           map[model.TrainKey]*model.Train{},
		Rails:            map[model.StationPair]*model.Rail{},
		RoutingRules:     map[model.StationPair]*model.RoutingRule{},
		UsedRails:        map[model.StationPair]bool{},
		RouteProblems:    map[model.StationPair]string{},
		timedStops:       map[model.StopKey]model.TrainKey{},
	}
}

// SeedStations queues starting station names for the locate phase.
func (s *State) SeedStations(names ...string) {
	for _, name := range names {
		if !s.stationKnown(name) {
			s.StationsToLocate[name] = true
		}
	}
}

// ScrapeDone reports whether the scrape phase has nothing left to do.
func (s *State) ScrapeDone() bool {
	return len(s.StationsToLocate) == 0 && len(s.TrainsToScrape) == 0 && len(s.StationsToScrape) == 0
}

// stationKnown reports whether the name occupies any of the four station
// partitions.
func (s *State) stationKnown(name string) bool {
	return s.Stations[name] != nil || s.StationsToScrape[name] != nil ||
		s.StationsToLocate[name] || s.BrokenStations[name]
}

func (s *State) trainQueued(key model.TrainKey) bool {
	for _, summary := range s.TrainsToScrape {
		if summary.Key() == key {
			return true
		}
	}
	return false
}

func (s *State) indexTimedStops(train *model.Train) {
	key := train.Key()
	for _, stop := range train.Stops {
		if stop.Timed() {
			s.timedStops[stop.Key()] = key
		}
	}
}

func (s *State) purgeTimedStops(key model.TrainKey) {
	for stop, owner := range s.timedStops {
		if owner == key {
			delete(s.timedStops, stop)
		}
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedTrainKeys[V any](m map[model.TrainKey]V) []model.TrainKey {
	keys := make([]model.TrainKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Number < keys[j].Number
	})
	return keys
}

func sortedPairs[V any](m map[model.StationPair]V) []model.StationPair {
	pairs := make([]model.StationPair, 0, len(m))
	for pair := range m {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Start != pairs[j].Start {
			return pairs[i].Start < pairs[j].Start
		}
		return pairs[i].End < pairs[j].End
	})
	return pairs
}
