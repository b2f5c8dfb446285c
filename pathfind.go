package delatrain

import (
	"fmt"
	"log"

	"github.com/DelaTrain/scraper/config"
	"github.com/DelaTrain/scraper/model"
	"github.com/DelaTrain/scraper/railnet"
)

// ResetPathfinding clears all derived rails and rules, drops every refined
// station location, and re-seeds the three pathfinding sub-queues in
// deterministic order: stations sorted by name, trains sorted by key.
func (s *State) ResetPathfinding() {
	s.Rails = map[model.StationPair]*model.Rail{}
	s.RoutingRules = map[model.StationPair]*model.RoutingRule{}
	s.UsedRails = map[model.StationPair]bool{}
	s.RouteProblems = map[model.StationPair]string{}
	s.RailsToSimplify = nil
	for _, station := range s.Stations {
		station.AccurateLocation = nil
	}
	s.RailsToFind = sortedNames(s.Stations)
	s.TrainsToAnalyze = sortedTrainKeys(s.Trains)
	s.railGraph = nil
}

// PathDone reports whether all three pathfinding sub-queues are empty.
func (s *State) PathDone() bool {
	return len(s.RailsToFind) == 0 && len(s.RailsToSimplify) == 0 && len(s.TrainsToAnalyze) == 0
}

// PathStep advances the pathfinding phase by one unit of work, consuming
// the find, simplify and analyze sub-queues in that order.
func (s *State) PathStep(maps MapSource, cfg config.Pathfinding) (bool, error) {
	switch {
	case len(s.RailsToFind) > 0:
		return false, s.findRailsOne(maps, cfg)
	case len(s.RailsToSimplify) > 0:
		s.simplifyOne(cfg)
		return false, nil
	case len(s.TrainsToAnalyze) > 0:
		s.analyzeOne(cfg)
		return false, nil
	}
	return true, nil
}

// findRailsOne runs the rail finder for one station against every other
// known station within the search radius.
func (s *State) findRailsOne(maps MapSource, cfg config.Pathfinding) error {
	name := s.RailsToFind[0]
	s.RailsToFind = s.RailsToFind[1:]
	station := s.Stations[name]
	if station == nil {
		return nil
	}

	cutoff := float64(cfg.RadiusKM) * 1000
	var candidates []*model.Station
	maxDist := 0.0
	for _, other := range sortedNames(s.Stations) {
		if other == name {
			continue
		}
		candidate := s.Stations[other]
		if d := station.DistanceTo(candidate); d <= cutoff {
			candidates = append(candidates, candidate)
			if d > maxDist {
				maxDist = d
			}
		}
	}
	if len(candidates) == 0 {
		log.Printf("no stations within %.0f m of %q, no rails to find", cutoff, name)
		return nil
	}

	graph, err := maps.TrackGraph(station.BestLocation(), maxDist+cfg.HitboxRadiusM)
	if err != nil {
		s.RailsToFind = append([]string{name}, s.RailsToFind...)
		return fmt.Errorf("track graph around %q: %w", name, err)
	}

	finder := &railnet.Finder{
		HitboxRadius:          cfg.HitboxRadiusM,
		AugmentMultiplier:     cfg.AugmentMultiplier,
		MaxTurnDegrees:        cfg.MaxTurnDegrees,
		ForeignCutoffMultiple: cfg.ForeignCutoffMultiple,
		SamplingInterval:      cfg.SamplingIntervalM,
		SearchCutoff:          cutoff,
		DefaultSpeed:          cfg.DefaultSpeed,
	}
	rails, refined := finder.Find(station, candidates, graph)
	if len(rails) > 0 {
		loc := refined
		station.AccurateLocation = &loc
	}

	fresh := 0
	for _, rail := range rails {
		key := rail.Key()
		if _, ok := s.Rails[key]; ok {
			continue
		}
		s.Rails[key] = rail
		s.RailsToSimplify = append(s.RailsToSimplify, key)
		fresh++
	}
	s.railGraph = nil
	log.Printf("found %d rails from %q (%d new) among %d candidates",
		len(rails), name, fresh, len(candidates))
	return nil
}

// simplifyOne extends one rail's ends to its stations' best locations and
// resamples it at the configured interval.
func (s *State) simplifyOne(cfg config.Pathfinding) {
	pair := s.RailsToSimplify[0]
	s.RailsToSimplify = s.RailsToSimplify[1:]
	rail := s.Rails[pair]
	if rail == nil {
		return
	}

	start, end := s.Stations[pair.Start], s.Stations[pair.End]
	if start != nil && end != nil {
		rail.ExtendEnds(start.BestLocation(), end.BestLocation(), cfg.DefaultSpeed)
	}
	before := len(rail.Points)
	railnet.Simplify(rail, float64(cfg.IntervalM))
	s.railGraph = nil
	log.Printf("simplified rail %s - %s: %d points down to %d", pair.Start, pair.End, before, len(rail.Points))
}

// analyzeOne derives routing rules for one train over the current rail set.
func (s *State) analyzeOne(cfg config.Pathfinding) {
	key := s.TrainsToAnalyze[0]
	s.TrainsToAnalyze = s.TrainsToAnalyze[1:]
	train := s.Trains[key]
	if train == nil {
		return
	}

	rules, used, errs := s.stationGraph().AnalyzeTrain(train, cfg.MaxDetourMultiplier)
	for _, rule := range rules {
		s.RoutingRules[rule.Key()] = rule
	}
	for _, pair := range used {
		s.UsedRails[pair] = true
	}
	for _, e := range errs {
		s.RouteProblems[model.NewStationPair(e.From, e.To)] = e.Reason
		log.Printf("route analysis of %s: %v", key, e)
	}
	log.Printf("analyzed train %s: %d rules, %d problems", key, len(rules), len(errs))
}

// stationGraph returns the memoized station-connectivity graph over all
// known rails.
func (s *State) stationGraph() *railnet.StationGraph {
	if s.railGraph != nil {
		return s.railGraph
	}
	g := railnet.NewStationGraph()
	for _, pair := range sortedPairs(s.Rails) {
		rail := s.Rails[pair]
		startPos, endPos := rail.Points[0], rail.Points[len(rail.Points)-1]
		if station := s.Stations[rail.Start]; station != nil {
			startPos = station.BestLocation()
		}
		if station := s.Stations[rail.End]; station != nil {
			endPos = station.BestLocation()
		}
		g.AddRail(rail, startPos, endPos)
	}
	s.railGraph = g
	return g
}
