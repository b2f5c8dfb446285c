package delatrain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DelaTrain/scraper/model"
)

// snapshot is the serialized form of State. Maps keyed by struct keys are
// flattened to sorted slices so the checkpoint is valid JSON and diffs
// stay stable between runs.
type snapshot struct {
	Day time.Time `json:"day"`

	StationsToLocate []string             `json:"stations_to_locate"`
	StationsToScrape []*model.Station     `json:"stations_to_scrape"`
	BrokenStations   []string             `json:"broken_stations"`
	Stations         []*model.Station     `json:"stations"`
	TrainsToScrape   []model.TrainSummary `json:"trains_to_scrape"`
	Blacklist        []model.TrainKey     `json:"blacklist"`
	Trains           []*model.Train       `json:"trains"`

	RailsToFind     []string             `json:"rails_to_find"`
	RailsToSimplify []model.StationPair  `json:"rails_to_simplify"`
	TrainsToAnalyze []model.TrainKey     `json:"trains_to_analyze"`
	Rails           []*model.Rail        `json:"rails"`
	RoutingRules    []*model.RoutingRule `json:"routing_rules"`
	UsedRails       []model.StationPair  `json:"used_rails"`
	RouteProblems   []routeProblemRecord `json:"route_problems"`
}

type routeProblemRecord struct {
	Rail   model.StationPair `json:"rail"`
	Reason string            `json:"reason"`
}

func (s *State) snapshot() *snapshot {
	snap := &snapshot{
		Day:              s.Day,
		StationsToLocate: sortedNames(s.StationsToLocate),
		BrokenStations:   sortedNames(s.BrokenStations),
		TrainsToScrape:   s.TrainsToScrape,
		Blacklist:        sortedTrainKeys(s.Blacklist),
		RailsToFind:      s.RailsToFind,
		RailsToSimplify:  s.RailsToSimplify,
		TrainsToAnalyze:  s.TrainsToAnalyze,
		UsedRails:        sortedPairs(s.UsedRails),
	}
	for _, name := range sortedNames(s.StationsToScrape) {
		snap.StationsToScrape = append(snap.StationsToScrape, s.StationsToScrape[name])
	}
	for _, name := range sortedNames(s.Stations) {
		snap.Stations = append(snap.Stations, s.Stations[name])
	}
	for _, key := range sortedTrainKeys(s.Trains) {
		snap.Trains = append(snap.Trains, s.Trains[key])
	}
	for _, pair := range sortedPairs(s.Rails) {
		snap.Rails = append(snap.Rails, s.Rails[pair])
	}
	for _, pair := range sortedPairs(s.RoutingRules) {
		snap.RoutingRules = append(snap.RoutingRules, s.RoutingRules[pair])
	}
	for _, pair := range sortedPairs(s.RouteProblems) {
		snap.RouteProblems = append(snap.RouteProblems, routeProblemRecord{Rail: pair, Reason: s.RouteProblems[pair]})
	}
	return snap
}

func (snap *snapshot) restore() *State {
	s := NewState()
	s.Day = snap.Day
	for _, name := range snap.StationsToLocate {
		s.StationsToLocate[name] = true
	}
	for _, station := range snap.StationsToScrape {
		s.StationsToScrape[station.Name] = station
	}
	for _, name := range snap.BrokenStations {
		s.BrokenStations[name] = true
	}
	for _, station := range snap.Stations {
		s.Stations[station.Name] = station
	}
	s.TrainsToScrape = snap.TrainsToScrape
	for _, key := range snap.Blacklist {
		s.Blacklist[key] = true
	}
	for _, train := range snap.Trains {
		s.Trains[train.Key()] = train
		s.indexTimedStops(train)
	}
	s.RailsToFind = snap.RailsToFind
	s.RailsToSimplify = snap.RailsToSimplify
	s.TrainsToAnalyze = snap.TrainsToAnalyze
	for _, rail := range snap.Rails {
		s.Rails[rail.Key()] = rail
	}
	for _, rule := range snap.RoutingRules {
		s.RoutingRules[rule.Key()] = rule
	}
	for _, pair := range snap.UsedRails {
		s.UsedRails[pair] = true
	}
	for _, problem := range snap.RouteProblems {
		s.RouteProblems[problem.Rail] = problem.Reason
	}
	return s
}

// SaveCheckpoint writes the state snapshot atomically: the JSON goes to a
// temp file first, the previous checkpoint rotates to backupPath, then the
// temp file takes its place.
func SaveCheckpoint(s *State, path, backupPath string) error {
	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if backupPath != "" {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, backupPath); err != nil {
				return err
			}
		}
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint reads a snapshot and rebuilds the derived indexes.
func LoadCheckpoint(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	return snap.restore(), nil
}
