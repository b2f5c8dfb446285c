package delatrain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
)

// ExportStation is a station as exported: the best-known location and an
// importance score derived from the number of trains calling there.
type ExportStation struct {
	Name       string       `json:"name"`
	Location   geo.Position `json:"location"`
	Importance int          `json:"importance"`
}

// ExportDocument is the read-only snapshot handed to downstream consumers.
type ExportDocument struct {
	Stations     []ExportStation      `json:"stations"`
	Trains       []*model.Train       `json:"trains"`
	Rails        []*model.Rail        `json:"rails"`
	RoutingRules []*model.RoutingRule `json:"routing_rules"`
}

// Export assembles the export snapshot: every scraped station at its
// best-known location, all trains, rails and routing rules, each list in
// deterministic order.
func (s *State) Export() *ExportDocument {
	doc := &ExportDocument{}

	calls := map[string]int{}
	for _, train := range s.Trains {
		for _, stop := range train.Stops {
			calls[stop.StationName]++
		}
	}
	for _, name := range sortedNames(s.Stations) {
		station := s.Stations[name]
		doc.Stations = append(doc.Stations, ExportStation{
			Name:       name,
			Location:   station.BestLocation(),
			Importance: calls[name],
		})
	}
	for _, key := range sortedTrainKeys(s.Trains) {
		doc.Trains = append(doc.Trains, s.Trains[key])
	}
	for _, pair := range sortedPairs(s.Rails) {
		doc.Rails = append(doc.Rails, s.Rails[pair])
	}
	for _, pair := range sortedPairs(s.RoutingRules) {
		doc.RoutingRules = append(doc.RoutingRules, s.RoutingRules[pair])
	}
	return doc
}

// WriteExport serializes the export snapshot to path as pretty-printed JSON.
func WriteExport(s *State, path string) error {
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
