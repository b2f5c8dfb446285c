package model

import (
	"hash/fnv"
	"math"

	"github.com/DelaTrain/scraper/geo"
)

// Station is a named point of the rail network. Identity is the name alone;
// location and importance are mutable annotations.
type Station struct {
	Name             string        `json:"name"`
	Location         geo.Position  `json:"location"`
	Importance       int           `json:"importance"`
	AccurateLocation *geo.Position `json:"accurate_location,omitempty"`
}

// NewStation returns a station at the given location.
func NewStation(name string, location geo.Position) *Station {
	return &Station{Name: name, Location: location}
}

// BestLocation prefers the rail-finder-refined location over the gazetteer one.
func (s *Station) BestLocation() geo.Position {
	if s.AccurateLocation != nil {
		return *s.AccurateLocation
	}
	return s.Location
}

// AugmentedNodeID derives the virtual graph node id for this station.
// Always negative so it cannot collide with real map node ids, and
// deterministic from the station name.
func (s *Station) AugmentedNodeID() int64 {
	h := fnv.New64a()
	h.Write([]byte(s.Name))
	v := int64(h.Sum64() & math.MaxInt64)
	if v == 0 {
		v = 1
	}
	return -v
}

// DistanceTo returns the distance between the stations' best locations in meters.
func (s *Station) DistanceTo(other *Station) float64 {
	return s.BestLocation().DistanceTo(other.BestLocation())
}
