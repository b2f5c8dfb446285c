package model

import (
	"github.com/DelaTrain/scraper/geo"
)

// StationPair is the identity of an undirected station-to-station relation
// (Rail, RoutingRule). Canonical form keeps the lexicographically smaller
// name first.
type StationPair struct {
	Start string
	End   string
}

// NewStationPair returns the canonical pair for two station names.
func NewStationPair(a, b string) StationPair {
	if b < a {
		a, b = b, a
	}
	return StationPair{Start: a, End: b}
}

// Rail is the physical track centerline between two stations: an ordered
// polyline with one max-speed value per segment (in km/h). Identity depends
// only on the station pair, never on geometry.
type Rail struct {
	Start    string         `json:"start_station"`
	End      string         `json:"end_station"`
	Points   []geo.Position `json:"points"`
	MaxSpeed []float64      `json:"max_speed"`
}

// NewRail builds a canonical rail: endpoints given in the opposite order are
// swapped and both sequences reversed.
func NewRail(start, end string, points []geo.Position, maxSpeed []float64) *Rail {
	if end < start {
		start, end = end, start
		reverse(points)
		reverse(maxSpeed)
	}
	return &Rail{Start: start, End: end, Points: points, MaxSpeed: maxSpeed}
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func (r *Rail) Key() StationPair {
	return StationPair{Start: r.Start, End: r.End}
}

// Length is the cumulative great-circle distance along the polyline in meters.
func (r *Rail) Length() float64 {
	total := 0.0
	for i := 0; i+1 < len(r.Points); i++ {
		total += r.Points[i].DistanceTo(r.Points[i+1])
	}
	return total
}

// ExtendEnds prepends and appends the stations' own locations as explicit
// endpoints at defaultSpeed, so the rail terminates exactly at the stations
// rather than at the nearest track node.
func (r *Rail) ExtendEnds(startLoc, endLoc geo.Position, defaultSpeed float64) {
	r.Points = append([]geo.Position{startLoc}, r.Points...)
	r.Points = append(r.Points, endLoc)
	r.MaxSpeed = append([]float64{defaultSpeed}, r.MaxSpeed...)
	r.MaxSpeed = append(r.MaxSpeed, defaultSpeed)
}

// RoutingRule records that travel between two stations not directly joined
// by a known rail passes through the listed intermediate stations.
type RoutingRule struct {
	Start string   `json:"start_station"`
	End   string   `json:"end_station"`
	Via   []string `json:"via"`
}

// NewRoutingRule builds a canonical rule, reversing the via list if the
// endpoints arrive in the opposite order.
func NewRoutingRule(start, end string, via []string) *RoutingRule {
	if end < start {
		start, end = end, start
		reverse(via)
	}
	return &RoutingRule{Start: start, End: end, Via: via}
}

func (r *RoutingRule) Key() StationPair {
	return StationPair{Start: r.Start, End: r.End}
}
