package model

import (
	"fmt"
	"sort"
)

// TrainKey is the identity of a train: published category and number.
type TrainKey struct {
	Category string
	Number   int
}

func (k TrainKey) String() string {
	return fmt.Sprintf("%s %d", k.Category, k.Number)
}

// TrainSummary is a schedule listing reference to a not-yet-fetched train.
type TrainSummary struct {
	Category string `json:"category"`
	Number   int    `json:"number"`
	URL      string `json:"url"`
	Days     string `json:"days"`
}

func (s TrainSummary) Key() TrainKey {
	return TrainKey{Category: s.Category, Number: s.Number}
}

func (s TrainSummary) String() string {
	return s.Key().String()
}

// StationTrack is a parsed platform/track designation.
type StationTrack struct {
	Platform int    `json:"platform"`
	Track    string `json:"track"`
}

// TrainStop is one stop in a train's itinerary. A pass-through station with
// no published stop carries NoTime in both timestamps.
type TrainStop struct {
	StationName string        `json:"station_name"`
	Arrival     TimeOfDay     `json:"arrival_time"`
	Departure   TimeOfDay     `json:"departure_time"`
	Track       *StationTrack `json:"track,omitempty"`
}

// Timed reports whether the stop carries at least one real timestamp.
// Timed stops are the fingerprint used for duplicate-train detection.
func (s TrainStop) Timed() bool {
	return s.Arrival.IsSet() || s.Departure.IsSet()
}

// StopKey identifies a timed stop for the duplicate index. The track
// designation is deliberately excluded: sources disagree on it for the
// same physical stop.
type StopKey struct {
	StationName string
	Arrival     TimeOfDay
	Departure   TimeOfDay
}

func (s TrainStop) Key() StopKey {
	return StopKey{StationName: s.StationName, Arrival: s.Arrival, Departure: s.Departure}
}

// Train is a fully fetched physical service. Identity is (category, number);
// name, stops and params are annotations accumulated across merges.
type Train struct {
	Category string      `json:"category"`
	Number   int         `json:"number"`
	Name     string      `json:"name,omitempty"`
	Stops    []TrainStop `json:"stops"`
	Params   []string    `json:"params"`
}

func (t *Train) Key() TrainKey {
	return TrainKey{Category: t.Category, Number: t.Number}
}

func (t *Train) String() string {
	if t.Name != "" {
		return fmt.Sprintf("%s %d %q", t.Category, t.Number, t.Name)
	}
	return t.Key().String()
}

// HasStopAt reports whether the itinerary calls at the named station.
func (t *Train) HasStopAt(station string) bool {
	for _, s := range t.Stops {
		if s.StationName == station {
			return true
		}
	}
	return false
}

// AddParams unions the given schedule qualifiers into the train's param set,
// keeping it sorted and free of duplicates.
func (t *Train) AddParams(params ...string) {
	seen := make(map[string]struct{}, len(t.Params)+len(params))
	for _, p := range t.Params {
		seen[p] = struct{}{}
	}
	for _, p := range params {
		if p == "" {
			continue
		}
		seen[p] = struct{}{}
	}
	merged := make([]string, 0, len(seen))
	for p := range seen {
		merged = append(merged, p)
	}
	sort.Strings(merged)
	t.Params = merged
}
