package delatrain

import (
	"time"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
	"github.com/DelaTrain/scraper/railnet"
)

// ScheduleSource lists and fetches trains from the schedule service.
type ScheduleSource interface {
	// ListTrains returns the summaries of every train calling at the
	// station on the given day.
	ListTrains(station string, day time.Time) ([]model.TrainSummary, error)
	// FetchTrain fetches a summary's full itinerary. One summary may
	// resolve to several co-numbered subtrains.
	FetchTrain(summary model.TrainSummary) ([]*model.Train, error)
}

// MapSource resolves station locations and supplies raw track geometry.
type MapSource interface {
	// ResolveStation geocodes a station name. An unknown name yields a
	// nil station and no error.
	ResolveStation(name string) (*model.Station, error)
	// TrackGraph returns the track-geometry graph within radiusM of center.
	TrackGraph(center geo.Position, radiusM float64) (*railnet.TrackGraph, error)
}
