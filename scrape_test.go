package delatrain

import (
	"testing"
	"time"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
	"github.com/DelaTrain/scraper/railnet"
)

type fakeSchedule struct {
	listings   map[string][]model.TrainSummary
	trains     map[string][]*model.Train
	listedDays []time.Time
}

func (f *fakeSchedule) ListTrains(station string, day time.Time) ([]model.TrainSummary, error) {
	f.listedDays = append(f.listedDays, day)
	return f.listings[station], nil
}

func (f *fakeSchedule) FetchTrain(summary model.TrainSummary) ([]*model.Train, error) {
	return f.trains[summary.URL], nil
}

type fakeMap struct {
	stations map[string]geo.Position
	graph    *railnet.TrackGraph
}

func (f *fakeMap) ResolveStation(name string) (*model.Station, error) {
	pos, ok := f.stations[name]
	if !ok {
		return nil, nil
	}
	return model.NewStation(name, pos), nil
}

func (f *fakeMap) TrackGraph(geo.Position, float64) (*railnet.TrackGraph, error) {
	return f.graph, nil
}

func at(s string) model.TimeOfDay {
	t, err := model.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func timedStop(station, arrival, departure string) model.TrainStop {
	return model.TrainStop{StationName: station, Arrival: at(arrival), Departure: at(departure)}
}

func mkTrain(category string, number int, stops ...model.TrainStop) *model.Train {
	return &model.Train{Category: category, Number: number, Stops: stops}
}

func TestScrapeEndToEnd(t *testing.T) {
	state := NewState()
	state.SeedStations("Alpha")

	// a train already scraped from a neighboring station
	known := mkTrain("IC", 300,
		timedStop("Beta", "", "10:00"),
		timedStop("Gamma", "10:40", "10:42"),
		timedStop("Delta", "11:20", ""))
	state.absorbTrain(known)
	state.Stations["Beta"] = model.NewStation("Beta", geo.Position{Latitude: 50.1, Longitude: 20})
	state.Stations["Gamma"] = model.NewStation("Gamma", geo.Position{Latitude: 50.2, Longitude: 20})
	state.Stations["Delta"] = model.NewStation("Delta", geo.Position{Latitude: 50.3, Longitude: 20})

	schedule := &fakeSchedule{
		listings: map[string][]model.TrainSummary{
			"Alpha": {
				{Category: "IC", Number: 100, URL: "u100"},
				{Category: "IC", Number: 200, URL: "u200"},
			},
		},
		trains: map[string][]*model.Train{
			"u100": {mkTrain("IC", 100, timedStop("Alpha", "", "08:00"), timedStop("Epsilon", "08:30", ""))},
			// shares two timed stops with IC 300 under a different number
			"u200": {mkTrain("IC", 200, timedStop("Gamma", "10:40", "10:42"), timedStop("Delta", "11:20", ""))},
		},
	}
	maps := &fakeMap{stations: map[string]geo.Position{"Alpha": {Latitude: 50, Longitude: 20}}}

	// locate Alpha
	if done, err := state.ScrapeStep(schedule, maps); done || err != nil {
		t.Fatalf("locate step: done=%v err=%v", done, err)
	}
	if state.StationsToScrape["Alpha"] == nil {
		t.Fatal("Alpha not moved to the scrape queue")
	}

	// scrape Alpha's timetable, queueing both summaries
	if _, err := state.ScrapeStep(schedule, maps); err != nil {
		t.Fatalf("station step: %v", err)
	}
	if state.Stations["Alpha"] == nil {
		t.Fatal("Alpha not moved to scraped")
	}
	if len(state.TrainsToScrape) != 2 {
		t.Fatalf("queued %d summaries, want 2", len(state.TrainsToScrape))
	}

	// pop IC 200, which duplicates IC 300 via two shared timed stops
	if _, err := state.ScrapeStep(schedule, maps); err != nil {
		t.Fatalf("train step: %v", err)
	}
	if _, ok := state.Trains[model.TrainKey{Category: "IC", Number: 200}]; ok {
		t.Error("losing duplicate IC 200 kept as a known train")
	}
	winner := state.Trains[model.TrainKey{Category: "IC", Number: 300}]
	if winner == nil {
		t.Fatal("winner IC 300 missing after duplicate resolution")
	}
	if !state.Blacklist[model.TrainKey{Category: "IC", Number: 200}] {
		t.Error("loser's number missing from the blacklist")
	}
	if !state.Blacklist[model.TrainKey{Category: "IC", Number: 300}] {
		t.Error("winner's number missing from the blacklist")
	}

	// pop IC 100, a genuinely new train with an unknown stop
	if _, err := state.ScrapeStep(schedule, maps); err != nil {
		t.Fatalf("train step: %v", err)
	}
	if state.Trains[model.TrainKey{Category: "IC", Number: 100}] == nil {
		t.Fatal("IC 100 not recorded")
	}
	if !state.StationsToLocate["Epsilon"] {
		t.Error("new stop station Epsilon not queued for locating")
	}
	if state.StationsToLocate["Alpha"] {
		t.Error("already-scraped Alpha re-queued for locating")
	}
}

func TestScrapeListsForPinnedDay(t *testing.T) {
	state := NewState()
	state.Day = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	state.StationsToScrape["Alpha"] = model.NewStation("Alpha", geo.Position{Latitude: 50, Longitude: 20})

	schedule := &fakeSchedule{}
	if err := state.scrapeStationOne(schedule); err != nil {
		t.Fatalf("scrapeStationOne: %v", err)
	}
	if len(schedule.listedDays) != 1 || !schedule.listedDays[0].Equal(state.Day) {
		t.Errorf("listed for %v, want the pinned day %v", schedule.listedDays, state.Day)
	}
}

func TestOnlyWinnerStopsAreQueued(t *testing.T) {
	state := NewState()
	// the known train has one more stop, so it wins any merge
	state.absorbTrain(mkTrain("IC", 100,
		timedStop("A", "", "09:00"),
		timedStop("X", "09:30", "09:31"),
		timedStop("Y", "10:00", "10:01"),
		timedStop("B", "10:30", "")))
	state.TrainsToScrape = []model.TrainSummary{{Category: "IC", Number: 200, URL: "u200"}}

	schedule := &fakeSchedule{trains: map[string][]*model.Train{
		"u200": {mkTrain("IC", 200,
			timedStop("X", "09:30", "09:31"),
			timedStop("Y", "10:00", "10:01"),
			timedStop("Z", "10:40", ""))},
	}}
	if err := state.scrapeTrainOne(schedule); err != nil {
		t.Fatalf("scrapeTrainOne: %v", err)
	}

	if state.StationsToLocate["Z"] {
		t.Error("stop Z of the losing duplicate queued for locating")
	}
	for _, name := range []string{"A", "X", "Y", "B"} {
		if !state.StationsToLocate[name] {
			t.Errorf("winner's stop %s not queued for locating", name)
		}
	}
}

func TestLocateFailureMarksBroken(t *testing.T) {
	state := NewState()
	state.SeedStations("Nowhere")

	if _, err := state.ScrapeStep(&fakeSchedule{}, &fakeMap{}); err != nil {
		t.Fatalf("locate step: %v", err)
	}
	if !state.BrokenStations["Nowhere"] {
		t.Error("unresolvable station not marked broken")
	}
	if state.StationsToLocate["Nowhere"] {
		t.Error("unresolvable station left in the locate queue")
	}
}

func TestDuplicateResolutionCommutative(t *testing.T) {
	a := func() *model.Train {
		train := mkTrain("IC", 100,
			timedStop("P", "", "09:00"),
			timedStop("Q", "09:30", "09:31"),
			timedStop("R", "10:00", ""))
		train.AddParams("runs daily")
		return train
	}
	b := func() *model.Train {
		train := mkTrain("IC", 200,
			timedStop("Q", "09:30", "09:31"),
			timedStop("R", "10:00", ""),
			timedStop("S", "10:30", ""))
		train.AddParams("not on holidays")
		return train
	}

	first := NewState()
	first.absorbTrain(a())
	first.absorbTrain(b())

	second := NewState()
	second.absorbTrain(b())
	second.absorbTrain(a())

	wantKey := model.TrainKey{Category: "IC", Number: 100}
	for i, state := range []*State{first, second} {
		if len(state.Trains) != 1 {
			t.Fatalf("order %d: %d trains remain, want 1", i, len(state.Trains))
		}
		winner := state.Trains[wantKey]
		if winner == nil {
			t.Fatalf("order %d: winner is not the lower number", i)
		}
		if len(winner.Params) != 2 {
			t.Errorf("order %d: params not unioned: %v", i, winner.Params)
		}
	}
}

func TestSingleSharedTimedStopIsNotADuplicate(t *testing.T) {
	state := NewState()
	state.absorbTrain(mkTrain("IC", 100,
		timedStop("P", "", "09:00"),
		timedStop("Q", "09:30", "")))
	state.absorbTrain(mkTrain("IC", 200,
		timedStop("Q", "09:30", ""),
		timedStop("Z", "10:00", "")))

	if len(state.Trains) != 2 {
		t.Fatalf("%d trains remain, want 2: one shared stop must not merge", len(state.Trains))
	}
	if len(state.Blacklist) != 0 {
		t.Errorf("blacklist not empty: %v", state.Blacklist)
	}
}

func TestScrapeStationSkipsKnownQueuedAndBlacklisted(t *testing.T) {
	state := NewState()
	state.StationsToScrape["Alpha"] = model.NewStation("Alpha", geo.Position{Latitude: 50, Longitude: 20})
	state.Blacklist[model.TrainKey{Category: "IC", Number: 1}] = true
	state.Trains[model.TrainKey{Category: "IC", Number: 2}] = mkTrain("IC", 2)
	state.TrainsToScrape = []model.TrainSummary{{Category: "IC", Number: 3, URL: "u3"}}

	schedule := &fakeSchedule{listings: map[string][]model.TrainSummary{
		"Alpha": {
			{Category: "IC", Number: 1, URL: "x"},
			{Category: "IC", Number: 2, URL: "x"},
			{Category: "IC", Number: 3, URL: "x"},
			{Category: "IC", Number: 4, URL: "u4"},
		},
	}}

	if err := state.scrapeStationOne(schedule); err != nil {
		t.Fatalf("scrapeStationOne: %v", err)
	}
	if len(state.TrainsToScrape) != 2 {
		t.Fatalf("queue length %d, want 2 (only IC 4 added)", len(state.TrainsToScrape))
	}
	if got := state.TrainsToScrape[1].Number; got != 4 {
		t.Errorf("queued train number %d, want 4", got)
	}
}

func TestNearestNeighborExpansion(t *testing.T) {
	state := NewState()
	state.Stations["Origin"] = model.NewStation("Origin", geo.Position{Latitude: 50, Longitude: 20})
	state.StationsToScrape["Far"] = model.NewStation("Far", geo.Position{Latitude: 50.5, Longitude: 20})
	state.StationsToScrape["Near"] = model.NewStation("Near", geo.Position{Latitude: 50.01, Longitude: 20})

	if got := state.nextStationToScrape(); got != "Near" {
		t.Errorf("next station = %q, want the frontier's nearest %q", got, "Near")
	}
}
