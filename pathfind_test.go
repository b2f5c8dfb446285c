package delatrain

import (
	"testing"

	"github.com/DelaTrain/scraper/config"
	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
	"github.com/DelaTrain/scraper/railnet"
)

func testPathfinding() config.Pathfinding {
	return config.Pathfinding{
		RadiusKM:              15,
		IntervalM:             200,
		HitboxRadiusM:         300,
		DefaultSpeed:          120,
		AugmentMultiplier:     2,
		MaxTurnDegrees:        30,
		ForeignCutoffMultiple: 2,
		SamplingIntervalM:     50,
		MaxDetourMultiplier:   3.5,
	}
}

// lineGraph builds a straight north-south track of n nodes spaced 0.002
// degrees of latitude apart, roughly 222 m.
func lineGraph(n int) *railnet.TrackGraph {
	g := railnet.NewTrackGraph()
	for i := 0; i < n; i++ {
		g.AddNode(railnet.NodeID(i), geo.Position{Latitude: 50 + 0.002*float64(i), Longitude: 20})
		if i > 0 {
			g.AddSegment(railnet.NodeID(i-1), railnet.NodeID(i), nil)
		}
	}
	return g
}

func TestResetPathfinding(t *testing.T) {
	state := NewState()
	for _, name := range []string{"Charlie", "Alpha", "Bravo"} {
		state.Stations[name] = model.NewStation(name, geo.Position{Latitude: 50, Longitude: 20})
	}
	loc := geo.Position{Latitude: 51, Longitude: 20}
	state.Stations["Alpha"].AccurateLocation = &loc
	state.Trains[model.TrainKey{Category: "IC", Number: 2}] = mkTrain("IC", 2)
	state.Trains[model.TrainKey{Category: "IC", Number: 1}] = mkTrain("IC", 1)
	state.Rails[model.NewStationPair("Alpha", "Bravo")] = model.NewRail("Alpha", "Bravo", nil, nil)

	state.ResetPathfinding()

	wantQueue := []string{"Alpha", "Bravo", "Charlie"}
	for i, name := range wantQueue {
		if state.RailsToFind[i] != name {
			t.Fatalf("RailsToFind = %v, want sorted %v", state.RailsToFind, wantQueue)
		}
	}
	if state.TrainsToAnalyze[0].Number != 1 || state.TrainsToAnalyze[1].Number != 2 {
		t.Errorf("TrainsToAnalyze = %v, want key order", state.TrainsToAnalyze)
	}
	if len(state.Rails) != 0 {
		t.Error("derived rails survived the reset")
	}
	if state.Stations["Alpha"].AccurateLocation != nil {
		t.Error("refined location survived the reset")
	}
}

func TestPathPhase(t *testing.T) {
	state := NewState()
	state.Stations["Alpha"] = model.NewStation("Alpha", geo.Position{Latitude: 50, Longitude: 20})
	state.Stations["Beta"] = model.NewStation("Beta", geo.Position{Latitude: 50.018, Longitude: 20})
	state.absorbTrain(mkTrain("IC", 100, timedStop("Alpha", "", "08:00"), timedStop("Beta", "08:20", "")))
	state.absorbTrain(mkTrain("IC", 200, timedStop("Alpha", "", "09:00"), timedStop("Ghost", "09:30", "")))
	state.ResetPathfinding()

	maps := &fakeMap{graph: lineGraph(10)}
	cfg := testPathfinding()

	for i := 0; !state.PathDone(); i++ {
		if i > 20 {
			t.Fatal("pathfinding did not terminate")
		}
		if _, err := state.PathStep(maps, cfg); err != nil {
			t.Fatalf("PathStep: %v", err)
		}
	}

	pair := model.NewStationPair("Alpha", "Beta")
	rail := state.Rails[pair]
	if rail == nil {
		t.Fatal("no rail derived between Alpha and Beta")
	}
	if len(rail.Points)-1 != len(rail.MaxSpeed) {
		t.Fatalf("simplified rail has %d points and %d speeds", len(rail.Points), len(rail.MaxSpeed))
	}
	if rail.Points[0] != state.Stations["Alpha"].BestLocation() {
		t.Error("rail does not start at the station's best location")
	}
	if state.Stations["Alpha"].AccurateLocation == nil {
		t.Error("rail finder did not refine Alpha's location")
	}

	if !state.UsedRails[pair] {
		t.Error("direct rail not marked used by the analyzer")
	}
	if len(state.RoutingRules) != 0 {
		t.Errorf("unexpected routing rules: %v", state.RoutingRules)
	}
	ghostPair := model.NewStationPair("Alpha", "Ghost")
	if state.RouteProblems[ghostPair] == "" {
		t.Error("missing route problem for the unknown station pair")
	}
}

func TestAnalyzeEmitsRuleThroughIntermediate(t *testing.T) {
	state := NewState()
	a := geo.Position{Latitude: 50, Longitude: 20}
	b := geo.Position{Latitude: 50.018, Longitude: 20}
	c := geo.Position{Latitude: 50.036, Longitude: 20}
	state.Stations["A"] = model.NewStation("A", a)
	state.Stations["B"] = model.NewStation("B", b)
	state.Stations["C"] = model.NewStation("C", c)
	state.Rails[model.NewStationPair("A", "B")] = model.NewRail("A", "B", []geo.Position{a, b}, []float64{120})
	state.Rails[model.NewStationPair("B", "C")] = model.NewRail("B", "C", []geo.Position{b, c}, []float64{120})

	train := mkTrain("IC", 100, timedStop("A", "", "08:00"), timedStop("C", "08:40", ""))
	state.Trains[train.Key()] = train
	state.TrainsToAnalyze = []model.TrainKey{train.Key()}

	if _, err := state.PathStep(&fakeMap{}, testPathfinding()); err != nil {
		t.Fatalf("PathStep: %v", err)
	}

	rule := state.RoutingRules[model.NewStationPair("A", "C")]
	if rule == nil {
		t.Fatal("no routing rule for the indirect pair")
	}
	if len(rule.Via) != 1 || rule.Via[0] != "B" {
		t.Errorf("rule via = %v, want [B]", rule.Via)
	}
	if !state.UsedRails[model.NewStationPair("A", "B")] || !state.UsedRails[model.NewStationPair("B", "C")] {
		t.Error("path rails not marked used")
	}
	if len(state.RouteProblems) != 0 {
		t.Errorf("unexpected route problems: %v", state.RouteProblems)
	}
}
