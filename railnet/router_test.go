package railnet

import (
	"testing"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
)

func lineRail(a, b string, pa, pb geo.Position) *model.Rail {
	return model.NewRail(a, b, []geo.Position{pa, pb}, []float64{100})
}

func trainVisiting(stations ...string) *model.Train {
	t := &model.Train{Category: "TLK", Number: 1000}
	for _, s := range stations {
		t.Stops = append(t.Stops, model.TrainStop{StationName: s, Arrival: model.NoTime, Departure: model.NoTime})
	}
	return t
}

func TestAnalyzeEmitsRuleThroughIntermediate(t *testing.T) {
	p := geo.Position{Latitude: 50.0, Longitude: 20.0}
	q := geo.Position{Latitude: 50.01, Longitude: 20.0}
	r := geo.Position{Latitude: 50.02, Longitude: 20.0}

	g := NewStationGraph()
	g.AddRail(lineRail("P", "Q", p, q), p, q)
	g.AddRail(lineRail("Q", "R", q, r), q, r)

	rules, used, errs := g.AnalyzeTrain(trainVisiting("P", "R"), 3.5)

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	rule := rules[0]
	if rule.Key() != model.NewStationPair("P", "R") {
		t.Errorf("rule endpoints = %s, %s", rule.Start, rule.End)
	}
	if len(rule.Via) != 1 || rule.Via[0] != "Q" {
		t.Errorf("via = %v, want [Q]", rule.Via)
	}
	if len(used) != 2 {
		t.Errorf("expected both rails on the path marked used, got %v", used)
	}
}

func TestAnalyzeRejectsImplausibleDetour(t *testing.T) {
	// P and R are neighbours, but the only path through known rails runs
	// via a far-away Q: longer than 3.5x the direct distance.
	p := geo.Position{Latitude: 50.0, Longitude: 20.0}
	q := geo.Position{Latitude: 50.2, Longitude: 20.0}
	r := geo.Position{Latitude: 50.001, Longitude: 20.001}

	g := NewStationGraph()
	g.AddRail(lineRail("P", "Q", p, q), p, q)
	g.AddRail(lineRail("Q", "R", q, r), q, r)

	rules, _, errs := g.AnalyzeTrain(trainVisiting("P", "R"), 3.5)

	if len(rules) != 0 {
		t.Fatalf("implausible detour accepted: %v", rules[0])
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if errs[0].From != "P" || errs[0].To != "R" {
		t.Errorf("error keyed to %s -> %s", errs[0].From, errs[0].To)
	}
}

func TestAnalyzeDirectEdgeNeedsNoRule(t *testing.T) {
	p := geo.Position{Latitude: 50.0, Longitude: 20.0}
	q := geo.Position{Latitude: 50.01, Longitude: 20.0}

	g := NewStationGraph()
	g.AddRail(lineRail("P", "Q", p, q), p, q)

	rules, used, errs := g.AnalyzeTrain(trainVisiting("P", "Q"), 3.5)

	if len(rules) != 0 || len(errs) != 0 {
		t.Fatalf("direct edge should produce no rule and no error, got %v, %v", rules, errs)
	}
	if len(used) != 1 || used[0] != model.NewStationPair("P", "Q") {
		t.Errorf("direct rail not marked used: %v", used)
	}
}

func TestAnalyzeUnknownStationIsError(t *testing.T) {
	p := geo.Position{Latitude: 50.0, Longitude: 20.0}
	q := geo.Position{Latitude: 50.01, Longitude: 20.0}

	g := NewStationGraph()
	g.AddRail(lineRail("P", "Q", p, q), p, q)

	_, _, errs := g.AnalyzeTrain(trainVisiting("P", "Nowhere"), 3.5)

	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if errs[0].To != "Nowhere" {
		t.Errorf("error keyed to %s -> %s", errs[0].From, errs[0].To)
	}
}

func TestAnalyzeDisconnectedPairIsError(t *testing.T) {
	p := geo.Position{Latitude: 50.0, Longitude: 20.0}
	q := geo.Position{Latitude: 50.01, Longitude: 20.0}
	x := geo.Position{Latitude: 51.0, Longitude: 21.0}
	y := geo.Position{Latitude: 51.01, Longitude: 21.0}

	g := NewStationGraph()
	g.AddRail(lineRail("P", "Q", p, q), p, q)
	g.AddRail(lineRail("X", "Y", x, y), x, y)

	_, _, errs := g.AnalyzeTrain(trainVisiting("P", "X"), 3.5)

	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
}
