package delatrain

import (
	"errors"
	"reflect"
	"testing"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
)

type fakeLedger struct {
	entries map[string]geo.Position
	saved   []string
}

func (f *fakeLedger) Lookup(station string) (geo.Position, bool, error) {
	pos, ok := f.entries[station]
	return pos, ok, nil
}

func (f *fakeLedger) Save(station string, pos geo.Position) error {
	if f.entries == nil {
		f.entries = map[string]geo.Position{}
	}
	f.entries[station] = pos
	f.saved = append(f.saved, station)
	return nil
}

type fakeResolver struct {
	action   FixupAction
	confirm  bool
	resolved []string
	plans    []DeletionPlan
}

func (f *fakeResolver) Resolve(station string) (FixupAction, error) {
	f.resolved = append(f.resolved, station)
	return f.action, nil
}

func (f *fakeResolver) ConfirmDeletion(plan DeletionPlan) (bool, error) {
	f.plans = append(f.plans, plan)
	return f.confirm, nil
}

func TestFixupFromLedger(t *testing.T) {
	state := NewState()
	state.BrokenStations["X"] = true
	pos := geo.Position{Latitude: 51, Longitude: 19}
	ledger := &fakeLedger{entries: map[string]geo.Position{"X": pos}}
	resolver := &fakeResolver{}

	done, err := state.FixupStep(ledger, resolver)
	if done || err != nil {
		t.Fatalf("FixupStep: done=%v err=%v", done, err)
	}
	if len(resolver.resolved) != 0 {
		t.Error("resolver consulted despite a ledger hit")
	}
	if state.BrokenStations["X"] {
		t.Error("station left broken after ledger fixup")
	}
	station := state.Stations["X"]
	if station == nil || station.Location != pos {
		t.Errorf("repaired station = %+v, want location %v in the scraped set", station, pos)
	}
}

func TestFixupManualGeocodeSavesToLedger(t *testing.T) {
	state := NewState()
	state.BrokenStations["X"] = true
	pos := geo.Position{Latitude: 52, Longitude: 18}
	ledger := &fakeLedger{}
	resolver := &fakeResolver{action: FixupAction{Location: pos}}

	if _, err := state.FixupStep(ledger, resolver); err != nil {
		t.Fatalf("FixupStep: %v", err)
	}
	if !reflect.DeepEqual(ledger.saved, []string{"X"}) {
		t.Errorf("ledger saves = %v, want [X]", ledger.saved)
	}
	if state.Stations["X"] == nil {
		t.Error("repaired station missing from the scraped set")
	}
}

func TestRepairedStationJoinsPathfindingAndExport(t *testing.T) {
	state := NewState()
	state.BrokenStations["X"] = true
	pos := geo.Position{Latitude: 53, Longitude: 17}
	ledger := &fakeLedger{entries: map[string]geo.Position{"X": pos}}

	if _, err := state.FixupStep(ledger, &fakeResolver{}); err != nil {
		t.Fatalf("FixupStep: %v", err)
	}

	state.ResetPathfinding()
	if !reflect.DeepEqual(state.RailsToFind, []string{"X"}) {
		t.Errorf("repaired station missing from RailsToFind: %v", state.RailsToFind)
	}

	doc := state.Export()
	if len(doc.Stations) != 1 || doc.Stations[0].Name != "X" || doc.Stations[0].Location != pos {
		t.Errorf("repaired station missing from export: %+v", doc.Stations)
	}
}

// cascadeState builds broken {X, Y} where every train through Y also runs
// through X, plus one train avoiding both.
func cascadeState() *State {
	state := NewState()
	state.BrokenStations["X"] = true
	state.BrokenStations["Y"] = true
	state.absorbTrain(mkTrain("IC", 100,
		timedStop("A", "", "08:00"),
		timedStop("X", "08:30", "08:31"),
		timedStop("Y", "09:00", "")))
	state.absorbTrain(mkTrain("IC", 200,
		timedStop("X", "", "10:00"),
		timedStop("B", "10:30", "")))
	state.absorbTrain(mkTrain("IC", 300,
		timedStop("A", "", "12:00"),
		timedStop("B", "12:40", "")))
	return state
}

func TestCascadingDeletion(t *testing.T) {
	state := cascadeState()
	resolver := &fakeResolver{action: FixupAction{Delete: true}, confirm: true}

	if _, err := state.FixupStep(nil, resolver); err != nil {
		t.Fatalf("FixupStep: %v", err)
	}

	if len(resolver.plans) != 1 {
		t.Fatalf("confirmations = %d, want 1", len(resolver.plans))
	}
	plan := resolver.plans[0]
	if !reflect.DeepEqual(plan.Stations, []string{"X", "Y"}) {
		t.Errorf("plan stations = %v, want cascade [X Y]", plan.Stations)
	}
	wantTrains := []model.TrainKey{{Category: "IC", Number: 100}, {Category: "IC", Number: 200}}
	if !reflect.DeepEqual(plan.Trains, wantTrains) {
		t.Errorf("plan trains = %v, want %v", plan.Trains, wantTrains)
	}

	if len(state.BrokenStations) != 0 {
		t.Errorf("broken stations remain: %v", state.BrokenStations)
	}
	if len(state.Trains) != 1 {
		t.Errorf("%d trains remain, want only the untouched IC 300", len(state.Trains))
	}
	for _, key := range wantTrains {
		if !state.Blacklist[key] {
			t.Errorf("deleted train %s not blacklisted", key)
		}
	}
}

func TestDeclinedDeletionLeavesStateUnchanged(t *testing.T) {
	state := cascadeState()
	resolver := &fakeResolver{action: FixupAction{Delete: true}, confirm: false}

	_, err := state.FixupStep(nil, resolver)
	if !errors.Is(err, ErrFixupAborted) {
		t.Fatalf("err = %v, want ErrFixupAborted", err)
	}

	if len(state.Trains) != 3 {
		t.Errorf("%d trains remain, want untouched 3", len(state.Trains))
	}
	if !state.BrokenStations["X"] || !state.BrokenStations["Y"] {
		t.Errorf("broken set mutated: %v", state.BrokenStations)
	}
	if len(state.Blacklist) != 0 {
		t.Errorf("blacklist mutated: %v", state.Blacklist)
	}
}
