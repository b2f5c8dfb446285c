package delatrain

import (
	"errors"
	"fmt"
	"log"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
)

// ErrFixupAborted signals that the operator declined a fixup action. State
// is unchanged; the same broken station comes up again on the next step.
var ErrFixupAborted = errors.New("fixup aborted by operator")

// FixupLedger persists manual geocodes across runs. It is consulted before
// prompting a human and appended to after each manual resolution.
type FixupLedger interface {
	Lookup(station string) (geo.Position, bool, error)
	Save(station string, pos geo.Position) error
}

// FixupAction is the operator's decision for one broken station: either a
// corrected location or deletion.
type FixupAction struct {
	Delete   bool
	Location geo.Position
}

// FixupResolver is the interactive side of the fixup phase.
type FixupResolver interface {
	Resolve(station string) (FixupAction, error)
	ConfirmDeletion(plan DeletionPlan) (bool, error)
}

// DeletionPlan is the full consequence of deleting a broken station,
// computed before any mutation: the trains to blacklist and remove, and
// every broken station left unreachable by the remaining trains.
type DeletionPlan struct {
	Stations []string
	Trains   []model.TrainKey
}

// FixupDone reports whether any broken stations remain.
func (s *State) FixupDone() bool {
	return len(s.BrokenStations) == 0
}

// FixupStep resolves one broken station: from the ledger when a past manual
// geocode exists, otherwise interactively. Deletion cascades per
// DeletionPlan and mutates only after confirmation.
func (s *State) FixupStep(ledger FixupLedger, resolver FixupResolver) (bool, error) {
	if len(s.BrokenStations) == 0 {
		return true, nil
	}
	name := sortedNames(s.BrokenStations)[0]

	if ledger != nil {
		pos, ok, err := ledger.Lookup(name)
		if err != nil {
			return false, err
		}
		if ok {
			s.repairStation(name, pos)
			log.Printf("fixed station %q from ledger: %v", name, pos)
			return false, nil
		}
	}

	action, err := resolver.Resolve(name)
	if err != nil {
		return false, fmt.Errorf("fixup %q: %w", name, err)
	}
	if !action.Delete {
		if ledger != nil {
			if err := ledger.Save(name, action.Location); err != nil {
				return false, err
			}
		}
		s.repairStation(name, action.Location)
		log.Printf("fixed station %q manually: %v", name, action.Location)
		return false, nil
	}

	plan := s.DeletionPlan(name)
	ok, err := resolver.ConfirmDeletion(plan)
	if err != nil {
		return false, fmt.Errorf("fixup %q: %w", name, err)
	}
	if !ok {
		return false, ErrFixupAborted
	}
	s.applyDeletion(plan)
	log.Printf("deleted station %q with %d cascading stations and %d trains",
		name, len(plan.Stations)-1, len(plan.Trains))
	return false, nil
}

// repairStation moves a broken station straight into the scraped set, so
// the corrected location participates in pathfinding and export without
// another scrape pass.
func (s *State) repairStation(name string, pos geo.Position) {
	delete(s.BrokenStations, name)
	s.Stations[name] = model.NewStation(name, pos)
}

// DeletionPlan computes the cascade for deleting one broken station: every
// known train calling there, plus every other broken station those trains
// were the only ones to reach.
func (s *State) DeletionPlan(root string) DeletionPlan {
	doomed := map[model.TrainKey]bool{}
	for key, train := range s.Trains {
		if train.HasStopAt(root) {
			doomed[key] = true
		}
	}

	stations := []string{root}
	for _, name := range sortedNames(s.BrokenStations) {
		if name == root {
			continue
		}
		reachableBefore, reachableAfter := false, false
		for key, train := range s.Trains {
			if !train.HasStopAt(name) {
				continue
			}
			reachableBefore = true
			if !doomed[key] {
				reachableAfter = true
				break
			}
		}
		if reachableBefore && !reachableAfter {
			stations = append(stations, name)
		}
	}
	return DeletionPlan{Stations: stations, Trains: sortedTrainKeys(doomed)}
}

func (s *State) applyDeletion(plan DeletionPlan) {
	for _, key := range plan.Trains {
		s.Blacklist[key] = true
		s.purgeTimedStops(key)
		delete(s.Trains, key)
	}
	for _, name := range plan.Stations {
		delete(s.BrokenStations, name)
	}
}
