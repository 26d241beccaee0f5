package pipeline

import (
	"fmt"
	"log"
	"sort"
	"time"

	"adsb-tracker/internal/detect"
	"adsb-tracker/pkg/aircraft"
)

const maxMissedTicks = 3

// Engine owns the tracked-aircraft table and the active-alert table
// diffed each tick. It is written to by exactly one goroutine: one tick
// completes fully before the next begins.
type Engine struct {
	filters  []Filter
	stores   *trajectoryStores
	aircraft map[string]*aircraft.Aircraft
	active   map[aircraft.ActiveAlertKey]aircraft.Alert
	faults   []FilterFault
	budget   time.Duration
}

// TickResult is everything one Tick call produced: alerts newly raised,
// alerts that no longer apply, the full active set, and any filter
// faults recorded along the way.
type TickResult struct {
	Inserted []aircraft.Alert
	Removed  []aircraft.Alert
	Active   []aircraft.Alert
	Faults   []FilterFault
}

// NewEngine builds an engine from an unordered filter set, sorting them
// by ascending priority once up front. stores is the trajectory history
// shared by every filter constructed with it (overhead, airport,
// loiter); the engine appends this tick's snapshot to it before running
// any filter.
func NewEngine(filters []Filter, stores *trajectoryStores) *Engine {
	sorted := append([]Filter(nil), filters...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	return &Engine{
		filters:  sorted,
		stores:   stores,
		aircraft: make(map[string]*aircraft.Aircraft),
		active:   make(map[aircraft.ActiveAlertKey]aircraft.Alert),
	}
}

// SetBudget sets the wall-clock budget one Tick call gets before it
// starts truncating: once exceeded, every filter still waiting for its
// turn in the current phase is skipped for the rest of this tick and
// treated as having produced no results, rather than letting a slow or
// stuck filter delay the next tick indefinitely. Zero (the default)
// disables the budget.
func (e *Engine) SetBudget(d time.Duration) {
	e.budget = d
}

// Tick runs one full pass of the pipeline over the given tick's
// snapshots: refresh the aircraft table, run every filter's
// preprocess then evaluate in priority order, diff the resulting
// alerts against the active table, run postprocess, and return the
// tick's insert/remove/active sets.
func (e *Engine) Tick(tc detect.TickContext, snapshots map[string]aircraft.Snapshot) TickResult {
	e.faults = e.faults[:0]
	now := time.UnixMilli(tc.NowMs)

	var deadline time.Time
	if e.budget > 0 {
		deadline = time.Now().Add(e.budget)
	}
	var truncated bool

	e.refreshTable(snapshots, now, tc.NowMs)

	for _, f := range e.filters {
		if e.overBudget(deadline, &truncated, f.ID(), "preprocess") {
			continue
		}
		for hex, ac := range e.aircraft {
			if ac.MissedTicks > 0 {
				continue // no fresh snapshot this tick; skip preprocessing stale data
			}
			e.safeCall(f.ID(), "preprocess", hex, func() error {
				return f.Preprocess(tc, ac)
			})
		}
	}

	newAlerts := make(map[aircraft.ActiveAlertKey]aircraft.Alert)
	perFilterAlerts := make(map[string][]aircraft.Alert)
	for _, f := range e.filters {
		if e.overBudget(deadline, &truncated, f.ID(), "evaluate") {
			continue
		}
		var filterAlerts []aircraft.Alert
		for hex, ac := range e.aircraft {
			if ac.MissedTicks > 0 {
				continue
			}
			var alerts []aircraft.Alert
			e.safeCall(f.ID(), "evaluate", hex, func() error {
				var err error
				alerts, err = f.Evaluate(tc, ac)
				return err
			})
			for _, a := range alerts {
				a.Hex = hex
				a.Type = f.ID()
				newAlerts[aircraft.ActiveAlertKey{FilterID: f.ID(), Hex: hex, SubKey: a.SubKey}] = a
				filterAlerts = append(filterAlerts, a)
			}
		}
		f.Sort(filterAlerts)
		perFilterAlerts[f.ID()] = filterAlerts
	}

	for _, f := range e.filters {
		if e.overBudget(deadline, &truncated, f.ID(), "postprocess") {
			continue
		}
		var alerts []aircraft.Alert
		e.safeCall(f.ID(), "postprocess", "", func() error {
			var err error
			alerts, err = f.Postprocess(tc, e.aircraft)
			return err
		})
		for i := range alerts {
			alerts[i].Type = f.ID()
			newAlerts[aircraft.ActiveAlertKey{FilterID: f.ID(), Hex: alerts[i].Hex, SubKey: alerts[i].SubKey}] = alerts[i]
		}
	}

	var inserted, removed []aircraft.Alert
	for key, alert := range newAlerts {
		if _, existed := e.active[key]; !existed {
			inserted = append(inserted, alert)
		}
	}
	for key, alert := range e.active {
		if _, still := newAlerts[key]; !still {
			removed = append(removed, alert)
		}
	}
	e.active = newAlerts

	active := make([]aircraft.Alert, 0, len(e.active))
	for _, a := range e.active {
		active = append(active, a)
	}

	return TickResult{
		Inserted: inserted,
		Removed:  removed,
		Active:   active,
		Faults:   append([]FilterFault(nil), e.faults...),
	}
}

// refreshTable applies this tick's snapshots onto the tracked-aircraft
// table: seen aircraft get a fresh snapshot and a reset MissedTicks
// counter, unseen ones are aged and evicted (with a removal alert for
// every active key they held) once they exceed maxMissedTicks.
func (e *Engine) refreshTable(snapshots map[string]aircraft.Snapshot, now time.Time, nowMs int64) {
	for hex, snap := range snapshots {
		ac, ok := e.aircraft[hex]
		if !ok {
			ac = &aircraft.Aircraft{Hex: hex, FirstSeen: now}
			e.aircraft[hex] = ac
		}
		ac.Snapshot = snap
		ac.LastSeen = now
		ac.MissedTicks = 0
		if e.stores != nil {
			e.stores.Append(hex, nowMs, snap)
		}
	}

	for hex, ac := range e.aircraft {
		if _, seen := snapshots[hex]; seen {
			continue
		}
		ac.MissedTicks++
		if ac.MissedTicks > maxMissedTicks {
			// Its active keys stay in e.active, so this tick's diff
			// reports them as removed.
			delete(e.aircraft, hex)
		}
	}
}

// overBudget reports whether deadline has already passed, recording a
// fault for filterID/phase and logging once per tick the first time it
// does. A zero deadline means no budget is configured and this always
// returns false.
func (e *Engine) overBudget(deadline time.Time, truncated *bool, filterID, phase string) bool {
	if deadline.IsZero() || time.Now().Before(deadline) {
		return false
	}
	if !*truncated {
		*truncated = true
		log.Printf("[PIPELINE] tick exceeded its %s budget; truncating remaining filters", e.budget)
	}
	e.faults = append(e.faults, FilterFault{FilterID: filterID, Phase: phase, Err: fmt.Errorf("tick budget of %s exceeded", e.budget)})
	return true
}

// safeCall recovers a filter panic (or surfaces its returned error) as
// a FilterFault rather than letting it propagate into the tick loop.
func (e *Engine) safeCall(filterID, phase, hex string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			fault := FilterFault{FilterID: filterID, Phase: phase, Hex: hex, Err: fmt.Errorf("panic: %v", r)}
			e.faults = append(e.faults, fault)
			log.Printf("[PIPELINE] filter %s %s panicked for %s: %v", filterID, phase, hex, r)
		}
	}()
	if err := fn(); err != nil {
		e.faults = append(e.faults, FilterFault{FilterID: filterID, Phase: phase, Hex: hex, Err: err})
		log.Printf("[PIPELINE] filter %s %s failed for %s: %v", filterID, phase, hex, err)
	}
}

// Snapshot returns a read-only view of the currently tracked aircraft,
// keyed by hex, for status reporting and delivery sinks.
func (e *Engine) Snapshot() map[string]aircraft.Aircraft {
	out := make(map[string]aircraft.Aircraft, len(e.aircraft))
	for hex, ac := range e.aircraft {
		out[hex] = *ac
	}
	return out
}

// FilterStats returns every filter's Stats(), keyed by filter ID.
func (e *Engine) FilterStats() map[string]map[string]any {
	out := make(map[string]map[string]any, len(e.filters))
	for _, f := range e.filters {
		out[f.ID()] = f.Stats()
	}
	return out
}

// Formatters returns each filter's Format method keyed by filter ID, for
// a delivery.LogSink to render alerts in their producing filter's own
// style without the engine knowing what a log sink is.
func (e *Engine) Formatters() map[string]func(aircraft.Alert) string {
	out := make(map[string]func(aircraft.Alert) string, len(e.filters))
	for _, f := range e.filters {
		out[f.ID()] = f.Format
	}
	return out
}
