// Package pipeline implements the three-phase filter engine:
// a priority-ordered chain of filters, each given a preprocess pass to
// populate its slice of Calculated, an evaluate pass to emit alerts,
// and a postprocess pass for cross-aircraft aggregation. The engine
// diffs each tick's alerts against the previous tick's active-alert
// table to produce insert/remove events, and isolates a misbehaving
// filter behind a recovered FilterFault rather than letting it take
// down the tick.
package pipeline

import (
	"adsb-tracker/internal/detect"
	"adsb-tracker/pkg/aircraft"
)

// Filter is the contract every detector-backed pipeline stage
// implements. Priority determines evaluation order; lower values run
// first, so a filter that depends on another's Calculated field (e.g.
// airprox skipping aircraft the airport filter already flagged as
// near-field) must declare a higher priority number.
type Filter interface {
	ID() string
	Priority() int

	// Preprocess computes this filter's Calculated fields for one
	// aircraft. It runs for every tracked aircraft before any filter's
	// Evaluate runs, so later filters can read earlier filters' output.
	Preprocess(tc detect.TickContext, ac *aircraft.Aircraft) error

	// Evaluate inspects the (now fully preprocessed) aircraft and
	// returns zero or more alerts for the current tick.
	Evaluate(tc detect.TickContext, ac *aircraft.Aircraft) ([]aircraft.Alert, error)

	// Postprocess runs once per tick after every aircraft has been
	// evaluated, for cross-aircraft aggregation (e.g. priority-airport
	// runway-traffic insights). Its returned alerts are merged into the
	// same active-alert table Evaluate's are, keyed by (ID(), Hex,
	// SubKey); a Postprocess alert about an aggregate entity rather than
	// one aircraft (e.g. an airport) should set Hex to that entity's
	// identity so it still diffs correctly across ticks.
	Postprocess(tc detect.TickContext, table map[string]*aircraft.Aircraft) ([]aircraft.Alert, error)

	// Sort orders this filter's alerts before they are published.
	Sort(alerts []aircraft.Alert)

	// Stats reports filter-specific counters for the status snapshot.
	Stats() map[string]any

	// Format renders one alert as a short human-readable line, used by
	// the log sink.
	Format(a aircraft.Alert) string

	// Debug returns a short diagnostic string, included in verbose ticks.
	Debug() string
}

// FilterFault records a filter that panicked or returned an error
// during one phase of one tick. The engine neutralizes the filter for
// that phase/aircraft and continues; a fault never aborts the tick.
type FilterFault struct {
	FilterID string
	Phase    string // "preprocess", "evaluate", "postprocess"
	Hex      string // empty for postprocess faults
	Err      error
}
