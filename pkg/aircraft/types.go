// Package aircraft holds the value types shared across the tracking
// core: the immutable per-tick snapshot, the tracked aggregate each
// filter writes its calculated result into, and the alert/trajectory
// types used for diffing between ticks.
package aircraft

import "time"

// AlertState unifies the upstream decoder's numeric and symbolic TCAS
// alert fields into one enum. The SBS and Beast decoders wired in here
// carry no alert state, so snapshots built from them are left at
// AlertNone; this package never guesses between the two conventions.
type AlertState int

const (
	AlertNone AlertState = iota
	AlertAdvisory
	AlertResolution
)

func (s AlertState) String() string {
	switch s {
	case AlertAdvisory:
		return "advisory"
	case AlertResolution:
		return "resolution"
	default:
		return "none"
	}
}

// Category is the ADS-B aircraft category field (size/type class).
type Category string

const (
	CategoryA1 Category = "A1"
	CategoryA2 Category = "A2"
	CategoryA3 Category = "A3"
	CategoryA4 Category = "A4"
	CategoryA5 Category = "A5"
	CategoryA6 Category = "A6"
	CategoryA7 Category = "A7"
	CategoryB1 Category = "B1"
	CategoryB6 Category = "B6"
	CategoryB7 Category = "B7"
	CategoryC1 Category = "C1"
	CategoryC2 Category = "C2"
)

// Snapshot is an immutable value captured each tick for one aircraft.
// Pointer fields distinguish "not reported this tick" from a zero value.
type Snapshot struct {
	Hex      string
	Flight   string
	Lat      float64
	Lon      float64
	HasPos   bool
	Track    float64
	GS       float64
	BaroRate float64
	HasRate  bool
	TrackRate *float64
	Roll      *float64
	AltBaro  *int
	AltGeom  *int
	Squawk   Squawk
	Emergency bool
	Alert    AlertState
	Category Category
	SeenPos  float64 // staleness of position, seconds
	Tick     time.Time
}

// TrajectoryEntry is one historical sample in an aircraft's rolling
// trajectory. TimestampMs is the tick's NowMs as supplied by the feed
// provider, never read from the clock by the engine, so replays are
// reproducible (spec determinism requirement).
type TrajectoryEntry struct {
	TimestampMs int64
	Snapshot    Snapshot
}

// Aircraft is the tracked aggregate keyed by Hex: latest snapshot plus
// the side-pocket of filter results. Calculated is a typed
// struct-of-results (one field per filter) rather than an open map, per
// the design note on replacing the source's dynamic `calculated` bag —
// every filter preprocess call writes to its own named field only.
type Aircraft struct {
	Hex        string
	Snapshot   Snapshot
	Calculated Calculated
	FirstSeen  time.Time
	LastSeen   time.Time
	MissedTicks int
}

// Calculated holds every filter's per-tick output for one aircraft. Each
// field is reset to its filter's sentinel value during that filter's
// preprocess phase (postprocess for Airprox), never carried over stale
// from the previous tick.
type Calculated struct {
	Altitude float64
	HasAltitude bool
	Distance float64 // km, to observer

	Overhead    OverheadResult
	AirportsNearby []EnhancedAirport
	Airprox     AirproxResult
	Loitering   LoiteringResult
	Squawk      SquawkResult
	Performance PerformanceResult
}

// Alert is one filter's classification of one aircraft (or, for a
// cross-aircraft postprocess insight, of one aggregate entity such as
// an airport) for the current tick. Identity for diffing is
// (Type, Hex, SubKey): SubKey disambiguates the case where one filter
// raises more than one simultaneous alert for the same Hex (e.g. an
// aircraft near two airports, or two distinct performance issues) and
// is left empty when a filter only ever raises one alert per Hex.
type Alert struct {
	Type          string
	Flight        string
	Hex           string
	SubKey        string
	Text          string
	Warn          bool
	TimeFormatted string
	Payload       any

	// Code and DistanceKm carry sort-key data a filter's Sort cannot
	// otherwise reach, since Sort only ever sees the alert slice itself.
	// Code is the detector's primary classification code when one
	// applies (e.g. the squawk code for a squawk alert); DistanceKm is
	// the aircraft's distance from the observer at evaluation time.
	Code       string
	DistanceKm float64
}

// ActiveAlertKey identifies one (filter, aircraft, sub-key) slot in the
// active-alert table that the pipeline diffs ticks against.
type ActiveAlertKey struct {
	FilterID string
	Hex      string
	SubKey   string
}

// Observer is the fixed surveillance reference point supplied at startup.
type Observer struct {
	Lat   float64
	Lon   float64
	AltM  float64
}
