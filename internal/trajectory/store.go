// Package trajectory implements the per-aircraft rolling trajectory
// store: an ordered sequence of snapshots with typed
// field projection, positions view, summary stats, rate-of-change,
// interpolation and a stability test.
//
// A source implementation would expose field("calculated.altitude")
// through a dynamic dotted-path lookup; this one replaces that with a
// small enum of well-known accessors (FieldAccessor) per the design
// note on static field access — free-form path lookup has no place in
// a statically typed target.
package trajectory

import (
	"sort"

	"adsb-tracker/internal/stats"
	"adsb-tracker/pkg/aircraft"
)

// FieldAccessor extracts one scalar from a snapshot. ok is false when
// the field was not reported this tick (e.g. a nil AltBaro).
type FieldAccessor func(s aircraft.Snapshot) (value float64, ok bool)

var (
	FieldAltBaro = FieldAccessor(func(s aircraft.Snapshot) (float64, bool) {
		if s.AltBaro == nil {
			return 0, false
		}
		return float64(*s.AltBaro), true
	})
	FieldAltGeom = FieldAccessor(func(s aircraft.Snapshot) (float64, bool) {
		if s.AltGeom == nil {
			return 0, false
		}
		return float64(*s.AltGeom), true
	})
	FieldLat = FieldAccessor(func(s aircraft.Snapshot) (float64, bool) {
		if !s.HasPos {
			return 0, false
		}
		return s.Lat, true
	})
	FieldLon = FieldAccessor(func(s aircraft.Snapshot) (float64, bool) {
		if !s.HasPos {
			return 0, false
		}
		return s.Lon, true
	})
	FieldTrack = FieldAccessor(func(s aircraft.Snapshot) (float64, bool) {
		return s.Track, true
	})
	FieldGS = FieldAccessor(func(s aircraft.Snapshot) (float64, bool) {
		return s.GS, true
	})
	FieldBaroRate = FieldAccessor(func(s aircraft.Snapshot) (float64, bool) {
		if !s.HasRate {
			return 0, false
		}
		return s.BaroRate, true
	})
)

// Options configures a field/positions/stats query.
type Options struct {
	TimeWindowMs        int64 // 0 means no time-window filter
	MinDataPoints       int
	MaxDataPoints        int // 0 means unbounded
	RequireCompleteData bool // positions(): drop entries missing altitude or track
}

// FieldResult is the value/timestamp series returned by Field.
type FieldResult struct {
	Values     []float64
	Timestamps []int64
}

// PositionSample is one entry of the Positions() view.
type PositionSample struct {
	Lat       float64
	Lon       float64
	Timestamp int64
	Altitude  *float64
	AltBaro   *int
	Track     *float64
	GS        *float64
	BaroRate  *int
}

const defaultRetentionMs = 10 * 60 * 1000

// Store holds one aircraft's rolling trajectory. It is written once per
// tick by the ingest stage and read by all filters in between; the tick
// boundary serializes those two phases so Store itself needs no lock.
type Store struct {
	entries       []aircraft.TrajectoryEntry
	retentionMs   int64
	maxEntries    int
	memo          map[memoKey]FieldResult
	liveSnapshot  aircraft.Snapshot
	hasLive       bool
}

type memoKey struct {
	field string
	opts  Options
}

// New creates a trajectory store with the default 10-minute retention
// window and an optional count cap (0 means unbounded beyond the time
// window).
func New(maxEntries int) *Store {
	return &Store{
		retentionMs: defaultRetentionMs,
		maxEntries:  maxEntries,
		memo:        make(map[memoKey]FieldResult),
	}
}

// Append adds a new sample and clears the tick's memoization cache. It
// also trims entries older than the retention window and, if configured,
// beyond the count cap.
func (st *Store) Append(timestampMs int64, snap aircraft.Snapshot) {
	st.entries = append(st.entries, aircraft.TrajectoryEntry{TimestampMs: timestampMs, Snapshot: snap})
	st.liveSnapshot = snap
	st.hasLive = true
	st.trim(timestampMs)
	st.memo = make(map[memoKey]FieldResult)
}

func (st *Store) trim(nowMs int64) {
	cutoff := nowMs - st.retentionMs
	i := 0
	for i < len(st.entries) && st.entries[i].TimestampMs < cutoff {
		i++
	}
	if i > 0 {
		st.entries = append([]aircraft.TrajectoryEntry(nil), st.entries[i:]...)
	}
	if st.maxEntries > 0 && len(st.entries) > st.maxEntries {
		excess := len(st.entries) - st.maxEntries
		st.entries = append([]aircraft.TrajectoryEntry(nil), st.entries[excess:]...)
	}
}

// Len returns the number of retained samples.
func (st *Store) Len() int { return len(st.entries) }

// Entries returns the retained samples, oldest first. Callers must treat
// the slice as read-only.
func (st *Store) Entries() []aircraft.TrajectoryEntry { return st.entries }

// Field extracts the given accessor from every retained (and optionally
// live) sample subject to Options, skipping samples where the field was
// not reported. Results for identical (name, opts) are memoised for
// the lifetime of the current tick (cleared on the next Append).
func (st *Store) Field(name string, accessor FieldAccessor, opts Options) FieldResult {
	key := memoKey{field: name, opts: opts}
	if cached, ok := st.memo[key]; ok {
		return cached
	}

	var values []float64
	var timestamps []int64

	nowMs := st.nowMs()
	for _, e := range st.entries {
		if opts.TimeWindowMs > 0 && e.TimestampMs < nowMs-opts.TimeWindowMs {
			continue
		}
		v, ok := accessor(e.Snapshot)
		if !ok {
			continue
		}
		values = append(values, v)
		timestamps = append(timestamps, e.TimestampMs)
	}

	if st.hasLive {
		if v, ok := accessor(st.liveSnapshot); ok {
			if len(values) == 0 || values[len(values)-1] != v {
				values = append(values, v)
				timestamps = append(timestamps, nowMs)
			}
		}
	}

	if opts.MaxDataPoints > 0 && len(values) > opts.MaxDataPoints {
		start := len(values) - opts.MaxDataPoints
		values = values[start:]
		timestamps = timestamps[start:]
	}

	result := FieldResult{Values: values, Timestamps: timestamps}
	if opts.MinDataPoints > 0 && len(values) < opts.MinDataPoints {
		result = FieldResult{}
	}

	st.memo[key] = result
	return result
}

func (st *Store) nowMs() int64 {
	if len(st.entries) == 0 {
		return 0
	}
	return st.entries[len(st.entries)-1].TimestampMs
}

// Positions returns the position view across retained (and optionally
// live) samples, with RequireCompleteData dropping entries missing
// altitude or track.
func (st *Store) Positions(opts Options) []PositionSample {
	var out []PositionSample
	for _, e := range st.entries {
		if opts.TimeWindowMs > 0 && e.TimestampMs < st.nowMs()-opts.TimeWindowMs {
			continue
		}
		if !e.Snapshot.HasPos {
			continue
		}
		if opts.RequireCompleteData && (e.Snapshot.AltBaro == nil) {
			continue
		}
		out = append(out, sampleFrom(e.TimestampMs, e.Snapshot))
	}
	if st.hasLive && st.liveSnapshot.HasPos {
		last := sampleFrom(st.nowMs(), st.liveSnapshot)
		if len(out) == 0 || out[len(out)-1].Lat != last.Lat || out[len(out)-1].Lon != last.Lon {
			if !(opts.RequireCompleteData && st.liveSnapshot.AltBaro == nil) {
				out = append(out, last)
			}
		}
	}
	if opts.MaxDataPoints > 0 && len(out) > opts.MaxDataPoints {
		out = out[len(out)-opts.MaxDataPoints:]
	}
	return out
}

func sampleFrom(ts int64, s aircraft.Snapshot) PositionSample {
	sample := PositionSample{Lat: s.Lat, Lon: s.Lon, Timestamp: ts}
	if s.AltBaro != nil {
		alt := float64(*s.AltBaro)
		sample.Altitude = &alt
		sample.AltBaro = s.AltBaro
	}
	track := s.Track
	sample.Track = &track
	gs := s.GS
	sample.GS = &gs
	if s.HasRate {
		rate := int(s.BaroRate)
		sample.BaroRate = &rate
	}
	return sample
}

// Stats computes the summary statistics bundle over a field.
func (st *Store) Stats(name string, accessor FieldAccessor, opts Options) stats.Summary {
	fr := st.Field(name, accessor, opts)
	return stats.Describe(fr.Values, fr.Timestamps)
}

// RatePoint is one instantaneous rate sample between two consecutive
// values.
type RatePoint struct {
	Rate      float64
	Timestamp int64
}

// RateOfChange returns the per-pair instantaneous rate of change
// between consecutive samples of a field.
func (st *Store) RateOfChange(name string, accessor FieldAccessor, opts Options) []RatePoint {
	fr := st.Field(name, accessor, opts)
	if len(fr.Values) < 2 {
		return nil
	}
	out := make([]RatePoint, 0, len(fr.Values)-1)
	for i := 1; i < len(fr.Values); i++ {
		dt := float64(fr.Timestamps[i]-fr.Timestamps[i-1]) / 1000.0
		if dt == 0 {
			continue
		}
		out = append(out, RatePoint{
			Rate:      (fr.Values[i] - fr.Values[i-1]) / dt,
			Timestamp: fr.Timestamps[i],
		})
	}
	return out
}

// StabilityOptions configures IsFieldStable.
type StabilityOptions struct {
	Options
	StdDevThreshold float64
}

// IsFieldStable reports whether a field's standard deviation is below a
// threshold, once at least MinDataPoints samples are present.
func (st *Store) IsFieldStable(name string, accessor FieldAccessor, opts StabilityOptions) bool {
	summary := st.Stats(name, accessor, opts.Options)
	if summary.Count < opts.MinDataPoints {
		return false
	}
	return summary.StdDev < opts.StdDevThreshold
}

// InterpolatedValue returns the linear interpolation of a field at
// targetMs, clamped at the series' endpoints. Returns ok=false if there
// are no samples.
func (st *Store) InterpolatedValue(name string, accessor FieldAccessor, targetMs int64) (value float64, ok bool) {
	fr := st.Field(name, accessor, Options{})
	n := len(fr.Values)
	if n == 0 {
		return 0, false
	}
	if targetMs <= fr.Timestamps[0] {
		return fr.Values[0], true
	}
	if targetMs >= fr.Timestamps[n-1] {
		return fr.Values[n-1], true
	}
	idx := sort.Search(n, func(i int) bool { return fr.Timestamps[i] >= targetMs })
	if fr.Timestamps[idx] == targetMs {
		return fr.Values[idx], true
	}
	prevT, nextT := fr.Timestamps[idx-1], fr.Timestamps[idx]
	prevV, nextV := fr.Values[idx-1], fr.Values[idx]
	frac := float64(targetMs-prevT) / float64(nextT-prevT)
	return prevV + frac*(nextV-prevV), true
}

// ValueAt returns the sample nearest to secondsAgo, within toleranceS,
// or ok=false if nothing qualifies.
func (st *Store) ValueAt(name string, accessor FieldAccessor, secondsAgo, toleranceS float64) (value float64, ok bool) {
	fr := st.Field(name, accessor, Options{})
	if len(fr.Values) == 0 {
		return 0, false
	}
	targetMs := st.nowMs() - int64(secondsAgo*1000)
	bestIdx := -1
	bestDelta := int64(1) << 62
	for i, ts := range fr.Timestamps {
		delta := ts - targetMs
		if delta < 0 {
			delta = -delta
		}
		if delta < bestDelta {
			bestDelta = delta
			bestIdx = i
		}
	}
	if bestIdx < 0 || float64(bestDelta)/1000.0 > toleranceS {
		return 0, false
	}
	return fr.Values[bestIdx], true
}

// HasMinimumData reports whether at least minPoints samples exist,
// optionally restricted to the last windowMs.
func (st *Store) HasMinimumData(minPoints int, windowMs int64) bool {
	if windowMs <= 0 {
		return len(st.entries) >= minPoints
	}
	count := 0
	cutoff := st.nowMs() - windowMs
	for _, e := range st.entries {
		if e.TimestampMs >= cutoff {
			count++
		}
	}
	return count >= minPoints
}
