package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"adsb-tracker/internal/detect"
	"adsb-tracker/internal/geo"
	"adsb-tracker/internal/refdata"
	"adsb-tracker/internal/trajectory"
	"adsb-tracker/pkg/aircraft"
)

// trajectoryStores gives every filter access to the per-aircraft
// trajectory history it needs during preprocess: a plain map guarded by
// the fact the engine only ever touches it within one tick.
type trajectoryStores struct {
	byHex map[string]*trajectory.Store
}

func NewTrajectoryStores() *trajectoryStores {
	return &trajectoryStores{byHex: make(map[string]*trajectory.Store)}
}

func (s *trajectoryStores) Get(hex string) *trajectory.Store {
	st, ok := s.byHex[hex]
	if !ok {
		st = trajectory.New(0)
		s.byHex[hex] = st
	}
	return st
}

func (s *trajectoryStores) Append(hex string, nowMs int64, snap aircraft.Snapshot) {
	s.Get(hex).Append(nowMs, snap)
}

// OverheadFilter wraps the overhead-intercept detector.
type OverheadFilter struct {
	cfg    detect.OverheadConfig
	stores *trajectoryStores
	count  int
}

func NewOverheadFilter(cfg detect.OverheadConfig, stores *trajectoryStores) *OverheadFilter {
	return &OverheadFilter{cfg: cfg, stores: stores}
}

func (f *OverheadFilter) ID() string       { return "overhead" }
func (f *OverheadFilter) Priority() int    { return 10 }
func (f *OverheadFilter) Stats() map[string]any { return map[string]any{"intercepts": f.count} }
func (f *OverheadFilter) Debug() string    { return fmt.Sprintf("overhead: %d intercepts this tick", f.count) }

func (f *OverheadFilter) Preprocess(tc detect.TickContext, ac *aircraft.Aircraft) error {
	store := f.stores.Get(ac.Hex)
	ac.Calculated.Overhead = detect.Overhead(tc.Observer.Lat, tc.Observer.Lon, tc.Observer.AltM, ac.Snapshot, store, f.cfg)
	return nil
}

func (f *OverheadFilter) Evaluate(tc detect.TickContext, ac *aircraft.Aircraft) ([]aircraft.Alert, error) {
	if !ac.Calculated.Overhead.HasIntercept {
		return nil, nil
	}
	f.count++
	return []aircraft.Alert{{
		Flight: ac.Snapshot.Flight,
		Text:   fmt.Sprintf("overhead intercept in %.0fs from %s", ac.Calculated.Overhead.OverheadSeconds, ac.Calculated.Overhead.ApproachCardinal),
		Warn:   false,
		Payload: ac.Calculated.Overhead,
	}}, nil
}

func (f *OverheadFilter) Postprocess(tc detect.TickContext, table map[string]*aircraft.Aircraft) ([]aircraft.Alert, error) {
	return nil, nil
}

func (f *OverheadFilter) Sort(alerts []aircraft.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Hex < alerts[j].Hex })
}

func (f *OverheadFilter) Format(a aircraft.Alert) string { return fmt.Sprintf("[OVERHEAD] %s: %s", a.Flight, a.Text) }

// AirportFilter wraps the airport-proximity/phase detector.
type AirportFilter struct {
	cfg    detect.AirportConfig
	idx    *refdata.AirportIndex
	stores *trajectoryStores
	post   *detect.AirportPostprocess
}

func NewAirportFilter(cfg detect.AirportConfig, idx *refdata.AirportIndex, stores *trajectoryStores) *AirportFilter {
	return &AirportFilter{cfg: cfg, idx: idx, stores: stores, post: detect.NewAirportPostprocess()}
}

func (f *AirportFilter) ID() string    { return "airport" }
func (f *AirportFilter) Priority() int { return 20 }
func (f *AirportFilter) Stats() map[string]any { return map[string]any{} }
func (f *AirportFilter) Debug() string { return "airport proximity/phase detector" }

func (f *AirportFilter) Preprocess(tc detect.TickContext, ac *aircraft.Aircraft) error {
	store := f.stores.Get(ac.Hex)
	ac.Calculated.AirportsNearby = detect.Airport(ac.Snapshot, store, f.idx, f.cfg)
	return nil
}

func (f *AirportFilter) Evaluate(tc detect.TickContext, ac *aircraft.Aircraft) ([]aircraft.Alert, error) {
	var out []aircraft.Alert
	for _, ea := range ac.Calculated.AirportsNearby {
		if ea.Phase == aircraft.PhaseNone && !ea.GoAround.Detected && !ea.MissedApproach.Detected && !ea.Holding.Detected {
			continue
		}
		text := string(ea.Phase)
		if ea.GoAround.Detected {
			text = "go_around"
		}
		if ea.MissedApproach.Detected {
			text = "missed_approach"
		}
		if ea.Holding.Detected {
			text = "holding"
		}
		out = append(out, aircraft.Alert{
			Flight: ac.Snapshot.Flight,
			SubKey: ea.ICAO,
			Text:   fmt.Sprintf("%s at %s (%.1fkm)", text, ea.ICAO, ea.DistanceKm),
			Payload: ea,
		})
	}
	return out, nil
}

func (f *AirportFilter) Postprocess(tc detect.TickContext, table map[string]*aircraft.Aircraft) ([]aircraft.Alert, error) {
	perAircraft := make(map[string][]aircraft.EnhancedAirport, len(table))
	for hex, ac := range table {
		perAircraft[hex] = ac.Calculated.AirportsNearby
	}
	insights := f.post.Process(perAircraft, f.cfg, timeFromTick(tc))
	out := make([]aircraft.Alert, 0, len(insights))
	for _, ins := range insights {
		out = append(out, aircraft.Alert{
			// Hex identifies the aggregate entity this insight is about
			// (a priority airport, not a tracked aircraft); SubKey
			// distinguishes the several insight types one airport can
			// raise in the same tick.
			Hex:     ins.AirportICAO,
			SubKey:  ins.Type,
			Text:    fmt.Sprintf("%s: %s on %s", ins.AirportICAO, ins.Type, ins.RunwayName),
			Warn:    ins.Severity == "warning",
			Payload: ins,
		})
	}
	return out, nil
}

func (f *AirportFilter) Sort(alerts []aircraft.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Hex < alerts[j].Hex })
}

func (f *AirportFilter) Format(a aircraft.Alert) string { return fmt.Sprintf("[AIRPORT] %s", a.Text) }

// AirproxFilter wraps the airprox risk detector. It reads
// AirportsNearby from the already-preprocessed airport filter (hence a
// higher priority number) so it can exclude traffic near an airport
// from its candidate set.
type AirproxFilter struct {
	cfg detect.AirproxConfig
}

func NewAirproxFilter(cfg detect.AirproxConfig) *AirproxFilter { return &AirproxFilter{cfg: cfg} }

func (f *AirproxFilter) ID() string    { return "airprox" }
func (f *AirproxFilter) Priority() int { return 30 }
func (f *AirproxFilter) Stats() map[string]any { return map[string]any{} }
func (f *AirproxFilter) Debug() string { return "airprox risk detector" }

func (f *AirproxFilter) Preprocess(tc detect.TickContext, ac *aircraft.Aircraft) error {
	return nil // evaluated against the full table in Evaluate's caller context isn't available; see engine note below
}

// Evaluate is a no-op here: airprox needs every other aircraft's
// snapshot, which Preprocess/Evaluate's per-aircraft signature doesn't
// provide. The real computation happens in Postprocess, which receives
// the full table; Evaluate exists only to satisfy the interface.
func (f *AirproxFilter) Evaluate(tc detect.TickContext, ac *aircraft.Aircraft) ([]aircraft.Alert, error) {
	return nil, nil
}

func (f *AirproxFilter) Postprocess(tc detect.TickContext, table map[string]*aircraft.Aircraft) ([]aircraft.Alert, error) {
	candidates := make([]detect.AirproxCandidate, 0, len(table))
	for hex, ac := range table {
		candidates = append(candidates, detect.AirproxCandidate{
			Hex: hex, Snapshot: ac.Snapshot, NearAirport: len(ac.Calculated.AirportsNearby) > 0,
		})
	}

	var out []aircraft.Alert
	for hex, ac := range table {
		result := detect.Airprox(hex, ac.Snapshot, candidates, f.cfg)
		ac.Calculated.Airprox = result
		if !result.HasAirprox {
			continue
		}
		out = append(out, aircraft.Alert{
			Hex: hex, Flight: ac.Snapshot.Flight,
			SubKey: result.OtherHex,
			Text: fmt.Sprintf("airprox category %s with %s (%.2fNM, %.0fft)", result.RiskCategory, result.OtherHex, result.HorizontalSepNM, result.VerticalSepFt),
			Warn: result.RiskCategory == aircraft.RiskCategoryA || result.RiskCategory == aircraft.RiskCategoryB,
			Payload: result,
		})
	}
	f.Sort(out)
	return out, nil
}

// riskCategoryRank orders airprox categories most to least severe: A is
// the tightest ICAO-inspired separation bucket, D the loosest.
var riskCategoryRank = map[aircraft.RiskCategory]int{
	aircraft.RiskCategoryA: 0,
	aircraft.RiskCategoryB: 1,
	aircraft.RiskCategoryC: 2,
	aircraft.RiskCategoryD: 3,
}

// Sort orders airprox alerts by category (A before D), then risk score
// descending, then horizontal separation ascending, then vertical
// separation ascending — the order an operator scans a conflict board
// in: tightest category first, then worst-first within a category.
func (f *AirproxFilter) Sort(alerts []aircraft.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, oki := alerts[i].Payload.(aircraft.AirproxResult)
		rj, okj := alerts[j].Payload.(aircraft.AirproxResult)
		if !oki || !okj {
			return alerts[i].Hex < alerts[j].Hex
		}
		ci, cj := riskCategoryRank[ri.RiskCategory], riskCategoryRank[rj.RiskCategory]
		if ci != cj {
			return ci < cj
		}
		if ri.RiskScore != rj.RiskScore {
			return ri.RiskScore > rj.RiskScore
		}
		if ri.HorizontalSepNM != rj.HorizontalSepNM {
			return ri.HorizontalSepNM < rj.HorizontalSepNM
		}
		return ri.VerticalSepFt < rj.VerticalSepFt
	})
}

func (f *AirproxFilter) Format(a aircraft.Alert) string { return fmt.Sprintf("[AIRPROX] %s", a.Text) }

// LoiterFilter wraps the loitering detector.
type LoiterFilter struct {
	cfg    detect.LoiteringConfig
	stores *trajectoryStores
}

func NewLoiterFilter(cfg detect.LoiteringConfig, stores *trajectoryStores) *LoiterFilter {
	return &LoiterFilter{cfg: cfg, stores: stores}
}

func (f *LoiterFilter) ID() string    { return "loiter" }
func (f *LoiterFilter) Priority() int { return 40 }
func (f *LoiterFilter) Stats() map[string]any { return map[string]any{} }
func (f *LoiterFilter) Debug() string { return "loitering detector" }

func (f *LoiterFilter) Preprocess(tc detect.TickContext, ac *aircraft.Aircraft) error {
	store := f.stores.Get(ac.Hex)
	ac.Calculated.Loitering = detect.Loiter(ac.Snapshot, store, f.cfg)
	return nil
}

func (f *LoiterFilter) Evaluate(tc detect.TickContext, ac *aircraft.Aircraft) ([]aircraft.Alert, error) {
	if !ac.Calculated.Loitering.IsLoitering {
		return nil, nil
	}
	return []aircraft.Alert{{
		Flight: ac.Snapshot.Flight,
		Text:   fmt.Sprintf("loitering (%s) for %.1f min", ac.Calculated.Loitering.Pattern, ac.Calculated.Loitering.DurationMin),
		Payload: ac.Calculated.Loitering,
	}}, nil
}

func (f *LoiterFilter) Postprocess(tc detect.TickContext, table map[string]*aircraft.Aircraft) ([]aircraft.Alert, error) {
	return nil, nil
}

func (f *LoiterFilter) Sort(alerts []aircraft.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Hex < alerts[j].Hex })
}

func (f *LoiterFilter) Format(a aircraft.Alert) string { return fmt.Sprintf("[LOITER] %s: %s", a.Flight, a.Text) }

// SquawkFilter wraps the squawk classifier.
type SquawkFilter struct {
	cfg   detect.SquawkConfig
	table *refdata.SquawkTable
}

func NewSquawkFilter(cfg detect.SquawkConfig, table *refdata.SquawkTable) *SquawkFilter {
	return &SquawkFilter{cfg: cfg, table: table}
}

func (f *SquawkFilter) ID() string    { return "squawk" }
func (f *SquawkFilter) Priority() int { return 50 }
func (f *SquawkFilter) Stats() map[string]any { return map[string]any{} }
func (f *SquawkFilter) Debug() string { return "squawk classifier" }

func (f *SquawkFilter) Preprocess(tc detect.TickContext, ac *aircraft.Aircraft) error {
	ac.Calculated.Squawk = detect.SquawkCheck(ac.Snapshot, f.table, f.cfg)
	return nil
}

func (f *SquawkFilter) Evaluate(tc detect.TickContext, ac *aircraft.Aircraft) ([]aircraft.Alert, error) {
	if !ac.Calculated.Squawk.IsInteresting {
		return nil, nil
	}
	highest := ac.Calculated.Squawk.HighestSeverity
	return []aircraft.Alert{{
		Flight:     ac.Snapshot.Flight,
		Text:       fmt.Sprintf("squawk %s (%s severity)", ac.Snapshot.Squawk, highest),
		Warn:       highest >= aircraft.SeverityMedium,
		Payload:    ac.Calculated.Squawk,
		Code:       string(ac.Snapshot.Squawk),
		DistanceKm: distanceToObserver(tc, ac.Snapshot),
	}}, nil
}

func (f *SquawkFilter) Postprocess(tc detect.TickContext, table map[string]*aircraft.Aircraft) ([]aircraft.Alert, error) {
	return nil, nil
}

// squawkCodePriority tiers this module's own recognized codes:
// hijack/radio-failure/emergency rank first, followed by the
// ground/display/aerobatics special-purpose codes, then the VFR/IFR
// conspicuity codes, with every other code ranked last.
func squawkCodePriority(code string) int {
	sq := aircraft.Squawk(code)
	switch {
	case aircraft.EmergencySquawks[sq]:
		return 1
	case sq == aircraft.SquawkGroundTest || sq == aircraft.SquawkDisplay || sq == aircraft.SquawkAerobatics:
		return 2
	case sq == aircraft.SquawkVFRConspicuity || sq == aircraft.SquawkIFRConspicuity:
		return 3
	default:
		return 4
	}
}

// squawkRangeTypePriority ranks range types in the order the reference
// table declares them, emergency/SAR/HEMS-style ranges first.
var squawkRangeTypePriority = map[aircraft.SquawkRangeType]int{
	aircraft.RangeEmergency:   0,
	aircraft.RangeSAR:         1,
	aircraft.RangeHEMS:        2,
	aircraft.RangePolice:      3,
	aircraft.RangeRoyal:       4,
	aircraft.RangeGovernment:  5,
	aircraft.RangeMilitary:    6,
	aircraft.RangeSpecial:     7,
	aircraft.RangeDangerArea:  8,
	aircraft.RangeDisplay:     9,
	aircraft.RangeHelicopter:  10,
	aircraft.RangeMonitoring:  11,
	aircraft.RangeConspicuity: 12,
	aircraft.RangeApproach:    13,
	aircraft.RangeTower:       14,
	aircraft.RangeRadar:       15,
	aircraft.RangeFIS:         16,
	aircraft.RangeService:     17,
	aircraft.RangeTraining:    18,
	aircraft.RangeUAS:         19,
	aircraft.RangeIFR:         20,
	aircraft.RangeDomestic:    21,
	aircraft.RangeTransit:     22,
	aircraft.RangeOffshore:    23,
	aircraft.RangeAssigned:    24,
	aircraft.RangeGround:      25,
}

// squawkMinTypePriority returns the best (lowest) range-type priority
// across every range the code matched, or a priority below the table's
// worst entry when there were no matches.
func squawkMinTypePriority(result aircraft.SquawkResult) int {
	best := len(squawkRangeTypePriority)
	for _, m := range result.Matches {
		if p, ok := squawkRangeTypePriority[m.Type]; ok && p < best {
			best = p
		}
	}
	return best
}

// Sort orders squawk alerts by highest severity first, then code
// priority, then the best-matching range type, then distance to the
// observer — the order an operator triages a squawk board in.
func (f *SquawkFilter) Sort(alerts []aircraft.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, oki := alerts[i].Payload.(aircraft.SquawkResult)
		rj, okj := alerts[j].Payload.(aircraft.SquawkResult)
		if !oki || !okj {
			return alerts[i].Hex < alerts[j].Hex
		}
		if ri.HighestSeverity != rj.HighestSeverity {
			return ri.HighestSeverity > rj.HighestSeverity
		}
		ci, cj := squawkCodePriority(alerts[i].Code), squawkCodePriority(alerts[j].Code)
		if ci != cj {
			return ci < cj
		}
		ti, tj := squawkMinTypePriority(ri), squawkMinTypePriority(rj)
		if ti != tj {
			return ti < tj
		}
		return alerts[i].DistanceKm < alerts[j].DistanceKm
	})
}

// distanceToObserver returns the aircraft's great-circle distance from
// the observer, or +Inf when its position isn't known — keeping
// position-less alerts sorted last rather than first.
func distanceToObserver(tc detect.TickContext, snap aircraft.Snapshot) float64 {
	if !snap.HasPos {
		return math.Inf(1)
	}
	return geo.Distance(tc.Observer.Lat, tc.Observer.Lon, snap.Lat, snap.Lon)
}

func (f *SquawkFilter) Format(a aircraft.Alert) string { return fmt.Sprintf("[SQUAWK] %s: %s", a.Flight, a.Text) }

// PerformanceFilter wraps the performance-envelope detector.
type PerformanceFilter struct {
	cfg detect.PerformanceConfig
}

func NewPerformanceFilter(cfg detect.PerformanceConfig) *PerformanceFilter {
	return &PerformanceFilter{cfg: cfg}
}

func (f *PerformanceFilter) ID() string    { return "performance" }
func (f *PerformanceFilter) Priority() int { return 60 }
func (f *PerformanceFilter) Stats() map[string]any { return map[string]any{} }
func (f *PerformanceFilter) Debug() string { return "performance envelope detector" }

func (f *PerformanceFilter) Preprocess(tc detect.TickContext, ac *aircraft.Aircraft) error {
	ac.Calculated.Performance = detect.Performance(ac.Snapshot, f.cfg)
	return nil
}

func (f *PerformanceFilter) Evaluate(tc detect.TickContext, ac *aircraft.Aircraft) ([]aircraft.Alert, error) {
	if len(ac.Calculated.Performance.Issues) == 0 {
		return nil, nil
	}
	var out []aircraft.Alert
	for _, issue := range ac.Calculated.Performance.Issues {
		out = append(out, aircraft.Alert{
			Flight: ac.Snapshot.Flight,
			SubKey: issue.Type,
			Text:   fmt.Sprintf("%s: expected %.0f, actual %.0f", issue.Type, issue.Expected, issue.Actual),
			Warn:   issue.Severity >= aircraft.SeverityMedium,
			Payload: issue,
		})
	}
	return out, nil
}

func (f *PerformanceFilter) Postprocess(tc detect.TickContext, table map[string]*aircraft.Aircraft) ([]aircraft.Alert, error) {
	return nil, nil
}

func (f *PerformanceFilter) Sort(alerts []aircraft.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Hex < alerts[j].Hex })
}

func (f *PerformanceFilter) Format(a aircraft.Alert) string { return fmt.Sprintf("[PERFORMANCE] %s: %s", a.Flight, a.Text) }

func timeFromTick(tc detect.TickContext) time.Time {
	return time.UnixMilli(tc.NowMs)
}
