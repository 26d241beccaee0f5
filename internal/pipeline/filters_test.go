package pipeline

import (
	"testing"

	"adsb-tracker/internal/detect"
	"adsb-tracker/internal/refdata"
	"adsb-tracker/pkg/aircraft"
)

// TestSquawkFilterRaisesEmergencyAlert exercises the real squawk
// detector through the engine: a 7700 squawk must surface as an
// inserted alert on the first tick that reports it.
func TestSquawkFilterRaisesEmergencyAlert(t *testing.T) {
	table := refdata.NewSquawkTable(nil)
	f := NewSquawkFilter(detect.SquawkConfig{}, table)
	e := NewEngine([]Filter{f}, nil)

	snaps := map[string]aircraft.Snapshot{
		"ABC123": {Hex: "ABC123", Flight: "TST123", Squawk: aircraft.SquawkEmergency},
	}

	r := e.Tick(detect.TickContext{}, snaps)
	if len(r.Inserted) != 1 {
		t.Fatalf("expected 1 inserted alert for an emergency squawk, got %d", len(r.Inserted))
	}
	if r.Inserted[0].Type != "squawk" {
		t.Fatalf("expected alert type 'squawk', got %q", r.Inserted[0].Type)
	}
	if !r.Inserted[0].Warn {
		t.Fatalf("expected an emergency squawk alert to be flagged Warn")
	}
}

// TestSquawkFilterWatchlistMatch exercises the configured-watchlist path.
func TestSquawkFilterWatchlistMatch(t *testing.T) {
	table := refdata.NewSquawkTable(nil)
	cfg := detect.SquawkConfig{Watchlist: []string{"1234"}}
	f := NewSquawkFilter(cfg, table)
	e := NewEngine([]Filter{f}, nil)

	snaps := map[string]aircraft.Snapshot{
		"DEF456": {Hex: "DEF456", Squawk: aircraft.Squawk("1234")},
	}

	r := e.Tick(detect.TickContext{}, snaps)
	if len(r.Inserted) != 1 {
		t.Fatalf("expected 1 inserted alert for a watchlisted squawk, got %d", len(r.Inserted))
	}
}

// TestPerformanceFilterFlagsExcessiveClimb exercises the performance
// envelope detector through the engine with an implausible climb rate.
func TestPerformanceFilterFlagsExcessiveClimb(t *testing.T) {
	f := NewPerformanceFilter(detect.DefaultConfig().Performance)
	e := NewEngine([]Filter{f}, nil)

	alt := 10000
	snaps := map[string]aircraft.Snapshot{
		"GHI789": {Hex: "GHI789", Flight: "TST789", AltBaro: &alt, BaroRate: 20000, HasRate: true, GS: 250},
	}

	r := e.Tick(detect.TickContext{}, snaps)
	if len(r.Inserted) == 0 {
		t.Fatalf("expected an implausible climb rate to raise a performance alert")
	}
}

// TestSquawkFilterSortOrdersBySeverityThenCodeThenDistance exercises
// the squawk sort comparator directly: highest severity first, then
// code priority, then distance to observer, breaking ties in that
// order.
func TestSquawkFilterSortOrdersBySeverityThenCodeThenDistance(t *testing.T) {
	f := NewSquawkFilter(detect.SquawkConfig{}, nil)

	alerts := []aircraft.Alert{
		{Hex: "low-sev", Code: "7700", DistanceKm: 1, Payload: aircraft.SquawkResult{HighestSeverity: aircraft.SeverityLow}},
		{Hex: "emergency-far", Code: "7700", DistanceKm: 50, Payload: aircraft.SquawkResult{HighestSeverity: aircraft.SeverityHigh}},
		{Hex: "emergency-near", Code: "7700", DistanceKm: 5, Payload: aircraft.SquawkResult{HighestSeverity: aircraft.SeverityHigh}},
		{Hex: "watchlist", Code: "1234", DistanceKm: 1, Payload: aircraft.SquawkResult{HighestSeverity: aircraft.SeverityMedium}},
	}

	f.Sort(alerts)

	want := []string{"emergency-near", "emergency-far", "watchlist", "low-sev"}
	for i, hex := range want {
		if alerts[i].Hex != hex {
			t.Fatalf("position %d: got %q, want %q (full order %v)", i, alerts[i].Hex, hex, alertHexes(alerts))
		}
	}
}

// TestAirproxFilterSortOrdersByCategoryThenScoreThenSeparation exercises
// the airprox sort comparator directly.
func TestAirproxFilterSortOrdersByCategoryThenScoreThenSeparation(t *testing.T) {
	f := NewAirproxFilter(detect.AirproxConfig{})

	alerts := []aircraft.Alert{
		{Hex: "cat-d", Payload: aircraft.AirproxResult{RiskCategory: aircraft.RiskCategoryD, RiskScore: 1.0, HorizontalSepNM: 4, VerticalSepFt: 1800}},
		{Hex: "cat-a-low-score", Payload: aircraft.AirproxResult{RiskCategory: aircraft.RiskCategoryA, RiskScore: 3.6, HorizontalSepNM: 0.2, VerticalSepFt: 400}},
		{Hex: "cat-a-high-score", Payload: aircraft.AirproxResult{RiskCategory: aircraft.RiskCategoryA, RiskScore: 4.0, HorizontalSepNM: 0.1, VerticalSepFt: 200}},
		{Hex: "cat-b", Payload: aircraft.AirproxResult{RiskCategory: aircraft.RiskCategoryB, RiskScore: 2.8, HorizontalSepNM: 0.4, VerticalSepFt: 500}},
	}

	f.Sort(alerts)

	want := []string{"cat-a-high-score", "cat-a-low-score", "cat-b", "cat-d"}
	for i, hex := range want {
		if alerts[i].Hex != hex {
			t.Fatalf("position %d: got %q, want %q (full order %v)", i, alerts[i].Hex, hex, alertHexes(alerts))
		}
	}
}

func alertHexes(alerts []aircraft.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Hex
	}
	return out
}

// TestOverheadAirportLoiterFiltersRunWithoutPanicking exercises the
// remaining trajectory-backed detectors (overhead, airport, loiter)
// wired through the engine with a real trajectoryStores instance,
// confirming the three-phase contract holds even when no alert fires.
func TestOverheadAirportLoiterFiltersRunWithoutPanicking(t *testing.T) {
	stores := NewTrajectoryStores()
	idx := refdata.NewAirportIndex(nil)
	cfg := detect.DefaultConfig()

	filters := []Filter{
		NewOverheadFilter(cfg.Overhead, stores),
		NewAirportFilter(cfg.Airport, idx, stores),
		NewAirproxFilter(cfg.Airprox),
		NewLoiterFilter(cfg.Loitering, stores),
	}
	e := NewEngine(filters, stores)

	snaps := map[string]aircraft.Snapshot{
		"JKL012": {Hex: "JKL012", Flight: "TST012", Lat: 51.5, Lon: -0.1, HasPos: true, GS: 120, Track: 90},
	}

	for i := 0; i < 3; i++ {
		r := e.Tick(detect.TickContext{NowMs: int64(i) * 1000}, snaps)
		if len(r.Faults) != 0 {
			t.Fatalf("tick %d: expected no filter faults, got %+v", i, r.Faults)
		}
	}
}
