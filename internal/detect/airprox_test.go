package detect

import (
	"testing"

	"adsb-tracker/pkg/aircraft"
)

// TestAirproxCloseConverging mirrors spec scenario S4: two aircraft
// closing nearly head-on at the same altitude within a nautical mile.
func TestAirproxCloseConverging(t *testing.T) {
	cfg := DefaultConfig().Airprox

	alt := 8000
	self := aircraft.Snapshot{
		HasPos: true, Lat: 51.50, Lon: -0.10,
		Track: 90, GS: 250, AltBaro: &alt,
	}
	other := aircraft.Snapshot{
		HasPos: true, Lat: 51.501, Lon: -0.095,
		Track: 270, GS: 250, AltBaro: &alt,
	}

	candidates := []AirproxCandidate{{Hex: "OTHER", Snapshot: other}}
	result := Airprox("SELF", self, candidates, cfg)

	if !result.HasAirprox {
		t.Fatalf("expected an airprox condition, got %+v", result)
	}
	if result.RiskCategory == "" {
		t.Errorf("expected a risk category to be assigned")
	}
	if result.Classification != aircraft.ClosureHeadOn && result.Classification != aircraft.ClosureConverging {
		t.Errorf("classification = %v, want head-on or converging", result.Classification)
	}
}

func TestAirproxSkipsStaleAndNearAirport(t *testing.T) {
	cfg := DefaultConfig().Airprox

	alt := 8000
	self := aircraft.Snapshot{HasPos: true, Lat: 51.5, Lon: -0.1, Track: 90, GS: 200, AltBaro: &alt}
	stale := aircraft.Snapshot{HasPos: true, Lat: 51.501, Lon: -0.09, Track: 270, GS: 200, AltBaro: &alt, SeenPos: 60}
	nearAirport := aircraft.Snapshot{HasPos: true, Lat: 51.501, Lon: -0.09, Track: 270, GS: 200, AltBaro: &alt}

	candidates := []AirproxCandidate{
		{Hex: "STALE", Snapshot: stale},
		{Hex: "ATAIRPORT", Snapshot: nearAirport, NearAirport: true},
	}
	result := Airprox("SELF", self, candidates, cfg)
	if result.HasAirprox {
		t.Errorf("expected no airprox once stale/near-airport candidates are excluded, got %+v", result)
	}
}

func TestAirproxSkipsFormation(t *testing.T) {
	cfg := DefaultConfig().Airprox
	alt := 8000
	alt2 := 8050
	self := aircraft.Snapshot{HasPos: true, Lat: 51.5, Lon: -0.1, Track: 90, GS: 200, AltBaro: &alt}
	wingman := aircraft.Snapshot{HasPos: true, Lat: 51.501, Lon: -0.095, Track: 91, GS: 205, AltBaro: &alt2}

	candidates := []AirproxCandidate{{Hex: "WINGMAN", Snapshot: wingman}}
	result := Airprox("SELF", self, candidates, cfg)
	if result.HasAirprox {
		t.Errorf("formation-pattern traffic should be skipped, got %+v", result)
	}
}

func TestAirproxIgnoresSelf(t *testing.T) {
	cfg := DefaultConfig().Airprox
	alt := 8000
	self := aircraft.Snapshot{HasPos: true, Lat: 51.5, Lon: -0.1, Track: 90, GS: 200, AltBaro: &alt}
	candidates := []AirproxCandidate{{Hex: "SELF", Snapshot: self}}
	result := Airprox("SELF", self, candidates, cfg)
	if result.HasAirprox {
		t.Errorf("self must never be matched against itself, got %+v", result)
	}
}
