package detect

import (
	"testing"
	"time"

	"adsb-tracker/internal/refdata"
	"adsb-tracker/internal/trajectory"
	"adsb-tracker/pkg/aircraft"
)

func testAirport() aircraft.Airport {
	return aircraft.Airport{
		ICAOCode: "EGLL", LatitudeDeg: 51.4775, LongitudeDeg: -0.4614,
		Type: aircraft.AirportLarge,
		Runways: []aircraft.Runway{
			{LEIdent: "09L", LEHeadingDegT: 89, HEIdent: "27R", HEHeadingDegT: 269},
		},
	}
}

// TestAirportDetectsGoAround mirrors spec scenario S2: an aircraft
// descends toward the runway threshold, bottoms out low, then climbs
// away rapidly.
func TestAirportDetectsGoAround(t *testing.T) {
	idx := refdata.NewAirportIndex([]aircraft.Airport{testAirport()})
	cfg := DefaultConfig().Airport
	cfg.RunwayAlignmentDistanceByCategory = nil

	store := trajectory.New(0)
	alts := []int{3000, 1500, 600, 300, 250, 900, 2200}
	var last aircraft.Snapshot
	for i, alt := range alts {
		a := alt
		snap := aircraft.Snapshot{
			HasPos: true, Lat: 51.4775 + float64(6-i)*0.01, Lon: -0.4614,
			Track: 89, GS: 140, AltBaro: &a, HasRate: true,
			BaroRate: rateFor(i, alts),
		}
		store.Append(int64(i)*15000, snap)
		last = snap
	}

	results := Airport(last, store, idx, cfg)
	if len(results) == 0 {
		t.Fatalf("expected at least one nearby airport result")
	}
	if !results[0].GoAround.Detected {
		t.Errorf("expected go-around to be detected, got %+v", results[0].GoAround)
	}
}

func rateFor(i int, alts []int) float64 {
	if i == 0 {
		return 0
	}
	return float64(alts[i]-alts[i-1]) / 0.25
}

func TestAirportPostprocessDetectsRunwayChange(t *testing.T) {
	cfg := DefaultConfig().Airport
	cfg.PriorityAirports = []string{"EGLL"}

	pp := NewAirportPostprocess()
	rwy09 := &aircraft.AlignedRunway{RunwayName: "09L", AlignmentScore: 0.9}
	rwy27 := &aircraft.AlignedRunway{RunwayName: "27R", AlignmentScore: 0.9}

	tick1 := map[string][]aircraft.EnhancedAirport{
		"A1": {{ICAO: "EGLL", AlignedRunway: rwy09}},
		"A2": {{ICAO: "EGLL", AlignedRunway: rwy09}},
	}
	insights := pp.Process(tick1, cfg, time.Unix(0, 0))
	for _, ins := range insights {
		if ins.Type == "runway_change" {
			t.Fatalf("should not detect a runway change on the first observation, got %+v", ins)
		}
	}

	tick2 := map[string][]aircraft.EnhancedAirport{
		"A1": {{ICAO: "EGLL", AlignedRunway: rwy27}},
	}
	insights = pp.Process(tick2, cfg, time.Unix(60, 0))
	found := false
	for _, ins := range insights {
		if ins.Type == "runway_change" {
			found = true
			if ins.ChangeType != "09L->27R" {
				t.Errorf("changeType = %q, want 09L->27R", ins.ChangeType)
			}
		}
	}
	if !found {
		t.Errorf("expected a runway_change insight after the dominant runway shifted")
	}
}
