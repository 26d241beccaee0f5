package detect

import (
	"testing"

	"adsb-tracker/pkg/aircraft"
)

func TestPerformanceDetectsExcessiveClimb(t *testing.T) {
	cfg := DefaultConfig().Performance
	alt := 10000
	snap := aircraft.Snapshot{
		Category: aircraft.CategoryA3,
		AltBaro:  &alt, HasRate: true, BaroRate: 6000, GS: 300,
	}

	result := Performance(snap, cfg)
	if result.Phase != "climb" {
		t.Fatalf("phase = %q, want climb", result.Phase)
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Type == "climb_rate_excessive" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a climb_rate_excessive issue, got %+v", result.Issues)
	}
}

func TestPerformanceWithinEnvelopeHasNoIssues(t *testing.T) {
	cfg := DefaultConfig().Performance
	alt := 35000
	snap := aircraft.Snapshot{
		Category: aircraft.CategoryA3,
		AltBaro:  &alt, HasRate: true, BaroRate: 0, GS: 430,
	}

	result := Performance(snap, cfg)
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues for nominal cruise, got %+v", result.Issues)
	}
}

func TestPerformanceGroundPhase(t *testing.T) {
	cfg := DefaultConfig().Performance
	alt := 0
	snap := aircraft.Snapshot{AltBaro: &alt, GS: 5}
	result := Performance(snap, cfg)
	if result.Phase != "ground" {
		t.Errorf("phase = %q, want ground", result.Phase)
	}
}
