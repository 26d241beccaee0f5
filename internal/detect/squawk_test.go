package detect

import (
	"testing"

	"adsb-tracker/internal/refdata"
	"adsb-tracker/pkg/aircraft"
)

// TestSquawkEmergencyCode mirrors spec scenario S5: an aircraft
// squawking 7700 must be classified as interesting with a high-severity
// emergency anomaly, regardless of the reference table's contents.
func TestSquawkEmergencyCode(t *testing.T) {
	table := refdata.NewSquawkTable(nil)
	snap := aircraft.Snapshot{Squawk: aircraft.SquawkEmergency}

	result := SquawkCheck(snap, table, DefaultConfig().Squawk)
	if !result.IsInteresting {
		t.Fatalf("expected emergency squawk to be interesting")
	}
	if result.HighestSeverity != aircraft.SeverityHigh {
		t.Errorf("highest severity = %v, want high", result.HighestSeverity)
	}
	found := false
	for _, a := range result.Anomalies {
		if a.Type == "emergency_squawk" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an emergency_squawk anomaly, got %+v", result.Anomalies)
	}
}

// TestSquawkEmergencyStableFlight mirrors spec scenario S5: a 7700
// squawk held during level, non-maneuvering flight must raise both
// emergency_squawk and emergency_squawk_stable_flight.
func TestSquawkEmergencyStableFlight(t *testing.T) {
	table := refdata.NewSquawkTable(nil)
	trackRate := 1.0
	snap := aircraft.Snapshot{
		Squawk:    aircraft.SquawkEmergency,
		BaroRate:  100,
		HasRate:   true,
		TrackRate: &trackRate,
	}

	result := SquawkCheck(snap, table, DefaultConfig().Squawk)
	var gotEmergency, gotStable bool
	for _, a := range result.Anomalies {
		switch a.Type {
		case "emergency_squawk":
			gotEmergency = true
		case "emergency_squawk_stable_flight":
			gotStable = true
		}
	}
	if !gotEmergency || !gotStable {
		t.Fatalf("expected emergency_squawk and emergency_squawk_stable_flight to co-fire, got %+v", result.Anomalies)
	}
}

func TestSquawkUnflaggedEmergency(t *testing.T) {
	table := refdata.NewSquawkTable(nil)
	snap := aircraft.Snapshot{Squawk: aircraft.MustSquawk("1234"), Emergency: true}

	result := SquawkCheck(snap, table, DefaultConfig().Squawk)
	if len(result.Anomalies) != 1 || result.Anomalies[0].Type != "unflagged_emergency" {
		t.Fatalf("expected exactly one unflagged_emergency anomaly, got %+v", result.Anomalies)
	}
}

func TestSquawkWatchlistMatch(t *testing.T) {
	table := refdata.NewSquawkTable(nil)
	cfg := SquawkConfig{Watchlist: []string{"4321"}}
	snap := aircraft.Snapshot{Squawk: aircraft.MustSquawk("4321")}

	result := SquawkCheck(snap, table, cfg)
	if !result.IsInteresting {
		t.Fatalf("watchlisted squawk should be interesting")
	}
}

func TestSquawkNoneWhenEmpty(t *testing.T) {
	table := refdata.NewSquawkTable(nil)
	result := SquawkCheck(aircraft.Snapshot{}, table, DefaultConfig().Squawk)
	if result.IsInteresting {
		t.Errorf("an aircraft with no squawk reported should never be interesting")
	}
}
