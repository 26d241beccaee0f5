package detect

import (
	"testing"

	"adsb-tracker/internal/trajectory"
	"adsb-tracker/pkg/aircraft"
)

// TestOverheadIntercept mirrors spec scenario S1: observer at
// (51.501126, -0.14239), aircraft west of the observer tracking due
// east at 300 kt, level at 8000 ft.
func TestOverheadIntercept(t *testing.T) {
	cfg := DefaultConfig().Overhead
	cfg.RadiusKm = 10
	cfg.TimeLimitS = 3600
	cfg.AltitudeLimitFt = 20000
	cfg.DistanceLimitKm = 100

	alt := 8000
	snap := aircraft.Snapshot{
		Hex: "ABC123", HasPos: true,
		Lat: 51.45, Lon: -0.30,
		Track: 90, GS: 300,
		AltBaro: &alt, HasRate: true, BaroRate: 0,
	}

	store := trajectory.New(0)
	store.Append(0, snap)

	result := Overhead(51.501126, -0.14239, 15, snap, store, cfg)

	if !result.HasIntercept {
		t.Fatalf("expected overhead intercept, got %+v", result)
	}
	if !result.OverheadFuture {
		t.Errorf("expected overheadFuture=true")
	}
	if result.OverheadSeconds <= 0 {
		t.Errorf("expected positive overheadSeconds, got %v", result.OverheadSeconds)
	}
	if result.ApproachCardinal != "W" && result.ApproachCardinal != "WSW" {
		t.Errorf("approachCardinal = %v, want W or WSW", result.ApproachCardinal)
	}
}

// TestOverheadFutureApproachingInvariant exercises spec invariant 7:
// overheadFuture must agree with the cross-track "approaching" sense.
func TestOverheadFutureApproachingInvariant(t *testing.T) {
	cfg := DefaultConfig().Overhead
	alt := 5000
	approaching := aircraft.Snapshot{
		HasPos: true, Lat: 51.0, Lon: -1.0, Track: 45, GS: 200, AltBaro: &alt,
	}
	receding := aircraft.Snapshot{
		HasPos: true, Lat: 51.0, Lon: -1.0, Track: 225, GS: 200, AltBaro: &alt,
	}

	store := trajectory.New(0)
	store.Append(0, approaching)
	ra := Overhead(51.5, -0.5, 15, approaching, store, cfg)
	if !ra.OverheadFuture {
		t.Errorf("approaching case should report overheadFuture=true")
	}

	store2 := trajectory.New(0)
	store2.Append(0, receding)
	rr := Overhead(51.5, -0.5, 15, receding, store2, cfg)
	if rr.OverheadFuture {
		t.Errorf("receding case should report overheadFuture=false")
	}
}

func TestOverheadGateRejectsFarAircraft(t *testing.T) {
	cfg := DefaultConfig().Overhead
	alt := 8000
	snap := aircraft.Snapshot{
		HasPos: true, Lat: -10, Lon: -50, Track: 90, GS: 300, AltBaro: &alt,
	}
	store := trajectory.New(0)
	store.Append(0, snap)
	result := Overhead(51.5, -0.1, 15, snap, store, cfg)
	if result.HasIntercept {
		t.Errorf("far aircraft should not trigger an intercept")
	}
}
