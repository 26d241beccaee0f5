package detect

import (
	"math"
	"testing"

	"adsb-tracker/internal/trajectory"
	"adsb-tracker/pkg/aircraft"
)

// TestLoiterDetectsCircling mirrors spec scenario S3: an aircraft
// orbiting a fixed point at constant altitude and moderate speed,
// steadily turning through a full circle.
func TestLoiterDetectsCircling(t *testing.T) {
	cfg := DefaultConfig().Loitering
	cfg.MinTrajectoryPoints = 8

	store := trajectory.New(0)
	centerLat, centerLon := 51.0, -1.0
	radiusDeg := 0.01
	alt := 2000

	var last aircraft.Snapshot
	for i := 0; i < 12; i++ {
		angle := float64(i) * (360.0 / 12.0)
		rad := angle * math.Pi / 180.0
		lat := centerLat + radiusDeg*math.Cos(rad)
		lon := centerLon + radiusDeg*math.Sin(rad)
		track := math.Mod(angle+90, 360)
		snap := aircraft.Snapshot{
			HasPos: true, Lat: lat, Lon: lon,
			Track: track, GS: 80, AltBaro: &alt,
			Category: aircraft.CategoryA7,
		}
		store.Append(int64(i)*10000, snap)
		last = snap
	}

	result := Loiter(last, store, cfg)
	if !result.IsLoitering {
		t.Fatalf("expected loitering to be detected, got %+v", result)
	}
	if result.Pattern != "circling" {
		t.Errorf("pattern = %q, want circling", result.Pattern)
	}
}

func TestLoiterRejectsStraightFlight(t *testing.T) {
	cfg := DefaultConfig().Loitering
	cfg.MinTrajectoryPoints = 8

	store := trajectory.New(0)
	alt := 5000
	var last aircraft.Snapshot
	for i := 0; i < 10; i++ {
		snap := aircraft.Snapshot{
			HasPos: true, Lat: 51.0 + float64(i)*0.05, Lon: -1.0,
			Track: 0, GS: 120, AltBaro: &alt,
		}
		store.Append(int64(i)*10000, snap)
		last = snap
	}

	result := Loiter(last, store, cfg)
	if result.IsLoitering {
		t.Errorf("straight-line flight should not be flagged loitering, got %+v", result)
	}
}

func TestLoiterRejectsFastAircraft(t *testing.T) {
	cfg := DefaultConfig().Loitering
	alt := 3000
	snap := aircraft.Snapshot{HasPos: true, Lat: 51, Lon: -1, Track: 10, GS: 400, AltBaro: &alt}
	store := trajectory.New(0)
	store.Append(0, snap)

	result := Loiter(snap, store, cfg)
	if result.IsLoitering {
		t.Errorf("a fast-moving aircraft should fail the groundspeed gate")
	}
}
