package feed

import (
	"time"

	"adsb-tracker/pkg/aircraft"
	"adsb-tracker/pkg/models"
)

// snapshotFrom adapts one decoded SBS/Beast message into the immutable
// per-tick Snapshot the pipeline engine consumes. The wire formats this
// package decodes carry neither emergency category nor TCAS alert
// state, so those fields are left at their zero value here; a squawk
// filter still classifies on the raw code regardless.
func snapshotFrom(ac *models.Aircraft, now time.Time) aircraft.Snapshot {
	snap := aircraft.Snapshot{
		Hex:    ac.ICAO,
		Flight: ac.Callsign,
		Tick:   now,
	}

	if ac.Lat != nil && ac.Lon != nil {
		snap.HasPos = true
		snap.Lat = *ac.Lat
		snap.Lon = *ac.Lon
	}
	if !ac.LastSeen.IsZero() {
		snap.SeenPos = now.Sub(ac.LastSeen).Seconds()
	}
	if ac.Heading != nil {
		snap.Track = *ac.Heading
	}
	if ac.SpeedKt != nil {
		snap.GS = *ac.SpeedKt
	}
	if ac.VerticalRate != nil {
		snap.HasRate = true
		snap.BaroRate = float64(*ac.VerticalRate)
	}
	if ac.AltitudeFt != nil {
		alt := *ac.AltitudeFt
		snap.AltBaro = &alt
	}
	if ac.AltitudeGNSS != nil {
		alt := *ac.AltitudeGNSS
		snap.AltGeom = &alt
	}
	if ac.Squawk != "" {
		if sq, err := aircraft.ParseSquawk(ac.Squawk); err == nil {
			snap.Squawk = sq
		}
	}

	return snap
}
