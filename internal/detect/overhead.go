package detect

import (
	"math"

	"adsb-tracker/internal/geo"
	"adsb-tracker/internal/trajectory"
	"adsb-tracker/pkg/aircraft"
)

// Overhead computes the overhead-intercept detector's result (spec
// whether the aircraft's projected ground track passes near the
// observer, and if so when, at what projected altitude, and from which
// approach bearing.
func Overhead(observerLat, observerLon, observerAltM float64, snap aircraft.Snapshot, store *trajectory.Store, cfg OverheadConfig) aircraft.OverheadResult {
	result := aircraft.OverheadResult{HasIntercept: false}
	if !snap.HasPos {
		return result
	}

	ct := geo.CrossTrack(observerLat, observerLon, snap.Lat, snap.Lon, snap.Track)
	currentDistanceKm := geo.Distance(observerLat, observerLon, snap.Lat, snap.Lon)

	gsKmPerS := geo.KnotsToMetersPerSecond(snap.GS).Value / 1000.0
	var overheadSeconds float64
	if gsKmPerS > 1e-9 {
		overheadSeconds = ct.AlongKm / gsKmPerS
	}
	if !ct.IsApproaching {
		overheadSeconds = -overheadSeconds
	}
	overheadFuture := ct.IsApproaching

	currentAlt := 0.0
	if snap.AltBaro != nil {
		currentAlt = float64(*snap.AltBaro)
	}
	projectedAlt := currentAlt
	if overheadFuture && snap.HasRate {
		projectedAlt = currentAlt + (snap.BaroRate/60.0)*overheadSeconds
	}
	if projectedAlt < 0 {
		projectedAlt = 0
	}

	approachBearing := snap.Track + 90
	if ct.CrossKm < 0 {
		approachBearing = snap.Track - 90
	}
	approachBearing = math.Mod(approachBearing+360, 360)

	relativeAltFt := projectedAlt - geo.MetersToFeet(observerAltM).Value
	slantRangeKm := geo.SlantRange(currentDistanceKm, relativeAltFt)
	verticalAngle := geo.VerticalAngle(currentDistanceKm, relativeAltFt, observerLat)

	result.CrossTrackKm = ct.CrossKm
	result.AlongTrackKm = ct.AlongKm
	result.OverheadSeconds = overheadSeconds
	result.OverheadFuture = overheadFuture
	result.ProjectedAltFt = projectedAlt
	result.ApproachBearing = approachBearing
	result.ApproachCardinal = geo.BearingToCardinal(approachBearing)
	result.SlantRangeKm = slantRangeKm
	result.VerticalAngleDeg = verticalAngle

	gate := math.Abs(ct.CrossKm) < cfg.RadiusKm &&
		math.Abs(overheadSeconds) < cfg.TimeLimitS &&
		projectedAlt < cfg.AltitudeLimitFt &&
		currentDistanceKm < cfg.DistanceLimitKm

	if !gate {
		return result
	}

	result.HasIntercept = true
	result.Confidence = overheadConfidence(store, snap)
	return result
}

// overheadConfidence refines the initial confidence of 1.0 downward
// using trajectory stability: a stable track, converging cross-track
// over the last ~5 positions, and a consistent altitude trend each
// multiply confidence by a documented factor.
func overheadConfidence(store *trajectory.Store, snap aircraft.Snapshot) float64 {
	confidence := 1.0
	if store == nil {
		return confidence
	}

	trackStable := store.IsFieldStable("track", trajectory.FieldTrack, trajectory.StabilityOptions{
		Options:         trajectory.Options{MaxDataPoints: 5},
		StdDevThreshold: 5,
		MinDataPoints:   3,
	})
	if !trackStable {
		confidence *= 0.7
	}

	positions := store.Positions(trajectory.Options{MaxDataPoints: 5})
	if len(positions) >= 3 && !crossTrackConverging(positions, snap) {
		confidence *= 0.6
	}

	altStable := store.IsFieldStable("alt", trajectory.FieldAltBaro, trajectory.StabilityOptions{
		Options:         trajectory.Options{MaxDataPoints: 5},
		StdDevThreshold: 300,
		MinDataPoints:   3,
	})
	if !altStable {
		confidence *= 0.8
	}

	return confidence
}

func crossTrackConverging(positions []trajectory.PositionSample, snap aircraft.Snapshot) bool {
	if len(positions) < 2 {
		return true
	}
	first := positions[0]
	last := positions[len(positions)-1]
	dFirst := geo.Distance(first.Lat, first.Lon, snap.Lat, snap.Lon)
	dLast := geo.Distance(last.Lat, last.Lon, snap.Lat, snap.Lon)
	return dLast <= dFirst
}
