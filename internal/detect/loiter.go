package detect

import (
	"math"

	"adsb-tracker/internal/geo"
	"adsb-tracker/internal/stats"
	"adsb-tracker/internal/trajectory"
	"adsb-tracker/pkg/aircraft"
)

// Loiter evaluates the loitering detector: a four-stage
// pipeline of quick field filters, a bounding-box pre-check, pattern
// detection (circling, reversing, hovering) over recent positions, and
// a weighted score against the configured threshold.
func Loiter(snap aircraft.Snapshot, store *trajectory.Store, cfg LoiteringConfig) aircraft.LoiteringResult {
	result := aircraft.LoiteringResult{}
	if !snap.HasPos || snap.AltBaro == nil {
		return result
	}

	if float64(*snap.AltBaro) > cfg.MaxAltitudeFt {
		return result
	}
	if snap.GS < cfg.MinGS || snap.GS > cfg.MaxGS {
		return result
	}

	opts := trajectory.Options{TimeWindowMs: cfg.WindowMs, MinDataPoints: cfg.MinTrajectoryPoints}
	positions := store.Positions(opts)
	if len(positions) < cfg.MinTrajectoryPoints {
		return result
	}

	minLat, maxLat := positions[0].Lat, positions[0].Lat
	minLon, maxLon := positions[0].Lon, positions[0].Lon
	for _, p := range positions {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}

	durationMin := 0.0
	if n := len(positions); n >= 2 {
		durationMin = float64(positions[n-1].Timestamp-positions[0].Timestamp) / 60000.0
	}
	// A transiting aircraft covers roughly ExpectedTransitKmPerMin per
	// minute; a loitering one stays within a bounding box far smaller
	// than that over the same elapsed window. Normalizing against the
	// window actually retrieved (rather than a fixed distance) keeps
	// the check meaningful at any WindowMs.
	expectedDistanceKm := durationMin * cfg.ExpectedTransitKmPerMin
	if expectedDistanceKm <= 0 {
		expectedDistanceKm = cfg.ExpectedTransitKmPerMin
	}

	bboxDiagKm := geo.Distance(minLat, minLon, maxLat, maxLon)
	if bboxDiagKm > expectedDistanceKm {
		return result
	}

	centerLat := (minLat + maxLat) / 2
	centerLon := (minLon + maxLon) / 2
	var maxRadiusKm float64
	for _, p := range positions {
		d := geo.Distance(centerLat, centerLon, p.Lat, p.Lon)
		if d > maxRadiusKm {
			maxRadiusKm = d
		}
	}

	bboxScore := 1.0 - math.Min(1.0, bboxDiagKm/expectedDistanceKm)

	pattern, patternConfidence := classifyLoiterPattern(positions, maxRadiusKm)

	altitudeValues := make([]float64, 0, len(positions))
	altitudeTimestamps := make([]int64, 0, len(positions))
	for _, p := range positions {
		if p.AltBaro != nil {
			altitudeValues = append(altitudeValues, float64(*p.AltBaro))
			altitudeTimestamps = append(altitudeTimestamps, p.Timestamp)
		}
	}
	altSummary := stats.Describe(altitudeValues, altitudeTimestamps)
	altitudeConsistency := 1.0
	if altSummary.Avg != 0 {
		altitudeConsistency = 1.0 - math.Min(1.0, altSummary.StdDev/math.Max(1, math.Abs(altSummary.Avg)))
	}

	categoryBonus := 0.0
	switch snap.Category {
	case aircraft.CategoryA7, aircraft.CategoryB6:
		categoryBonus = cfg.CategoryWeight
	}

	score := cfg.BBoxWeight*bboxScore + cfg.PatternWeight*patternConfidence + cfg.AltitudeWeight*altitudeConsistency + categoryBonus
	score = math.Min(1.0, score)

	result.Pattern = pattern
	result.CenterLat = centerLat
	result.CenterLon = centerLon
	result.RadiusKm = maxRadiusKm
	result.DurationMin = durationMin
	result.BBoxScore = bboxScore
	result.PatternConfidence = patternConfidence
	result.AltitudeConsistency = altitudeConsistency
	result.CategoryBonus = categoryBonus
	result.Score = score
	result.IsLoitering = score >= cfg.ScoreThreshold && pattern != ""

	return result
}

// classifyLoiterPattern distinguishes circling (a consistent cumulative
// turn, positive or negative, summing past 270 degrees), reversing
// (track oscillates back and forth without completing a turn), and
// hovering (no fix farther than 0.3 km from the pattern centre).
func classifyLoiterPattern(positions []trajectory.PositionSample, maxRadiusKm float64) (string, float64) {
	if maxRadiusKm < 0.3 {
		return "hovering", 0.9
	}

	var cumulativeTurn float64
	var reversalCount int
	var lastDelta float64
	haveLast := false

	for i := 1; i < len(positions); i++ {
		a, b := positions[i-1], positions[i]
		if a.Track == nil || b.Track == nil {
			continue
		}
		delta := angleDiffDeg(*b.Track, *a.Track)
		cumulativeTurn += delta
		if haveLast && delta*lastDelta < 0 && math.Abs(delta) > 10 {
			reversalCount++
		}
		lastDelta = delta
		haveLast = true
	}

	if math.Abs(cumulativeTurn) >= 270 {
		confidence := math.Min(1.0, math.Abs(cumulativeTurn)/720.0+0.5)
		return "circling", confidence
	}
	if reversalCount >= 2 {
		confidence := math.Min(1.0, float64(reversalCount)/5.0+0.4)
		return "reversing", confidence
	}
	return "", 0
}
