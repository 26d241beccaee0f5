package detect

import (
	"math"

	"adsb-tracker/internal/geo"
	"adsb-tracker/pkg/aircraft"
)

// AirproxCandidate is another tracked aircraft considered as a possible
// conflict for the subject aircraft.
type AirproxCandidate struct {
	Hex          string
	Snapshot     aircraft.Snapshot
	NearAirport  bool // flagged near an airport by the proximity detector this tick
}

// riskThreshold is one row of the ICAO-inspired category table.
type riskThreshold struct {
	category        aircraft.RiskCategory
	horizontalNM    float64
	verticalFt      float64
	baseScore       float64
}

var riskThresholds = []riskThreshold{
	{aircraft.RiskCategoryA, 0.25, 500, 4},
	{aircraft.RiskCategoryB, 0.50, 500, 3},
	{aircraft.RiskCategoryC, 1.00, 1000, 2},
	{aircraft.RiskCategoryD, 5.00, 2000, 1},
}

// Airprox evaluates the subject against every candidate and reports the
// closest one inside the box set by the configured horizontal threshold;
// the vertical threshold is not applied when choosing it. Unless self
// has a TCAS resolution/advisory alert, candidates with a stale
// position, candidates flagged NearAirport and likely formation
// partners are skipped. Whether self itself is near an airport is not
// checked here.
func Airprox(selfHex string, self aircraft.Snapshot, candidates []AirproxCandidate, cfg AirproxConfig) aircraft.AirproxResult {
	result := aircraft.AirproxResult{HasAirprox: false}
	if !self.HasPos || self.AltBaro == nil {
		return result
	}

	hasTCAS := self.Alert == aircraft.AlertAdvisory || self.Alert == aircraft.AlertResolution

	latPad := cfg.HorizontalThresholdNM * 1.852 / 111.0
	lonPad := latPad / math.Max(0.1, math.Cos(self.Lat*math.Pi/180))

	var best *AirproxCandidate
	var bestHorizNM float64 = math.Inf(1)

	for i := range candidates {
		c := candidates[i]
		if c.Hex == selfHex {
			continue
		}
		if !c.Snapshot.HasPos || c.Snapshot.AltBaro == nil {
			continue
		}
		if !hasTCAS {
			if c.Snapshot.SeenPos > cfg.StalePositionS {
				continue
			}
			if c.NearAirport {
				continue
			}
			if cfg.AllowFormationSkip && looksLikeFormation(self, c.Snapshot) {
				continue
			}
		}

		if c.Snapshot.Lat < self.Lat-latPad || c.Snapshot.Lat > self.Lat+latPad ||
			c.Snapshot.Lon < self.Lon-lonPad || c.Snapshot.Lon > self.Lon+lonPad {
			continue
		}

		horizKm := geo.Distance(self.Lat, self.Lon, c.Snapshot.Lat, c.Snapshot.Lon)
		horizNM := geo.KmToNM(horizKm).Value
		if horizNM < bestHorizNM {
			bestHorizNM = horizNM
			cc := c
			best = &cc
		}
	}

	if best == nil {
		return result
	}

	vertSepFt := math.Abs(float64(*self.AltBaro - *best.Snapshot.AltBaro))
	bearing := geo.Bearing(self.Lat, self.Lon, best.Snapshot.Lat, best.Snapshot.Lon)
	closure := geo.ClosureGeometryOf(self.Track, self.GS, best.Snapshot.Track, best.Snapshot.GS, bearing, bestHorizNM)

	category, score := classifyRisk(bestHorizNM, vertSepFt, closure.ClosureVelocityKt, self, best.Snapshot, hasTCAS, cfg)

	result.HasAirprox = category != ""
	result.OtherHex = best.Hex
	result.HorizontalSepNM = bestHorizNM
	result.VerticalSepFt = vertSepFt
	result.ClosureVelocityKt = closure.ClosureVelocityKt
	result.TimeToClosestApproachS = closure.TimeToClosestApproachS
	result.RiskCategory = category
	result.RiskScore = score
	result.Classification = aircraft.ClosureClass(closure.Classification)
	result.IsConverging = closure.Classification == "converging" || closure.Classification == "head-on" || closure.Classification == "crossing"
	result.Confidence = confidenceFromData(self, best.Snapshot)

	return result
}

func looksLikeFormation(a, b aircraft.Snapshot) bool {
	trackDiff := math.Abs(angleDiffDeg(a.Track, b.Track))
	if trackDiff > 5 {
		return false
	}
	if a.AltBaro == nil || b.AltBaro == nil {
		return false
	}
	if math.Abs(float64(*a.AltBaro-*b.AltBaro)) > 100 {
		return false
	}
	if math.Abs(a.GS-b.GS) > 20 {
		return false
	}
	return true
}

func angleDiffDeg(a, b float64) float64 {
	d := math.Mod(a-b+540, 360) - 180
	return d
}

func classifyRisk(horizNM, vertFt, closureKt float64, self, other aircraft.Snapshot, hasTCAS bool, cfg AirproxConfig) (aircraft.RiskCategory, float64) {
	var base float64
	var cat aircraft.RiskCategory
	for _, row := range riskThresholds {
		if horizNM <= row.horizontalNM && vertFt <= row.verticalFt {
			cat = row.category
			base = row.baseScore
			break
		}
	}
	if cat == "" {
		return "", 0
	}

	score := base
	if closureKt > cfg.ClosureThresholdKt {
		score *= 1.5
	}
	if self.AltBaro != nil && *self.AltBaro < 2000 {
		score *= 1.3
	}
	if isHeavy(self.Category) && isLight(other.Category) {
		score *= 1.4
	}
	if maneuvering(self) || maneuvering(other) {
		score *= 1.2
	}
	if self.Alert == aircraft.AlertAdvisory || other.Alert == aircraft.AlertAdvisory {
		score *= 1.2
	}
	if self.Alert == aircraft.AlertResolution || other.Alert == aircraft.AlertResolution {
		score *= 1.5
	}

	switch {
	case score >= 3.5:
		cat = aircraft.RiskCategoryA
	case score >= 2.5:
		cat = aircraft.RiskCategoryB
	case score >= 1.5:
		cat = aircraft.RiskCategoryC
	default:
		cat = aircraft.RiskCategoryD
	}
	return cat, score
}

func isHeavy(c aircraft.Category) bool {
	return c == aircraft.CategoryA5 || c == aircraft.CategoryA6
}

func isLight(c aircraft.Category) bool {
	return c == aircraft.CategoryA1 || c == aircraft.CategoryA7
}

func maneuvering(s aircraft.Snapshot) bool {
	return s.TrackRate != nil && math.Abs(*s.TrackRate) > 3
}

func confidenceFromData(self, other aircraft.Snapshot) float64 {
	confidence := 1.0
	if self.SeenPos > 5 {
		confidence *= 0.9
	}
	if other.SeenPos > 5 {
		confidence *= 0.9
	}
	if self.AltBaro == nil || other.AltBaro == nil {
		confidence *= 0.5
	}
	return confidence
}
