package detect

import (
	"math"

	"adsb-tracker/pkg/aircraft"
)

// envelope is the expected performance profile for one aircraft
// category, used as the baseline the performance detector compares
// actual behaviour against.
type envelope struct {
	ClimbFpm    float64
	DescentFpm  float64
	CruiseKt    float64
	CeilingFt   float64
}

var envelopesByCategory = map[aircraft.Category]envelope{
	aircraft.CategoryA1: {ClimbFpm: 700, DescentFpm: 700, CruiseKt: 110, CeilingFt: 14000},
	aircraft.CategoryA2: {ClimbFpm: 1000, DescentFpm: 1000, CruiseKt: 180, CeilingFt: 25000},
	aircraft.CategoryA3: {ClimbFpm: 2000, DescentFpm: 1800, CruiseKt: 430, CeilingFt: 41000},
	aircraft.CategoryA4: {ClimbFpm: 2500, DescentFpm: 2000, CruiseKt: 470, CeilingFt: 43000},
	aircraft.CategoryA5: {ClimbFpm: 3000, DescentFpm: 2200, CruiseKt: 490, CeilingFt: 45000},
	aircraft.CategoryA7: {ClimbFpm: 500, DescentFpm: 500, CruiseKt: 90, CeilingFt: 10000},
	aircraft.CategoryB6:  {ClimbFpm: 400, DescentFpm: 400, CruiseKt: 25, CeilingFt: 400},
}

var defaultEnvelope = envelope{ClimbFpm: 1500, DescentFpm: 1500, CruiseKt: 250, CeilingFt: 40000}

// Performance evaluates the performance-envelope detector:
// it detects a coarse flight phase from the current vertical rate and
// compares climb/descent rate, cruise speed and altitude against the
// expected envelope for the aircraft's category, each with its own
// tolerance band.
func Performance(snap aircraft.Snapshot, cfg PerformanceConfig) aircraft.PerformanceResult {
	env, ok := envelopesByCategory[snap.Category]
	if !ok {
		env = defaultEnvelope
	}

	phase := detectPhase(snap)
	result := aircraft.PerformanceResult{Phase: phase}

	if snap.HasRate {
		if phase == "climb" {
			threshold := env.ClimbFpm * (1 + cfg.ExcessiveTolerance)
			if snap.BaroRate > threshold {
				result.Issues = append(result.Issues, aircraft.PerformanceIssue{
					Type:     "climb_rate_excessive",
					Severity: severityForExcess(snap.BaroRate, threshold),
					Phase:    phase,
					Expected: env.ClimbFpm,
					Actual:   snap.BaroRate,
				})
			}
		}
		if phase == "descent" {
			threshold := env.DescentFpm * (1 + cfg.ExcessiveTolerance)
			if math.Abs(snap.BaroRate) > threshold {
				result.Issues = append(result.Issues, aircraft.PerformanceIssue{
					Type:     "descent_rate_excessive",
					Severity: severityForExcess(math.Abs(snap.BaroRate), threshold),
					Phase:    phase,
					Expected: env.DescentFpm,
					Actual:   math.Abs(snap.BaroRate),
				})
			}
		}
	}

	if phase == "cruise" && snap.GS > 0 {
		deviation := math.Abs(snap.GS-env.CruiseKt) / math.Max(1, env.CruiseKt)
		if deviation > cfg.CruiseSpeedTolerance {
			result.Issues = append(result.Issues, aircraft.PerformanceIssue{
				Type:     "speed_deviation",
				Severity: severityForDeviation(deviation, cfg.CruiseSpeedTolerance),
				Phase:    phase,
				Expected: env.CruiseKt,
				Actual:   snap.GS,
			})
		}
	}

	if snap.AltBaro != nil && float64(*snap.AltBaro) > env.CeilingFt*(1+cfg.ClimbDescentTolerance) {
		result.Issues = append(result.Issues, aircraft.PerformanceIssue{
			Type:     "altitude_exceeds_ceiling",
			Severity: aircraft.SeverityMedium,
			Phase:    phase,
			Expected: env.CeilingFt,
			Actual:   float64(*snap.AltBaro),
		})
	}

	return result
}

func detectPhase(snap aircraft.Snapshot) string {
	if snap.AltBaro != nil && *snap.AltBaro < 50 && snap.GS < 30 {
		return "ground"
	}
	if !snap.HasRate {
		return "unknown"
	}
	switch {
	case snap.BaroRate > 300:
		return "climb"
	case snap.BaroRate < -300:
		return "descent"
	default:
		return "cruise"
	}
}

func severityForExcess(actual, threshold float64) aircraft.Severity {
	ratio := actual / math.Max(1, threshold)
	switch {
	case ratio >= 1.5:
		return aircraft.SeverityHigh
	case ratio >= 1.2:
		return aircraft.SeverityMedium
	default:
		return aircraft.SeverityLow
	}
}

func severityForDeviation(deviation, tolerance float64) aircraft.Severity {
	ratio := deviation / math.Max(0.01, tolerance)
	switch {
	case ratio >= 3:
		return aircraft.SeverityHigh
	case ratio >= 1.5:
		return aircraft.SeverityMedium
	default:
		return aircraft.SeverityLow
	}
}
