package detect

import (
	"fmt"
	"math"
	"sort"

	"adsb-tracker/internal/refdata"
	"adsb-tracker/pkg/aircraft"
)

// stableFlightBaroRateThreshold and stableFlightTrackRateThreshold bound
// the vertical-rate/turn-rate envelope a flight must stay within for
// emergencySquawkStableFlight to fire: level, non-maneuvering flight
// despite an emergency code, which reads differently to an operator
// than a code set mid-maneuver.
const (
	stableFlightBaroRateThreshold  = 500.0
	stableFlightTrackRateThreshold = 3.0
)

// SquawkCheck classifies the aircraft's current squawk against the
// reference range table and runs the cross-field anomaly rules (spec
// emergency codes, flag/code mismatches, watchlist hits, and
// category/range inconsistencies.
func SquawkCheck(snap aircraft.Snapshot, table *refdata.SquawkTable, cfg SquawkConfig) aircraft.SquawkResult {
	result := aircraft.SquawkResult{}
	if snap.Squawk == "" {
		return result
	}

	if table != nil {
		result.Matches = table.FindByCode(snap.Squawk)
	}

	var anomalies []aircraft.Anomaly

	if aircraft.EmergencySquawks[snap.Squawk] {
		anomalies = append(anomalies, aircraft.Anomaly{
			Type:        "emergency_squawk",
			Severity:    aircraft.SeverityHigh,
			Confidence:  1.0,
			Description: fmt.Sprintf("squawking emergency code %s", snap.Squawk),
			Fields:      []string{"squawk"},
			Values:      map[string]string{"squawk": string(snap.Squawk)},
		})
		if isStableFlight(snap) {
			anomalies = append(anomalies, aircraft.Anomaly{
				Type:        "emergency_squawk_stable_flight",
				Severity:    aircraft.SeverityMedium,
				Confidence:  0.6,
				Description: "emergency code held during level, non-maneuvering flight",
				Fields:      []string{"squawk", "baro_rate", "track_rate"},
				Values:      map[string]string{"squawk": string(snap.Squawk)},
			})
		}
	} else if snap.Emergency {
		anomalies = append(anomalies, aircraft.Anomaly{
			Type:        "unflagged_emergency",
			Severity:    aircraft.SeverityMedium,
			Confidence:  0.7,
			Description: "emergency flag set without an emergency squawk code",
			Fields:      []string{"emergency", "squawk"},
			Values:      map[string]string{"squawk": string(snap.Squawk)},
		})
	}

	if snap.Squawk == aircraft.SquawkGroundTest && (snap.GS > 30 || (snap.AltBaro != nil && *snap.AltBaro > 500)) {
		anomalies = append(anomalies, aircraft.Anomaly{
			Type:        "ground_squawk_airborne",
			Severity:    aircraft.SeverityMedium,
			Confidence:  0.8,
			Description: "ground-test squawk held while apparently airborne",
			Fields:      []string{"squawk", "gs", "alt_baro"},
			Values:      map[string]string{"squawk": string(snap.Squawk)},
		})
	}

	for _, m := range result.Matches {
		if m.Type == aircraft.RangeMilitary && isCivilTransportCategory(snap.Category) {
			anomalies = append(anomalies, aircraft.Anomaly{
				Type:        "category_mismatch",
				Severity:    aircraft.SeverityLow,
				Confidence:  0.5,
				Description: "military-range squawk on an airframe reporting a civil transport category",
				Fields:      []string{"squawk", "category"},
				Values:      map[string]string{"squawk": string(snap.Squawk), "category": string(snap.Category)},
			})
			break
		}
	}

	for _, w := range cfg.Watchlist {
		if string(snap.Squawk) == w {
			anomalies = append(anomalies, aircraft.Anomaly{
				Type:        "watchlist_match",
				Severity:    aircraft.SeverityMedium,
				Confidence:  1.0,
				Description: fmt.Sprintf("squawk %s is on the configured watchlist", snap.Squawk),
				Fields:      []string{"squawk"},
				Values:      map[string]string{"squawk": string(snap.Squawk)},
			})
			break
		}
	}
	for _, m := range result.Matches {
		for _, wt := range cfg.WatchedTypes {
			if string(m.Type) == wt {
				anomalies = append(anomalies, aircraft.Anomaly{
					Type:        "watched_range",
					Severity:    aircraft.SeverityLow,
					Confidence:  0.9,
					Description: fmt.Sprintf("squawk %s falls in watched range type %s", snap.Squawk, m.Type),
					Fields:      []string{"squawk"},
					Values:      map[string]string{"squawk": string(snap.Squawk), "range_type": string(m.Type)},
				})
			}
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		if anomalies[i].Severity != anomalies[j].Severity {
			return anomalies[i].Severity > anomalies[j].Severity
		}
		return anomalies[i].Type < anomalies[j].Type
	})

	result.Anomalies = anomalies
	for _, a := range anomalies {
		if a.Severity > result.HighestSeverity {
			result.HighestSeverity = a.Severity
		}
	}
	result.IsInteresting = len(result.Matches) > 0 || len(anomalies) > 0

	return result
}

// isStableFlight reports whether snap shows level, non-maneuvering
// flight: a small vertical rate and a small turn rate, both reported.
func isStableFlight(snap aircraft.Snapshot) bool {
	if !snap.HasRate || math.Abs(snap.BaroRate) >= stableFlightBaroRateThreshold {
		return false
	}
	if snap.TrackRate == nil || math.Abs(*snap.TrackRate) >= stableFlightTrackRateThreshold {
		return false
	}
	return true
}

func isCivilTransportCategory(c aircraft.Category) bool {
	switch c {
	case aircraft.CategoryA3, aircraft.CategoryA4, aircraft.CategoryA5:
		return true
	default:
		return false
	}
}
