package detect

import (
	"math"
	"time"

	"adsb-tracker/internal/geo"
	"adsb-tracker/internal/refdata"
	"adsb-tracker/internal/trajectory"
	"adsb-tracker/pkg/aircraft"
)

// Airport evaluates the airport-proximity and flight-phase detector
// for one aircraft: every nearby airport is annotated with
// its best-aligned runway, an assigned traffic phase, and a relevance
// score. The pipeline filter reports one alert per nearby airport,
// keyed by ICAO code, so the relevance score is available for sorting
// without forcing a single airport to be dropped.
func Airport(snap aircraft.Snapshot, store *trajectory.Store, idx *refdata.AirportIndex, cfg AirportConfig) []aircraft.EnhancedAirport {
	if !snap.HasPos || idx == nil {
		return nil
	}

	altFt := 0.0
	hasAlt := snap.AltBaro != nil
	if hasAlt {
		altFt = float64(*snap.AltBaro)
	}

	nearby := idx.FindNearby(snap.Lat, snap.Lon, refdata.FindNearbyOptions{
		DistanceKm:  cfg.RunwayAlignmentDistanceKm * 2,
		AltitudeFt:  altFt,
		HasAltitude: hasAlt,
	})

	out := make([]aircraft.EnhancedAirport, 0, len(nearby))
	for _, n := range nearby {
		alignDistance := cfg.RunwayAlignmentDistanceKm
		if override, ok := cfg.RunwayAlignmentDistanceByCategory[string(snap.Category)]; ok {
			alignDistance = override
		}

		ea := aircraft.EnhancedAirport{
			ICAO:       n.Airport.ICAOCode,
			DistanceKm: n.DistanceKm,
		}

		if n.DistanceKm <= alignDistance {
			ea.AlignedRunway = bestAlignedRunway(snap, n.Airport)
		}

		ea.Phase, ea.PhaseConfidence = detectAirportPhase(snap, n, store, ea.AlignedRunway)
		ea.GoAround = detectGoAround(store, n.Airport)
		ea.MissedApproach = detectMissedApproach(store, n.Airport)
		ea.Holding = detectHolding(store, n.Airport)
		ea.Pattern = detectPattern(store, n.Airport)
		ea.RelevanceScore = relevanceScore(ea, n.DistanceKm)

		out = append(out, ea)
	}
	return out
}

func bestAlignedRunway(snap aircraft.Snapshot, ap aircraft.Airport) *aircraft.AlignedRunway {
	var best *aircraft.AlignedRunway
	var bestScore float64

	consider := func(name string, heading float64) {
		diff := math.Abs(angleDiffDeg(snap.Track, heading))
		score := 1.0 - math.Min(1.0, diff/45.0)
		if score <= 0 {
			return
		}
		if best == nil || score > bestScore {
			bestScore = score
			best = &aircraft.AlignedRunway{RunwayName: name, AlignmentScore: score, ConfidenceScore: score}
		}
	}

	for _, rw := range ap.Runways {
		if rw.Closed {
			continue
		}
		consider(rw.LEIdent, rw.LEHeadingDegT)
		consider(rw.HEIdent, rw.HEHeadingDegT)
	}
	return best
}

func detectAirportPhase(snap aircraft.Snapshot, n refdata.FindNearbyResult, store *trajectory.Store, runway *aircraft.AlignedRunway) (aircraft.Phase, float64) {
	altFt := 0.0
	hasAlt := snap.AltBaro != nil
	if hasAlt {
		altFt = float64(*snap.AltBaro)
	}

	switch {
	case hasAlt && altFt < 50 && snap.GS < 30:
		return aircraft.PhaseGroundOperations, 0.9
	case n.DistanceKm < 2 && hasAlt && altFt < 3000 && runway != nil && runway.AlignmentScore > 0.6 && snap.HasRate && snap.BaroRate < -200:
		return aircraft.PhaseApproaching, runway.AlignmentScore
	case n.DistanceKm < 2 && hasAlt && altFt < 5000 && snap.HasRate && snap.BaroRate > 500:
		return aircraft.PhaseDeparting, 0.7
	case n.DistanceKm < 8 && hasAlt && altFt < 3000 && altFt > 500:
		return aircraft.PhasePattern, 0.5
	default:
		return aircraft.PhaseNone, 0
	}
}

// detectGoAround looks for the decelerate-descend-then-climb V profile
// within the retained trajectory: a minimum altitude near the airport
// followed by a sustained climb.
func detectGoAround(store *trajectory.Store, ap aircraft.Airport) aircraft.GoAroundInfo {
	if store == nil {
		return aircraft.GoAroundInfo{}
	}
	positions := store.Positions(trajectory.Options{MaxDataPoints: 20})
	if len(positions) < 4 {
		return aircraft.GoAroundInfo{}
	}

	minAlt := math.Inf(1)
	minIdx := -1
	for i, p := range positions {
		if p.AltBaro == nil {
			continue
		}
		d := geo.Distance(p.Lat, p.Lon, ap.LatitudeDeg, ap.LongitudeDeg)
		if d > 5 {
			continue
		}
		if float64(*p.AltBaro) < minAlt {
			minAlt = float64(*p.AltBaro)
			minIdx = i
		}
	}
	if minIdx < 0 || minIdx >= len(positions)-2 {
		return aircraft.GoAroundInfo{}
	}

	last := positions[len(positions)-1]
	if last.AltBaro == nil {
		return aircraft.GoAroundInfo{}
	}
	altGain := float64(*last.AltBaro) - minAlt
	if altGain < 300 {
		return aircraft.GoAroundInfo{}
	}
	dtS := float64(last.Timestamp-positions[minIdx].Timestamp) / 1000.0
	climbFpm := 0.0
	if dtS > 0 {
		climbFpm = altGain / (dtS / 60.0)
	}
	if climbFpm < 500 {
		return aircraft.GoAroundInfo{}
	}

	confidence := math.Min(1.0, altGain/2000.0)
	return aircraft.GoAroundInfo{
		Detected:   true,
		MinAltFt:   minAlt,
		AltGainFt:  altGain,
		ClimbFpm:   climbFpm,
		Confidence: confidence,
	}
}

// detectMissedApproach is the same climbout evidence as a go-around, but
// narrowed to a minimum altitude that falls within the decision-height
// band rather than at ground level.
func detectMissedApproach(store *trajectory.Store, ap aircraft.Airport) aircraft.MissedApproachInfo {
	ga := detectGoAround(store, ap)
	if !ga.Detected || ga.MinAltFt < 200 || ga.MinAltFt > 800 {
		return aircraft.MissedApproachInfo{}
	}
	return aircraft.MissedApproachInfo{
		Detected:   true,
		AltGainFt:  ga.AltGainFt,
		ClimbFpm:   ga.ClimbFpm,
		Confidence: ga.Confidence,
	}
}

// detectHolding reuses the loitering pattern classifier, restricted to
// positions near this specific airport, to find a sustained racetrack
// or orbit evidencing a holding pattern.
func detectHolding(store *trajectory.Store, ap aircraft.Airport) aircraft.HoldingPatternInfo {
	if store == nil {
		return aircraft.HoldingPatternInfo{}
	}
	positions := store.Positions(trajectory.Options{MaxDataPoints: 30})
	near := make([]trajectory.PositionSample, 0, len(positions))
	for _, p := range positions {
		if geo.Distance(p.Lat, p.Lon, ap.LatitudeDeg, ap.LongitudeDeg) <= 15 {
			near = append(near, p)
		}
	}
	if len(near) < 10 {
		return aircraft.HoldingPatternInfo{}
	}

	minLat, maxLat := near[0].Lat, near[0].Lat
	minLon, maxLon := near[0].Lon, near[0].Lon
	for _, p := range near {
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
		minLon, maxLon = math.Min(minLon, p.Lon), math.Max(maxLon, p.Lon)
	}
	centerLat, centerLon := (minLat+maxLat)/2, (minLon+maxLon)/2

	pattern, confidence := classifyLoiterPattern(near, geo.Distance(centerLat, centerLon, maxLat, maxLon))
	if pattern == "" || confidence < 0.5 {
		return aircraft.HoldingPatternInfo{}
	}

	durationMin := float64(near[len(near)-1].Timestamp-near[0].Timestamp) / 60000.0
	var totalTurn float64
	for i := 1; i < len(near); i++ {
		if near[i].Track == nil || near[i-1].Track == nil {
			continue
		}
		totalTurn += angleDiffDeg(*near[i].Track, *near[i-1].Track)
	}

	return aircraft.HoldingPatternInfo{
		Detected:     true,
		CenterLat:    centerLat,
		CenterLon:    centerLon,
		TotalTurnDeg: math.Abs(totalTurn),
		DurationMin:  durationMin,
	}
}

// detectPattern identifies a traffic-circuit: several turns at roughly
// constant distance and altitude from the airport, distinct from a
// holding pattern by its smaller radius and ground proximity.
func detectPattern(store *trajectory.Store, ap aircraft.Airport) aircraft.PatternInfo {
	if store == nil {
		return aircraft.PatternInfo{}
	}
	positions := store.Positions(trajectory.Options{MaxDataPoints: 20})
	near := make([]trajectory.PositionSample, 0, len(positions))
	for _, p := range positions {
		if geo.Distance(p.Lat, p.Lon, ap.LatitudeDeg, ap.LongitudeDeg) <= 8 {
			near = append(near, p)
		}
	}
	if len(near) < 6 {
		return aircraft.PatternInfo{}
	}

	var turnCount int
	var lastDelta float64
	haveLast := false
	var totalDist, maxDist float64
	var altitudeValues []float64
	for i, p := range near {
		d := geo.Distance(p.Lat, p.Lon, ap.LatitudeDeg, ap.LongitudeDeg)
		totalDist += d
		if d > maxDist {
			maxDist = d
		}
		if p.AltBaro != nil {
			altitudeValues = append(altitudeValues, float64(*p.AltBaro))
		}
		if i == 0 || near[i-1].Track == nil || p.Track == nil {
			continue
		}
		delta := angleDiffDeg(*p.Track, *near[i-1].Track)
		if haveLast && delta*lastDelta < 0 && math.Abs(delta) > 15 {
			turnCount++
		}
		lastDelta = delta
		haveLast = true
	}
	if turnCount < 2 {
		return aircraft.PatternInfo{}
	}

	altConsistency := 1.0
	if len(altitudeValues) >= 2 {
		var sum, avg float64
		for _, v := range altitudeValues {
			sum += v
		}
		avg = sum / float64(len(altitudeValues))
		var variance float64
		for _, v := range altitudeValues {
			variance += (v - avg) * (v - avg)
		}
		stddev := math.Sqrt(variance / float64(len(altitudeValues)))
		altConsistency = 1.0 - math.Min(1.0, stddev/math.Max(1, avg))
	}

	confidence := math.Min(1.0, float64(turnCount)/4.0*0.6+altConsistency*0.4)
	return aircraft.PatternInfo{
		Detected:            true,
		TurnCount:           turnCount,
		AvgDistanceKm:       totalDist / float64(len(near)),
		MaxDistanceKm:       maxDist,
		AltitudeConsistency: altConsistency,
		Confidence:          confidence,
	}
}

func relevanceScore(ea aircraft.EnhancedAirport, distanceKm float64) float64 {
	score := math.Max(0, 1.0-distanceKm/40.0)
	if ea.Phase != aircraft.PhaseNone {
		score += 0.3
	}
	if ea.AlignedRunway != nil {
		score += 0.2 * ea.AlignedRunway.AlignmentScore
	}
	if ea.GoAround.Detected {
		score += 0.4
	}
	if ea.MissedApproach.Detected {
		score += 0.4
	}
	if ea.Holding.Detected {
		score += 0.3
	}
	if ea.Pattern.Detected {
		score += 0.2
	}
	return score
}

// AirportPostprocess aggregates this tick's per-aircraft airport results
// for the configured priority airports, tracking the dominant runway in
// use across ticks and emitting a runway_change insight when it shifts.
type AirportPostprocess struct {
	lastDominantRunway map[string]string
}

// NewAirportPostprocess creates the cross-tick state the priority-airport
// aggregation needs to detect a runway change between ticks.
func NewAirportPostprocess() *AirportPostprocess {
	return &AirportPostprocess{lastDominantRunway: make(map[string]string)}
}

// aircraftNearAirport pairs one aircraft's hex with the airport it is
// closest to and the runway it is aligned with this tick.
type aircraftNearAirport struct {
	hex        string
	icao       string
	runwayName string
	phase      aircraft.Phase
}

// Process takes, for every tracked aircraft, the airport results Airport
// produced this tick, and returns the set of priority-airport traffic
// insights.
func (p *AirportPostprocess) Process(perAircraft map[string][]aircraft.EnhancedAirport, cfg AirportConfig, now time.Time) []aircraft.RunwayTrafficInsight {
	if len(cfg.PriorityAirports) == 0 {
		return nil
	}
	priority := make(map[string]bool, len(cfg.PriorityAirports))
	for _, icao := range cfg.PriorityAirports {
		priority[icao] = true
	}

	byAirport := make(map[string][]aircraftNearAirport)
	for hex, airports := range perAircraft {
		for _, ea := range airports {
			if !priority[ea.ICAO] || ea.AlignedRunway == nil {
				continue
			}
			byAirport[ea.ICAO] = append(byAirport[ea.ICAO], aircraftNearAirport{
				hex: hex, icao: ea.ICAO, runwayName: ea.AlignedRunway.RunwayName, phase: ea.Phase,
			})
		}
	}

	var insights []aircraft.RunwayTrafficInsight
	for icao, entries := range byAirport {
		counts := make(map[string]int)
		for _, e := range entries {
			counts[e.runwayName]++
		}
		dominant, dominantCount := "", 0
		for rw, c := range counts {
			if c > dominantCount {
				dominant, dominantCount = rw, c
			}
		}
		if dominant == "" {
			continue
		}

		if len(entries) >= 5 {
			insights = append(insights, aircraft.RunwayTrafficInsight{
				AirportICAO: icao, Type: "high_traffic", Severity: "info",
				RunwayName: dominant, DetectedAt: now,
			})
		}
		if len(counts) > 1 {
			insights = append(insights, aircraft.RunwayTrafficInsight{
				AirportICAO: icao, Type: "mixed_operations", Severity: "info",
				RunwayName: dominant, DetectedAt: now,
			})
		}

		prev, had := p.lastDominantRunway[icao]
		if had && prev != dominant {
			insights = append(insights, aircraft.RunwayTrafficInsight{
				AirportICAO: icao, Type: "runway_change", Severity: "warning",
				RunwayName: dominant, ChangeType: prev + "->" + dominant, DetectedAt: now,
			})
		}
		p.lastDominantRunway[icao] = dominant
	}

	return insights
}
