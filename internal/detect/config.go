// Package detect implements the detector kernels: overhead intercept,
// airport proximity + runway/phase detection, airprox risk, loitering,
// squawk classification and performance envelope checks. Every detector
// is a pure function of its snapshot, trajectory store and reference
// data — no wall-clock reads; "now" always arrives via the tick
// context's NowMs.
package detect

import "time"

// Config holds every detector threshold. All are overridable per
// deployment; defaults below mirror the literal numbers used in the
// reference deployment.
type Config struct {
	Overhead    OverheadConfig
	Airport     AirportConfig
	Airprox     AirproxConfig
	Loitering   LoiteringConfig
	Squawk      SquawkConfig
	Performance PerformanceConfig
}

// OverheadConfig configures the overhead-intercept detector.
type OverheadConfig struct {
	RadiusKm       float64
	TimeLimitS     float64
	AltitudeLimitFt float64
	DistanceLimitKm float64
}

// AirportConfig configures the airport-proximity/phase detector.
type AirportConfig struct {
	RunwayAlignmentDistanceKm        float64
	RunwayAlignmentDistanceByCategory map[string]float64
	PriorityAirports                 []string
	HistoryCap                       int
}

// AirproxConfig configures the airprox detector.
type AirproxConfig struct {
	HorizontalThresholdNM float64
	VerticalThresholdFt   float64
	ClosureThresholdKt    float64
	StalePositionS        float64
	AllowFormationSkip    bool
}

// LoiteringConfig configures the loitering detector. BBoxWeight,
// PatternWeight, AltitudeWeight and CategoryWeight are the four terms
// of the loitering score and should sum to 1.0. ExpectedTransitKmPerMin
// is the ground speed a compact-area check is normalized against: the
// detector's bounding-box diagonal is compared to
// (elapsed trajectory window in minutes) * ExpectedTransitKmPerMin
// rather than a fixed distance, so the check scales with WindowMs.
type LoiteringConfig struct {
	MaxAltitudeFt float64
	MinGS         float64
	MaxGS         float64
	MinTrajectoryPoints int
	WindowMs      int64
	ScoreThreshold float64

	BBoxWeight              float64
	PatternWeight           float64
	AltitudeWeight          float64
	CategoryWeight          float64
	ExpectedTransitKmPerMin float64
}

// SquawkConfig configures the squawk classifier.
type SquawkConfig struct {
	Watchlist []string // four-digit octal strings
	WatchedTypes []string
}

// PerformanceConfig configures the performance-envelope detector.
type PerformanceConfig struct {
	ClimbDescentTolerance float64 // 30% buffer
	CruiseSpeedTolerance  float64 // 10% buffer
	ExcessiveTolerance    float64 // 80% buffer
}

// DefaultConfig returns the detector thresholds used by default.
func DefaultConfig() Config {
	return Config{
		Overhead: OverheadConfig{
			RadiusKm:        5,
			TimeLimitS:      300,
			AltitudeLimitFt: 15000,
			DistanceLimitKm: 50,
		},
		Airport: AirportConfig{
			RunwayAlignmentDistanceKm: 20,
			RunwayAlignmentDistanceByCategory: map[string]float64{
				"A1": 10, "A3": 25, "A4": 25, "A5": 30, "A7": 5,
			},
			HistoryCap: 20,
		},
		Airprox: AirproxConfig{
			HorizontalThresholdNM: 1,
			VerticalThresholdFt:   1000,
			ClosureThresholdKt:    400,
			StalePositionS:        30,
			AllowFormationSkip:    true,
		},
		Loitering: LoiteringConfig{
			MaxAltitudeFt:       5000,
			MinGS:               10,
			MaxGS:               150,
			MinTrajectoryPoints: 10,
			WindowMs:            10 * int64(time.Minute/time.Millisecond),
			ScoreThreshold:      0.7,

			BBoxWeight:              0.3,
			PatternWeight:           0.4,
			AltitudeWeight:          0.2,
			CategoryWeight:          0.1,
			ExpectedTransitKmPerMin: 2.0,
		},
		Squawk: SquawkConfig{},
		Performance: PerformanceConfig{
			ClimbDescentTolerance: 0.30,
			CruiseSpeedTolerance:  0.10,
			ExcessiveTolerance:    0.80,
		},
	}
}

// TickContext carries the per-tick now() and shared reference data into
// every detector call, so no detector ever reads the wall clock itself.
type TickContext struct {
	NowMs    int64
	Observer struct {
		Lat  float64
		Lon  float64
		AltM float64
	}
}
