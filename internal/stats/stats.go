// Package stats implements the small statistics kernel
// shared by the trajectory store and several detectors: percentiles,
// IQR-outlier detection, time-window filtering and band lookup.
package stats

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. Returns NaN for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// IQRBounds returns the [lowerFence, upperFence] outlier bounds using
// the standard 1.5*IQR rule.
func IQRBounds(values []float64) (lower, upper float64) {
	q1 := Percentile(values, 25)
	q3 := Percentile(values, 75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// Outliers returns the values in the set falling outside the 1.5*IQR
// fences.
func Outliers(values []float64) []float64 {
	lower, upper := IQRBounds(values)
	var out []float64
	for _, v := range values {
		if v < lower || v > upper {
			out = append(out, v)
		}
	}
	return out
}

// TimeWindowFilter returns the subset of values whose paired timestamp
// (ms) falls within [now-windowMs, now].
func TimeWindowFilter(values []float64, timestampsMs []int64, nowMs, windowMs int64) ([]float64, []int64) {
	var outV []float64
	var outT []int64
	cutoff := nowMs - windowMs
	for i, ts := range timestampsMs {
		if ts >= cutoff && ts <= nowMs {
			outV = append(outV, values[i])
			outT = append(outT, ts)
		}
	}
	return outV, outT
}

// Band describes one entry of a threshold band table, e.g. altitude
// bands for performance profiles.
type Band struct {
	Min   float64
	Max   float64
	Label string
}

// BandLookup returns the label of the first band containing value, or
// "" if none match. Bands are tested in order; Max is exclusive except
// for the final band.
func BandLookup(bands []Band, value float64) string {
	for i, b := range bands {
		if value >= b.Min && (value < b.Max || i == len(bands)-1) {
			return b.Label
		}
	}
	return ""
}

// Summary is the standard descriptive-statistics bundle computed by the
// trajectory store's Stats() and reused by several detectors.
type Summary struct {
	Count        int
	Min          float64
	Max          float64
	Avg          float64
	First        float64
	Last         float64
	Variance     float64
	StdDev       float64
	RateOfChange float64
	HasRate      bool
}

// Describe computes a Summary over values sampled at timestampsMs
// (same length, oldest first). RateOfChange is (last-first)/seconds and
// is only valid (HasRate) when there are at least 2 samples.
func Describe(values []float64, timestampsMs []int64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	s := Summary{Count: n, First: values[0], Last: values[n-1]}
	s.Min, s.Max = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Avg = sum / float64(n)

	var sqDiff float64
	for _, v := range values {
		d := v - s.Avg
		sqDiff += d * d
	}
	s.Variance = sqDiff / float64(n)
	s.StdDev = math.Sqrt(s.Variance)

	if n >= 2 {
		dtSeconds := float64(timestampsMs[n-1]-timestampsMs[0]) / 1000.0
		if dtSeconds != 0 {
			s.RateOfChange = (s.Last - s.First) / dtSeconds
			s.HasRate = true
		}
	}
	return s
}
