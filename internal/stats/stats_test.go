package stats

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := Percentile(values, 50); got != 3 {
		t.Errorf("median = %v, want 3", got)
	}
	if got := Percentile(values, 0); got != 1 {
		t.Errorf("p0 = %v, want 1", got)
	}
	if got := Percentile(values, 100); got != 5 {
		t.Errorf("p100 = %v, want 5", got)
	}
	if !math.IsNaN(Percentile(nil, 50)) {
		t.Errorf("empty input should return NaN")
	}
}

func TestOutliers(t *testing.T) {
	values := []float64{10, 11, 12, 11, 10, 100}
	out := Outliers(values)
	if len(out) != 1 || out[0] != 100 {
		t.Errorf("Outliers() = %v, want [100]", out)
	}
}

func TestTimeWindowFilter(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	ts := []int64{0, 1000, 2000, 3000}
	v, tOut := TimeWindowFilter(values, ts, 3000, 1500)
	if len(v) != 2 || v[0] != 3 || v[1] != 4 {
		t.Errorf("TimeWindowFilter values = %v, want [3 4]", v)
	}
	if len(tOut) != 2 {
		t.Errorf("timestamps length mismatch: %v", tOut)
	}
}

func TestBandLookup(t *testing.T) {
	bands := []Band{
		{Min: 0, Max: 1000, Label: "low"},
		{Min: 1000, Max: 10000, Label: "mid"},
		{Min: 10000, Max: math.Inf(1), Label: "high"},
	}
	if got := BandLookup(bands, 500); got != "low" {
		t.Errorf("500 -> %v, want low", got)
	}
	if got := BandLookup(bands, 20000); got != "high" {
		t.Errorf("20000 -> %v, want high", got)
	}
}

func TestDescribe(t *testing.T) {
	values := []float64{100, 200, 300}
	ts := []int64{0, 1000, 2000}
	s := Describe(values, ts)
	if s.Count != 3 || s.Min != 100 || s.Max != 300 || s.Avg != 200 {
		t.Errorf("Describe() = %+v", s)
	}
	if !s.HasRate || s.RateOfChange != 100 {
		t.Errorf("rate of change = %v, want 100/s", s.RateOfChange)
	}

	single := Describe([]float64{5}, []int64{0})
	if single.HasRate {
		t.Errorf("single sample must not report a rate")
	}
}

func TestDescribeFieldLengthLaw(t *testing.T) {
	// Mirrors the trajectory field law invariant: values and
	// timestamps passed in lock-step must produce a consistent summary.
	values := []float64{1, 2, 3, 4, 5}
	ts := []int64{0, 100, 200, 300, 400}
	s := Describe(values, ts)
	if s.Count != len(values) {
		t.Errorf("Count = %v, want %v", s.Count, len(values))
	}
}
