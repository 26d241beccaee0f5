package trajectory

import (
	"testing"

	"adsb-tracker/pkg/aircraft"
)

func altSnap(alt int) aircraft.Snapshot {
	a := alt
	return aircraft.Snapshot{AltBaro: &a, HasPos: true, Lat: 51.5, Lon: -0.1, Track: 90, GS: 200}
}

func TestFieldLengthLaw(t *testing.T) {
	st := New(0)
	for i, alt := range []int{1000, 2000, 3000} {
		st.Append(int64(i*1000), altSnap(alt))
	}
	fr := st.Field("alt", FieldAltBaro, Options{})
	if len(fr.Values) != len(fr.Timestamps) {
		t.Fatalf("values/timestamps length mismatch: %d vs %d", len(fr.Values), len(fr.Timestamps))
	}
	if len(fr.Values) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(fr.Values))
	}
}

func TestFieldSkipsUndefined(t *testing.T) {
	st := New(0)
	st.Append(0, altSnap(1000))
	st.Append(1000, aircraft.Snapshot{HasPos: true, Lat: 51.5, Lon: -0.1})
	st.Append(2000, altSnap(3000))

	fr := st.Field("alt", FieldAltBaro, Options{})
	if len(fr.Values) != 2 {
		t.Fatalf("expected undefined sample skipped, got %d values", len(fr.Values))
	}
}

func TestMinDataPoints(t *testing.T) {
	st := New(0)
	st.Append(0, altSnap(1000))
	fr := st.Field("alt", FieldAltBaro, Options{MinDataPoints: 5})
	if len(fr.Values) != 0 {
		t.Fatalf("expected empty result below MinDataPoints, got %d", len(fr.Values))
	}
}

func TestMaxDataPoints(t *testing.T) {
	st := New(0)
	for i := 0; i < 10; i++ {
		st.Append(int64(i*1000), altSnap(1000+i))
	}
	fr := st.Field("alt", FieldAltBaro, Options{MaxDataPoints: 3})
	if len(fr.Values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(fr.Values))
	}
	if fr.Values[2] != 1009 {
		t.Fatalf("expected most recent kept, got %v", fr.Values)
	}
}

func TestInterpolatedValueSandwich(t *testing.T) {
	st := New(0)
	st.Append(0, altSnap(1000))
	st.Append(10000, altSnap(2000))

	v, ok := st.InterpolatedValue("alt", FieldAltBaro, 5000)
	if !ok {
		t.Fatalf("expected ok")
	}
	if v < 1000 || v > 2000 {
		t.Fatalf("interpolated value %v not sandwiched between 1000 and 2000", v)
	}
}

func TestInterpolatedValueClampsAtEndpoints(t *testing.T) {
	st := New(0)
	st.Append(0, altSnap(1000))
	st.Append(10000, altSnap(2000))

	v, _ := st.InterpolatedValue("alt", FieldAltBaro, -5000)
	if v != 1000 {
		t.Fatalf("before range should clamp to first value, got %v", v)
	}
	v, _ = st.InterpolatedValue("alt", FieldAltBaro, 50000)
	if v != 2000 {
		t.Fatalf("after range should clamp to last value, got %v", v)
	}
}

func TestHasMinimumData(t *testing.T) {
	st := New(0)
	for i := 0; i < 5; i++ {
		st.Append(int64(i*1000), altSnap(1000))
	}
	if !st.HasMinimumData(5, 0) {
		t.Fatalf("expected sufficient data")
	}
	if st.HasMinimumData(6, 0) {
		t.Fatalf("expected insufficient data")
	}
}

func TestIsFieldStable(t *testing.T) {
	st := New(0)
	for i := 0; i < 5; i++ {
		st.Append(int64(i*1000), altSnap(1000))
	}
	stable := st.IsFieldStable("alt", FieldAltBaro, StabilityOptions{Options: Options{MinDataPoints: 3}, StdDevThreshold: 1})
	if !stable {
		t.Fatalf("constant series should be stable")
	}
}

func TestRetentionWindow(t *testing.T) {
	st := New(0)
	st.Append(0, altSnap(1000))
	st.Append(defaultRetentionMs+1, altSnap(2000))
	if st.Len() != 1 {
		t.Fatalf("expected old entry trimmed, got %d entries", st.Len())
	}
}

func TestMemoizationClearedOnAppend(t *testing.T) {
	st := New(0)
	st.Append(0, altSnap(1000))
	first := st.Field("alt", FieldAltBaro, Options{})
	st.Append(1000, altSnap(2000))
	second := st.Field("alt", FieldAltBaro, Options{})
	if len(second.Values) <= len(first.Values) {
		t.Fatalf("expected memo to refresh after append")
	}
}
