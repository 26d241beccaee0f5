package delivery

import (
	"errors"
	"testing"

	"adsb-tracker/pkg/aircraft"
)

type recordingSink struct {
	inserted, removed int
	err               error
}

func (s *recordingSink) Deliver(inserted, removed []aircraft.Alert) error {
	s.inserted += len(inserted)
	s.removed += len(removed)
	return s.err
}

func TestMultiSinkDeliversToEverySink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMultiSink(map[string]Sink{"a": a, "b": b})

	faults := m.Deliver([]aircraft.Alert{{Hex: "abc123"}}, nil)

	if len(faults) != 0 {
		t.Fatalf("expected no faults, got %+v", faults)
	}
	if a.inserted != 1 || b.inserted != 1 {
		t.Fatalf("expected both sinks to receive the insert, got a=%d b=%d", a.inserted, b.inserted)
	}
}

func TestMultiSinkIsolatesFailingSink(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("boom")}
	m := NewMultiSink(map[string]Sink{"ok": ok, "bad": bad})

	faults := m.Deliver([]aircraft.Alert{{Hex: "abc123"}}, nil)

	if len(faults) != 1 || faults[0].Sink != "bad" {
		t.Fatalf("expected exactly one fault for sink 'bad', got %+v", faults)
	}
	if ok.inserted != 1 {
		t.Fatalf("expected the healthy sink to still receive the insert")
	}
}

func TestLogSinkFallsBackToRawText(t *testing.T) {
	s := NewLogSink(nil)
	err := s.Deliver([]aircraft.Alert{{Hex: "abc123", Type: "squawk", Text: "emergency squawk 7700"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogSinkUsesRegisteredFormatter(t *testing.T) {
	called := false
	s := NewLogSink(map[string]func(aircraft.Alert) string{
		"squawk": func(a aircraft.Alert) string {
			called = true
			return "formatted: " + a.Text
		},
	})
	if err := s.Deliver([]aircraft.Alert{{Hex: "abc123", Type: "squawk", Text: "7700"}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected the registered formatter to be invoked")
	}
}
