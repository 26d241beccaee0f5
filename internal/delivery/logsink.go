package delivery

import (
	"log"

	"adsb-tracker/pkg/aircraft"
)

// LogSink writes every inserted and removed alert as a bracketed
// [TAG] log line.
type LogSink struct {
	Formatters map[string]func(aircraft.Alert) string
}

// NewLogSink builds a LogSink; formatters maps a filter ID to the
// Format function of the Filter that produced it, so each alert type
// can render itself the way its own filter intends.
func NewLogSink(formatters map[string]func(aircraft.Alert) string) *LogSink {
	return &LogSink{Formatters: formatters}
}

// Deliver logs one line per inserted alert and one per removed alert.
// LogSink never fails: a missing formatter falls back to the alert's
// raw Text field.
func (s *LogSink) Deliver(inserted, removed []aircraft.Alert) error {
	for _, a := range inserted {
		log.Printf("[ALERT+] %s", s.format(a))
	}
	for _, a := range removed {
		log.Printf("[ALERT-] %s", s.format(a))
	}
	return nil
}

func (s *LogSink) format(a aircraft.Alert) string {
	if fn, ok := s.Formatters[a.Type]; ok && fn != nil {
		return fn(a)
	}
	return a.Text
}
