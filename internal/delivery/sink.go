// Package delivery implements the alert-delivery sinks: a
// log sink for local observability and a structured publish sink built
// on the same hub/broadcast pattern the upstream dashboard's websocket
// layer uses. A MultiSink fans a tick's alerts out to every configured
// sink, isolating one sink's failure (a DeliveryFault) from the others
// and from the active-alert table update itself.
package delivery

import (
	"adsb-tracker/pkg/aircraft"
)

// Sink receives one tick's alert batch. A sink that returns an error is
// considered to have suffered a DeliveryFault for that tick; the caller
// must not let that block or skip delivery to any other sink.
type Sink interface {
	Deliver(inserted, removed []aircraft.Alert) error
}

// DeliveryFault records one sink's failure to deliver one tick's batch.
type DeliveryFault struct {
	Sink string
	Err  error
}

// MultiSink fans a tick's alerts out to every configured sink.
type MultiSink struct {
	sinks map[string]Sink
}

// NewMultiSink builds a fan-out sink from a name->Sink map; names are
// only used for fault reporting.
func NewMultiSink(sinks map[string]Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Deliver calls every sink and collects faults rather than stopping at
// the first failing one.
func (m *MultiSink) Deliver(inserted, removed []aircraft.Alert) []DeliveryFault {
	var faults []DeliveryFault
	for name, sink := range m.sinks {
		if err := sink.Deliver(inserted, removed); err != nil {
			faults = append(faults, DeliveryFault{Sink: name, Err: err})
		}
	}
	return faults
}
