package delivery

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"adsb-tracker/pkg/aircraft"
)

func TestDiscordSinkPostsInsertedAlert(t *testing.T) {
	var received int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&received, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := NewDiscordSink(server.URL)
	sink.post(aircraft.Alert{Hex: "abc123", Type: "squawk", Text: "emergency squawk 7700", Warn: true})

	if atomic.LoadInt32(&received) != 1 {
		t.Fatalf("expected the webhook to receive exactly one post, got %d", received)
	}
}

func TestDiscordSinkRateLimitsRepeats(t *testing.T) {
	sink := NewDiscordSink("http://example.invalid")
	if !sink.shouldSend("squawk:abc123") {
		t.Fatal("expected the first send for a key to be allowed")
	}
	if sink.shouldSend("squawk:abc123") {
		t.Fatal("expected a repeat send within the rate-limit window to be suppressed")
	}
}

func TestDiscordSinkNoopsWithoutWebhookURL(t *testing.T) {
	sink := NewDiscordSink("")
	if err := sink.Deliver([]aircraft.Alert{{Hex: "abc123"}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-sink.events:
		t.Fatal("expected no event to be queued when webhookURL is empty")
	case <-time.After(10 * time.Millisecond):
	}
}
