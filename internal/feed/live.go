package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"adsb-tracker/internal/beast"
	"adsb-tracker/internal/sbs"
	"adsb-tracker/pkg/aircraft"
	"adsb-tracker/pkg/models"
)

const defaultEmitInterval = time.Second

// LiveStats reports connection health, renamed from the upstream
// decoder's FeedStats to make room for the fields this package's
// snapshot-accumulating Provider tracks instead of a single tracker.
type LiveStats struct {
	Connected      bool
	LastMessage    time.Time
	MessagesTotal  uint64
	MessagesPerSec float64
	ConnectionTime time.Time
	Reconnects     int
	Host           string
	Port           int
	Format         string
}

// LiveProvider connects to a raw SBS or Beast TCP feed and accumulates
// decoded messages into per-hex snapshots, emitting one Tick every
// emitInterval with the full current state of every aircraft seen
// recently. It reuses the reconnect-with-backoff loop the upstream
// dashboard's feed client used against a single shared tracker, adapted
// here to push Ticks onto a channel instead.
type LiveProvider struct {
	host         string
	port         int
	feedFormat   string
	rxLat        float64
	rxLon        float64
	emitInterval time.Duration

	mu             sync.RWMutex
	current        map[string]aircraft.Snapshot
	connected      bool
	connectionTime time.Time
	lastMessage    time.Time
	messagesTotal  uint64
	messageCount   uint64
	messagesPerSec float64
	reconnects     int

	ticks chan Tick
}

// NewLiveProvider builds a LiveProvider. feedFormat is "sbs" (default)
// or "beast"; rxLat/rxLon seed the Beast decoder's receiver-relative
// position fields when non-zero. tickInterval sets how often the
// accumulated per-hex state is emitted as a Tick; zero falls back to
// defaultEmitInterval.
func NewLiveProvider(host string, port int, feedFormat string, rxLat, rxLon float64, tickInterval time.Duration) *LiveProvider {
	if feedFormat == "" {
		feedFormat = "sbs"
	}
	if tickInterval <= 0 {
		tickInterval = defaultEmitInterval
	}
	return &LiveProvider{
		host:         host,
		port:         port,
		feedFormat:   feedFormat,
		rxLat:        rxLat,
		rxLon:        rxLon,
		emitInterval: tickInterval,
		current:      make(map[string]aircraft.Snapshot),
		ticks:        make(chan Tick, 4),
	}
}

// Run drives the connect/reconnect loop and the periodic tick emitter
// until ctx is done. Call it in its own goroutine before calling Next.
func (p *LiveProvider) Run(ctx context.Context) {
	go p.emitLoop(ctx)
	go p.rateLoop(ctx)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := p.connect(ctx, addr); err != nil {
			p.setConnected(false)
			log.Printf("[FEED] connection error: %v, reconnecting in %v", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
			p.mu.Lock()
			p.reconnects++
			p.mu.Unlock()
		} else {
			backoff = time.Second
		}
	}
}

// Next returns the next emitted tick, blocking until one is ready or
// ctx is done.
func (p *LiveProvider) Next(ctx context.Context) (Tick, error) {
	select {
	case <-ctx.Done():
		return Tick{}, ctx.Err()
	case t := <-p.ticks:
		return t, nil
	}
}

func (p *LiveProvider) emitLoop(ctx context.Context) {
	ticker := time.NewTicker(p.emitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			snaps := make(map[string]aircraft.Snapshot, len(p.current))
			for hex, s := range p.current {
				snaps[hex] = s
			}
			p.mu.RUnlock()
			if len(snaps) == 0 {
				continue
			}
			tick := Tick{NowMs: time.Now().UnixMilli(), Snapshots: snaps}
			select {
			case p.ticks <- tick:
			default:
				log.Printf("[FEED] tick channel full, dropping tick")
			}
		}
	}
}

func (p *LiveProvider) rateLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count := atomic.SwapUint64(&p.messageCount, 0)
			p.mu.Lock()
			p.messagesPerSec = float64(count)
			p.mu.Unlock()
		}
	}
}

func (p *LiveProvider) recordMessage(ac *models.Aircraft) {
	atomic.AddUint64(&p.messageCount, 1)
	atomic.AddUint64(&p.messagesTotal, 1)
	now := time.Now()

	p.mu.Lock()
	p.lastMessage = now
	p.current[ac.ICAO] = snapshotFrom(ac, now)
	p.mu.Unlock()
}

func (p *LiveProvider) setConnected(connected bool) {
	p.mu.Lock()
	p.connected = connected
	if connected {
		p.connectionTime = time.Now()
	}
	p.mu.Unlock()
}

// Stats reports current connection health for a status endpoint.
func (p *LiveProvider) Stats() LiveStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return LiveStats{
		Connected:      p.connected,
		LastMessage:    p.lastMessage,
		MessagesTotal:  atomic.LoadUint64(&p.messagesTotal),
		MessagesPerSec: p.messagesPerSec,
		ConnectionTime: p.connectionTime,
		Reconnects:     p.reconnects,
		Host:           p.host,
		Port:           p.port,
		Format:         p.feedFormat,
	}
}

func (p *LiveProvider) connect(ctx context.Context, addr string) error {
	log.Printf("[FEED] connecting to %s (format: %s)", addr, p.feedFormat)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	log.Printf("[FEED] connected to %s", addr)
	p.setConnected(true)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	if p.feedFormat == "beast" {
		return p.readBeast(conn)
	}
	return p.readSBS(conn)
}

func (p *LiveProvider) readSBS(conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if ac := sbs.ParseMessage(line); ac != nil {
			p.recordMessage(ac)
		}
	}
	if err := scanner.Err(); err != nil {
		p.setConnected(false)
		return fmt.Errorf("read error: %w", err)
	}
	log.Printf("[FEED] connection closed")
	p.setConnected(false)
	return nil
}

func (p *LiveProvider) readBeast(conn net.Conn) error {
	buf := make([]byte, 4096)
	data := make([]byte, 0, 8192)
	parser := beast.NewParser()
	if p.rxLat != 0 || p.rxLon != 0 {
		parser.SetReceiverLocation(p.rxLat, p.rxLon)
	}

	for {
		n, err := conn.Read(buf)
		if err != nil {
			p.setConnected(false)
			if err == io.EOF {
				log.Printf("[FEED] connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		data = append(data, buf[:n]...)

		for {
			msg, consumed := beast.ParseFrame(data)
			if consumed == 0 {
				break
			}
			data = data[consumed:]

			if msg != nil {
				if ac := parser.Decode(msg); ac != nil {
					p.recordMessage(ac)
				}
			}
		}

		if len(data) > 16384 {
			data = data[len(data)-8192:]
		}
	}
}
