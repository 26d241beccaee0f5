package health

import (
	"context"
	"log"
	"runtime"
	"strconv"
	"sync"
	"time"

	"adsb-tracker/internal/config"
	"adsb-tracker/internal/delivery"
	"adsb-tracker/pkg/aircraft"
)

// metricsProvider reads CPU/memory/temperature from the host. Platform
// builds supply their own (metrics_linux.go, metrics_darwin.go,
// metrics_other.go); tests swap it with setMetricsProvider.
type metricsProvider interface {
	CPUPercent(*Monitor) float64
	MemoryUsage() (percent float64, usedMB, totalMB uint64)
	Temperature() float64
}

var provider = newPlatformMetrics()

func setMetricsProvider(p metricsProvider) {
	provider = p
}

type Stats struct {
	CPUPercent    float64       `json:"cpu_percent"`
	MemoryPercent float64       `json:"memory_percent"`
	MemoryUsedMB  uint64        `json:"memory_used_mb"`
	MemoryTotalMB uint64        `json:"memory_total_mb"`
	TempCelsius   float64       `json:"temp_celsius"`
	Uptime        time.Duration `json:"uptime"`
	UptimeString  string        `json:"uptime_string"`
	GoRoutines    int           `json:"goroutines"`
	Platform      string        `json:"platform"`
}

// Monitor polls host metrics on a fixed tick and raises a health alert
// through sink when a configured threshold is crossed. sink may be nil,
// in which case Monitor only tracks stats for GetStats/LogStats.
type Monitor struct {
	startTime  time.Time
	mu         sync.RWMutex
	lastStats  Stats
	thresholds config.HealthThresholdsConfig
	sink       delivery.Sink

	prevIdleTime  uint64
	prevTotalTime uint64
}

func NewMonitor(thresholds config.HealthThresholdsConfig, sink delivery.Sink) *Monitor {
	return &Monitor{
		startTime:  time.Now(),
		thresholds: thresholds,
		sink:       sink,
	}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.lastStats
	stats.Uptime = time.Since(m.startTime)
	stats.UptimeString = stats.Uptime.Round(time.Second).String()
	stats.GoRoutines = runtime.NumGoroutine()

	return stats
}

func (m *Monitor) collect() {
	stats := Stats{
		Uptime:       time.Since(m.startTime),
		UptimeString: time.Since(m.startTime).Round(time.Second).String(),
		GoRoutines:   runtime.NumGoroutine(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}

	stats.CPUPercent = provider.CPUPercent(m)
	stats.MemoryPercent, stats.MemoryUsedMB, stats.MemoryTotalMB = provider.MemoryUsage()
	stats.TempCelsius = provider.Temperature()

	m.mu.Lock()
	m.lastStats = stats
	m.mu.Unlock()

	m.checkThresholds(stats)
}

func (m *Monitor) checkThresholds(stats Stats) {
	if m.sink == nil {
		return
	}

	var alerts []aircraft.Alert
	if m.thresholds.CPUPercent > 0 && stats.CPUPercent > m.thresholds.CPUPercent {
		alerts = append(alerts, m.alert("high CPU usage: "+strconv.FormatFloat(stats.CPUPercent, 'f', 1, 64)+"%"))
	}
	if m.thresholds.MemoryPercent > 0 && stats.MemoryPercent > m.thresholds.MemoryPercent {
		alerts = append(alerts, m.alert("high memory usage: "+strconv.FormatFloat(stats.MemoryPercent, 'f', 1, 64)+"%"))
	}
	if m.thresholds.TempCelsius > 0 && stats.TempCelsius > m.thresholds.TempCelsius {
		alerts = append(alerts, m.alert("high temperature: "+strconv.FormatFloat(stats.TempCelsius, 'f', 1, 64)+"°C"))
	}
	if len(alerts) == 0 {
		return
	}
	if err := m.sink.Deliver(alerts, nil); err != nil {
		log.Printf("[HEALTH] delivery error: %v", err)
	}
}

func (m *Monitor) alert(text string) aircraft.Alert {
	return aircraft.Alert{Type: "health", Hex: "SYSTEM", Text: text, Warn: true}
}

func (m *Monitor) GetUptime() time.Duration {
	return time.Since(m.startTime)
}

func (m *Monitor) LogStats() {
	stats := m.GetStats()
	log.Printf("[HEALTH] CPU: %.1f%%, Memory: %.1f%% (%dMB/%dMB), Temp: %.1f°C, Uptime: %s, Goroutines: %d",
		stats.CPUPercent, stats.MemoryPercent, stats.MemoryUsedMB, stats.MemoryTotalMB,
		stats.TempCelsius, stats.UptimeString, stats.GoRoutines)
}
