package config

import (
	"encoding/json"
	"os"
	"time"

	"adsb-tracker/internal/detect"
)

// ObserverConfig is the fixed ground-station position every detector's
// TickContext.Observer is built from.
type ObserverConfig struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	AltM float64 `json:"alt_m"`
}

// FeedConfig configures the live SBS/Beast ingestion provider.
type FeedConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Format string `json:"format"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// RefdataConfig selects where the airport index and squawk table load
// from: JSON files by default, or a Postgres database when DSN-style
// Database fields are set and a DSN flag is passed on the command line.
type RefdataConfig struct {
	AirportsPath string         `json:"airports_path"`
	SquawksPath  string         `json:"squawks_path"`
	UseDatabase  bool           `json:"-"`
	Database     DatabaseConfig `json:"database"`
}

// DeliveryConfig configures the alert sinks.
type DeliveryConfig struct {
	HTTPAddr          string `json:"http_addr"`
	DiscordWebhookURL string `json:"discord_webhook_url"`
}

// HealthThresholdsConfig configures when the health monitor raises an
// alert through the delivery sinks. Zero disables a given check.
type HealthThresholdsConfig struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	TempCelsius   float64 `json:"temp_celsius"`
}

type Config struct {
	Observer        ObserverConfig         `json:"observer"`
	Feed            FeedConfig             `json:"feed"`
	Detectors       detect.Config          `json:"-"`
	Refdata         RefdataConfig          `json:"refdata"`
	Delivery        DeliveryConfig         `json:"delivery"`
	Health          HealthThresholdsConfig `json:"health"`
	TickInterval    time.Duration          `json:"-"`
	TickBudget      time.Duration          `json:"-"`
	DisabledFilters []string               `json:"disabled_filters"`
	LogLevel        string                 `json:"log_level"`
}

func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			Host:   "127.0.0.1",
			Port:   30003,
			Format: "sbs",
		},
		Detectors: detect.DefaultConfig(),
		Refdata: RefdataConfig{
			AirportsPath: "airports.json",
			SquawksPath:  "squawks.json",
			Database: DatabaseConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "postgres",
				DBName:  "skywatch",
				SSLMode: "disable",
			},
		},
		Delivery: DeliveryConfig{
			HTTPAddr: ":8080",
		},
		TickInterval: time.Second,
		TickBudget:   2 * time.Second,
		LogLevel:     "info",
	}
}

// Load reads path as a JSON overlay atop Default(). A missing file is
// not an error: every field just keeps its default, the same way CLI
// flags are expected to overlay on top afterward.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var fileCfg struct {
		Observer        ObserverConfig         `json:"observer"`
		Feed            FeedConfig             `json:"feed"`
		TickInterval    string                 `json:"tick_interval"`
		TickBudget      string                 `json:"tick_budget"`
		Refdata         RefdataConfig          `json:"refdata"`
		Delivery        DeliveryConfig         `json:"delivery"`
		Health          HealthThresholdsConfig `json:"health"`
		DisabledFilters []string               `json:"disabled_filters"`
		LogLevel        string                 `json:"log_level"`
		Detectors       json.RawMessage        `json:"detectors"`
	}

	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return nil, err
	}
	if len(fileCfg.Detectors) > 0 {
		if err := json.Unmarshal(fileCfg.Detectors, &cfg.Detectors); err != nil {
			return nil, err
		}
	}

	if fileCfg.Observer != (ObserverConfig{}) {
		cfg.Observer = fileCfg.Observer
	}
	if fileCfg.Feed.Host != "" {
		cfg.Feed.Host = fileCfg.Feed.Host
	}
	if fileCfg.Feed.Port != 0 {
		cfg.Feed.Port = fileCfg.Feed.Port
	}
	if fileCfg.Feed.Format != "" {
		cfg.Feed.Format = fileCfg.Feed.Format
	}
	if fileCfg.TickInterval != "" {
		if d, err := time.ParseDuration(fileCfg.TickInterval); err == nil {
			cfg.TickInterval = d
		}
	}
	if fileCfg.TickBudget != "" {
		if d, err := time.ParseDuration(fileCfg.TickBudget); err == nil {
			cfg.TickBudget = d
		}
	}
	if fileCfg.Refdata.AirportsPath != "" {
		cfg.Refdata.AirportsPath = fileCfg.Refdata.AirportsPath
	}
	if fileCfg.Refdata.SquawksPath != "" {
		cfg.Refdata.SquawksPath = fileCfg.Refdata.SquawksPath
	}
	if fileCfg.Refdata.Database.Host != "" {
		cfg.Refdata.Database = fileCfg.Refdata.Database
	}
	if fileCfg.Delivery.HTTPAddr != "" {
		cfg.Delivery.HTTPAddr = fileCfg.Delivery.HTTPAddr
	}
	if fileCfg.Delivery.DiscordWebhookURL != "" {
		cfg.Delivery.DiscordWebhookURL = fileCfg.Delivery.DiscordWebhookURL
	}
	if fileCfg.Health != (HealthThresholdsConfig{}) {
		cfg.Health = fileCfg.Health
	}
	if len(fileCfg.DisabledFilters) > 0 {
		cfg.DisabledFilters = fileCfg.DisabledFilters
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}

	return cfg, nil
}
