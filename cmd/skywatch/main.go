package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"adsb-tracker/internal/config"
	"adsb-tracker/internal/database"
	"adsb-tracker/internal/delivery"
	"adsb-tracker/internal/detect"
	"adsb-tracker/internal/feed"
	"adsb-tracker/internal/health"
	"adsb-tracker/internal/pipeline"
	"adsb-tracker/internal/refdata"
	"adsb-tracker/pkg/aircraft"
)

// repeatedFlag collects a flag passed more than once (-priority-airport
// EGLL -priority-airport EGKK) into a slice.
type repeatedFlag []string

func (f *repeatedFlag) String() string { return strings.Join(*f, ",") }
func (f *repeatedFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	configFile := flag.String("config", "config.json", "path to config file")
	observerLat := flag.Float64("observer-lat", 0, "observer latitude")
	observerLon := flag.Float64("observer-lon", 0, "observer longitude")
	observerAltM := flag.Float64("observer-alt-m", 0, "observer altitude, metres")
	tickInterval := flag.Duration("tick-interval", 0, "pipeline tick interval")
	tickBudget := flag.Duration("tick-budget", 0, "wall-clock budget per tick before remaining filters are truncated")
	feedHost := flag.String("feed-host", "", "SBS/Beast feed host")
	feedPort := flag.Int("feed-port", 0, "SBS/Beast feed port")
	feedFormat := flag.String("feed-format", "", "feed format: sbs or beast")
	httpAddr := flag.String("http-addr", "", "websocket hub listen address")
	discordWebhook := flag.String("discord-webhook", "", "Discord webhook URL for alert delivery")
	refdataDSN := flag.String("refdata-dsn", "", "when set, load reference data from the Postgres database described in config.json instead of its JSON files")
	logLevel := flag.String("log-level", "", "slog level: debug, info, warn, error")
	var disabledFilters repeatedFlag
	flag.Var(&disabledFilters, "disable-filter", "filter ID to disable (repeatable)")
	var priorityAirports repeatedFlag
	flag.Var(&priorityAirports, "priority-airport", "ICAO code to treat as a priority airport (repeatable)")
	var watchlistSquawks repeatedFlag
	flag.Var(&watchlistSquawks, "watchlist-squawk", "four-digit octal squawk code to watch for (repeatable)")
	flag.Parse()

	var logLevelVar slog.LevelVar
	logLevelVar.Set(parseLevel(*logLevel))
	logHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevelVar})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	stdLogger := slog.NewLogLogger(logHandler, slog.LevelInfo)
	log.SetOutput(stdLogger.Writer())
	log.SetFlags(0)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[MAIN] failed to load config: %v", err)
	}
	if *logLevel == "" {
		logLevelVar.Set(parseLevel(cfg.LogLevel))
	}

	if *observerLat != 0 {
		cfg.Observer.Lat = *observerLat
	}
	if *observerLon != 0 {
		cfg.Observer.Lon = *observerLon
	}
	if *observerAltM != 0 {
		cfg.Observer.AltM = *observerAltM
	}
	if *tickInterval != 0 {
		cfg.TickInterval = *tickInterval
	}
	if *tickBudget != 0 {
		cfg.TickBudget = *tickBudget
	}
	if *feedHost != "" {
		cfg.Feed.Host = *feedHost
	}
	if *feedPort != 0 {
		cfg.Feed.Port = *feedPort
	}
	if *feedFormat != "" {
		cfg.Feed.Format = *feedFormat
	}
	if *httpAddr != "" {
		cfg.Delivery.HTTPAddr = *httpAddr
	}
	if *discordWebhook != "" {
		cfg.Delivery.DiscordWebhookURL = *discordWebhook
	}
	if *refdataDSN != "" {
		cfg.Refdata.UseDatabase = true
	}
	if len(disabledFilters) > 0 {
		cfg.DisabledFilters = disabledFilters
	}
	cfg.Detectors.Airport.PriorityAirports = append(cfg.Detectors.Airport.PriorityAirports, priorityAirports...)
	cfg.Detectors.Squawk.Watchlist = append(cfg.Detectors.Squawk.Watchlist, watchlistSquawks...)

	logger.Info("starting skywatch",
		"feed_host", cfg.Feed.Host, "feed_port", cfg.Feed.Port, "feed_format", cfg.Feed.Format,
		"observer_lat", cfg.Observer.Lat, "observer_lon", cfg.Observer.Lon)

	airports, squawks, err := loadRefdata(cfg.Refdata)
	if err != nil {
		log.Fatalf("[MAIN] failed to load reference data: %v", err)
	}
	airportIdx := refdata.NewAirportIndex(airports)
	squawkTable := refdata.NewSquawkTable(squawks)
	logger.Info("reference data loaded", "airports", len(airports), "squawk_ranges", squawkTable.Count())

	stores := pipeline.NewTrajectoryStores()
	skip := make(map[string]bool, len(cfg.DisabledFilters))
	for _, id := range cfg.DisabledFilters {
		skip[id] = true
	}
	var filters []pipeline.Filter
	for _, f := range []pipeline.Filter{
		pipeline.NewOverheadFilter(cfg.Detectors.Overhead, stores),
		pipeline.NewAirportFilter(cfg.Detectors.Airport, airportIdx, stores),
		pipeline.NewAirproxFilter(cfg.Detectors.Airprox),
		pipeline.NewLoiterFilter(cfg.Detectors.Loitering, stores),
		pipeline.NewSquawkFilter(cfg.Detectors.Squawk, squawkTable),
		pipeline.NewPerformanceFilter(cfg.Detectors.Performance),
	} {
		if !skip[f.ID()] {
			filters = append(filters, f)
		}
	}
	engine := pipeline.NewEngine(filters, stores)
	engine.SetBudget(cfg.TickBudget)

	hub := delivery.NewHub()
	sinks := map[string]delivery.Sink{
		"log": delivery.NewLogSink(engine.Formatters()),
		"hub": hub,
	}
	if cfg.Delivery.DiscordWebhookURL != "" {
		sinks["discord"] = delivery.NewDiscordSink(cfg.Delivery.DiscordWebhookURL)
		logger.Info("discord alert delivery enabled")
	}
	multiSink := delivery.NewMultiSink(sinks)

	healthMonitor := health.NewMonitor(cfg.Health, multiSink)
	readiness := health.NewReadiness()

	provider := feed.NewLiveProvider(cfg.Feed.Host, cfg.Feed.Port, cfg.Feed.Format, cfg.Observer.Lat, cfg.Observer.Lon, cfg.TickInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	httpServer := &http.Server{Addr: cfg.Delivery.HTTPAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	groupCtx, groupCancel := context.WithCancel(ctx)
	defer groupCancel()

	var wg sync.WaitGroup
	var groupErr error
	var groupErrMu sync.Mutex
	setGroupErr := func(err error) {
		groupErrMu.Lock()
		if groupErr == nil {
			groupErr = err
		}
		groupErrMu.Unlock()
	}

	runComponent := func(name string, fn func(context.Context) error) {
		readiness.MarkNotReady(name, "starting")
		wg.Add(1)
		go func() {
			defer wg.Done()
			readiness.MarkReady(name)
			logger.Info("component running", "component", name)
			defer readiness.MarkNotReady(name, "stopped")
			if err := fn(groupCtx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Error("component exited", "component", name, "error", err)
				setGroupErr(err)
				groupCancel()
				return
			}
			logger.Info("component exited", "component", name)
		}()
	}

	runComponent("feed", func(ctx context.Context) error {
		provider.Run(ctx)
		return ctx.Err()
	})

	runComponent("hub", func(ctx context.Context) error {
		hub.Run()
		return ctx.Err()
	})

	if ds, ok := sinks["discord"].(*delivery.DiscordSink); ok {
		runComponent("discord", func(ctx context.Context) error {
			ds.Run(ctx)
			return ctx.Err()
		})
	}

	runComponent("health_monitor", func(ctx context.Context) error {
		healthMonitor.Run(ctx)
		return ctx.Err()
	})

	runComponent("engine", func(ctx context.Context) error {
		return runEngine(ctx, engine, provider, cfg.Observer, multiSink)
	})

	runComponent("http_server", func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.ListenAndServe() }()

		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
				return err
			}
			if err := <-errCh; err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	})

	wg.Wait()
	if err := groupErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service error", "error", err)
	}
	logger.Info("shutdown complete")
}

// runEngine drives one engine.Tick per provider.Next, delivering its
// result to every sink and logging any filter fault. It is the one
// place a tick's wall-clock value (tick.NowMs, set by the provider)
// enters the pipeline; the engine and every detector it calls treat it
// as opaque.
func runEngine(ctx context.Context, engine *pipeline.Engine, provider feed.Provider, observer config.ObserverConfig, sink *delivery.MultiSink) error {
	for {
		tick, err := provider.Next(ctx)
		if err != nil {
			if errors.Is(err, feed.ErrExhausted) || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return err
		}

		tc := detect.TickContext{NowMs: tick.NowMs}
		tc.Observer.Lat = observer.Lat
		tc.Observer.Lon = observer.Lon
		tc.Observer.AltM = observer.AltM

		result := engine.Tick(tc, tick.Snapshots)
		for _, fault := range result.Faults {
			log.Printf("[PIPELINE] fault: filter=%s phase=%s hex=%s err=%v", fault.FilterID, fault.Phase, fault.Hex, fault.Err)
		}
		if faults := sink.Deliver(result.Inserted, result.Removed); len(faults) > 0 {
			for _, f := range faults {
				log.Printf("[DELIVERY] sink %s failed: %v", f.Sink, f.Err)
			}
		}
	}
}

func loadRefdata(cfg config.RefdataConfig) (airports []aircraft.Airport, squawks []aircraft.SquawkRange, err error) {
	if cfg.UseDatabase {
		dbCfg := database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		airports, err = refdata.LoadAirportsFromDB(dbCfg)
		if err != nil {
			return nil, nil, err
		}
		squawks, err = refdata.LoadSquawkRangesFromDB(dbCfg)
		if err != nil {
			return nil, nil, err
		}
		return airports, squawks, nil
	}

	airports, err = refdata.LoadAirportsFromFile(cfg.AirportsPath)
	if err != nil {
		return nil, nil, err
	}
	squawks, err = refdata.LoadSquawksFromFile(cfg.SquawksPath)
	if err != nil {
		return nil, nil, err
	}
	return airports, squawks, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
