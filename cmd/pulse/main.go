package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/notifier"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/scheduler"
	"MarketPulse/internal/server"
	"MarketPulse/internal/snapshot"
	"MarketPulse/internal/strategy"

	"github.com/rs/zerolog"
)

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		newLogger("info", true).Fatal().Err(err).Msg("load config")
	}
	log := newLogger(cfg.Log.Level, cfg.Log.Pretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Msg("MarketPulse starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init feeds
	var feeds []collector.Feed
	if cfg.PolygonConfigured() {
		feeds = append(feeds, collector.NewPolygonFeed(collector.PolygonConfig{
			APIKey:     cfg.Polygon.APIKey,
			BaseURL:    cfg.Polygon.BaseURL,
			RatePerSec: cfg.Polygon.RatePerSec,
			Proxy:      cfg.Proxy,
			Logger:     log,
		}))
	} else {
		log.Warn().Msg("POLYGON_API_KEY not set: analysis requests will fail with not_configured and the scanner stays idle")
	}
	if cfg.Yahoo.Enabled {
		feeds = append(feeds, collector.NewYahooFeed(cfg.Proxy, log))
	}
	feed := collector.NewChain(feeds...)
	log.Info().Str("feeds", feed.Name()).Msg("data sources")

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	// Init snapshot cache
	var store snapshot.Store = snapshot.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rs, err := snapshot.NewRedisStore(ctx, snapshot.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory snapshot cache")
		} else {
			store = rs
			defer rs.Close()
		}
	}

	engine := strategy.NewEngine(cfg.Signal.ShortWindow, cfg.Signal.LongWindow)
	resolver := snapshot.NewResolver(feed, store, engine, rec, log)
	svc := snapshot.NewService(resolver, cfg.PolygonConfigured())

	scanner := scheduler.NewScanner(feed, scheduler.ScannerConfig{
		UniverseSize: cfg.Scanner.UniverseSize,
		MoversSize:   cfg.Scanner.MoversSize,
		Workers:      cfg.Scanner.Workers,
	}, rec, log)

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scanner, svc, sender, log)
	sched.DigestMinChange = cfg.Telegram.DigestMinChange
	if cfg.PolygonConfigured() {
		if err := sched.RegisterAll(cfg.Scanner.Interval, cfg.Scanner.UniverseCron); err != nil {
			log.Fatal().Err(err).Msg("register cron tasks")
		}
		sched.Start()
		defer sched.Stop()
	}

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Start HTTP server
	srv := server.NewServer(server.Config{Addr: cfg.Server.Addr}, svc, scanner, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	log.Info().Msg("MarketPulse is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	log.Info().Msg("MarketPulse stopped")
}
