package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/allocation-timeline/internal/api"
	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	"github.com/p-blackswan/allocation-timeline/internal/chart"
	"github.com/p-blackswan/allocation-timeline/internal/config"
	"github.com/p-blackswan/allocation-timeline/internal/dataservice"
	"github.com/p-blackswan/allocation-timeline/internal/health"
	"github.com/p-blackswan/allocation-timeline/internal/metrics"
	"github.com/p-blackswan/allocation-timeline/internal/notify"
	"github.com/p-blackswan/allocation-timeline/internal/store"
	"github.com/p-blackswan/allocation-timeline/internal/views"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}
	weekStart, err := cfg.WeekStartDay()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid week start")
	}

	viewCfg := config.DefaultViews()
	if cfg.ViewsFile != "" {
		viewCfg, err = config.LoadViews(cfg.ViewsFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load views file")
		}
		if viewCfg.WeekStart != "" {
			weekStart, _ = config.ParseWeekday(viewCfg.WeekStart)
		}
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("timezone", loc.String()).
		Str("week_start", weekStart.String()).
		Str("default_view", viewCfg.DefaultView).
		Bool("remote_data_service", cfg.RemoteDataService()).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting allocation timeline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	db, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}

	m := metrics.New()
	checker := health.NewChecker(logger)
	checker.Register("store", health.PingCheck(db))

	// Data service: the remote backend when configured, the store otherwise
	var backend dataservice.Service
	if cfg.RemoteDataService() {
		client := dataservice.NewClient(cfg.DataServiceURL, cfg.DataServiceToken,
			cfg.DataServiceTimeout, cfg.DataServiceRetries, logger)
		checker.Register("data_service", health.SoftCheck(health.PingCheck(client)))
		backend = client
		logger.Info().Str("url", cfg.DataServiceURL).Msg("remote data service configured")
	} else {
		backend = dataservice.NewLocal(db, loc, logger)
		logger.Info().Str("db_path", cfg.DBPath).Msg("serving allocations from the local store")
	}
	data := dataservice.Instrument(backend, m)

	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.SlackEnabled() {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger))
		logger.Info().Str("channel", cfg.SlackChannel).Msg("Slack notices enabled")
	} else {
		logger.Info().Msg("Slack not configured, notices go to the log only")
	}

	grids := calendar.NewGridCache(cfg.GridCacheSize)
	grids.OnBuild = m.RecordGridBuild

	registry := views.NewRegistry(data, chart.Options{
		WeekStart: weekStart,
		ShiftDays: viewCfg.DateShiftDays,
		Location:  loc,
		Grids:     grids,
		Notifier:  notify.NewMultiNotifier(notifiers...),
		Recorder:  m,
	}, viewCfg, cfg.ViewCacheSize, func(open int) { m.SetActiveViews(float64(open)) }, logger)

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		AuthConfig: api.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: strings.Join(cfg.CORSOriginList(), ","),
		TLSCert:     cfg.TLSCert,
		TLSKey:      cfg.TLSKey,
	}, api.Deps{
		Data:      data,
		Store:     db,
		Views:     registry,
		Grids:     grids,
		Checker:   checker,
		Metrics:   m,
		Location:  loc,
		WeekStart: weekStart,
	}, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	recordStoreSize := func() {
		size, err := db.DBSizeBytes()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read store size")
			return
		}
		m.SetStoreSize(size)
	}
	recordStoreSize()

	// Audit log retention
	if cfg.RetentionInterval <= 0 {
		cfg.RetentionInterval = time.Hour
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.RetentionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := db.RunRetention(ctx, cfg.AuditRetention); err != nil {
					logger.Warn().Err(err).Msg("audit retention failed")
				}
				recordStoreSize()
			}
		}
	}()

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}
	registry.CloseAll()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}
	logger.Info().Msg("allocation timeline stopped")
}
