package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	httpadapter "github.com/seismowatch/quake-alert-service/internal/adapter/http"
	"github.com/seismowatch/quake-alert-service/internal/audio"
	"github.com/seismowatch/quake-alert-service/internal/config"
	"github.com/seismowatch/quake-alert-service/internal/dispatch"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/export"
	"github.com/seismowatch/quake-alert-service/internal/feed"
	"github.com/seismowatch/quake-alert-service/internal/observability"
	"github.com/seismowatch/quake-alert-service/internal/pipeline"
	"github.com/seismowatch/quake-alert-service/internal/presence"
	"github.com/seismowatch/quake-alert-service/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feedClient := feed.NewClient(cfg.FeedBaseURL, cfg.QueryBaseURL, cfg.FeedTimeout, logger)
	region := feed.RegionFilter{
		Center:       domain.Geo{Lat: cfg.CenterLat, Lon: cfg.CenterLon},
		RadiusKm:     cfg.RadiusKm,
		MinMagnitude: cfg.MinMagnitude,
	}
	fetcher := feed.Select(feedClient, region, feed.Window(cfg.FeedWindow), clk, logger, metrics)

	// Headless deployments carry no audio device or media player; the engine
	// degrades every play to the silent tier.
	handle := audio.NewHandle(nil, clk)
	engine := audio.NewEngine(handle, nil, cfg.ConstrainedAudio, clk, logger, metrics)

	surface := dispatch.NewLogSurface(logger)
	permission := func() domain.PermissionState { return domain.PermissionGranted }
	dispatcher := dispatch.New(surface, engine, permission, nil,
		cfg.ViewerLanguage, cfg.UrgentThreshold, clk, logger, metrics)

	// Kafka export (feature-flagged via KAFKA_BROKERS).
	var (
		exporter pipeline.Exporter
		writer   *export.Writer
	)
	if cfg.ExportEnabled {
		writer = export.NewWriter(cfg.KafkaBrokers, cfg.KafkaExportTopic, logger, metrics)
		exporter = writer
		logger.Info("kafka export enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaExportTopic)
	} else {
		logger.Info("kafka export disabled")
	}

	// Realtime broadcast bridge (feature-flagged via REALTIME_URL). The
	// handler closes over p, which is assigned before the first subscribe
	// attempt can fire.
	var (
		p      *pipeline.Pipeline
		bridge pipeline.Broadcaster
	)
	if cfg.RealtimeEnabled {
		bridge = realtime.New(cfg.RealtimeURL, func(ctx context.Context, msg domain.AlertMessage) {
			p.HandleBroadcast(ctx, msg)
		}, logger, metrics)
		logger.Info("realtime broadcast bridge enabled", "url", cfg.RealtimeURL)
	} else {
		logger.Info("realtime broadcast bridge disabled")
	}

	p = pipeline.New(fetcher, cfg.PollInterval, dispatcher, exporter, bridge, clk, logger, metrics)

	// Presence registry (feature-flagged via REDIS_ADDR).
	var store *presence.RedisStore
	if cfg.PresenceEnabled {
		store, err = presence.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("presence store connection failed", "error", err)
			os.Exit(1)
		}
		registry := presence.NewRegistry(store, "quakewatchd", domain.PermissionGranted,
			cfg.HeartbeatInterval, clk, logger, metrics)
		go registry.Run(ctx)
		logger.Info("presence registry enabled", "session_id", registry.SessionID())
	} else {
		logger.Info("presence registry disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, feedClient, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go p.Run(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("presence store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
