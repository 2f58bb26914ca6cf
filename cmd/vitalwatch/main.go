package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pulsecare/vitalwatch/internal/config"
	"github.com/pulsecare/vitalwatch/internal/middleware"
	"github.com/pulsecare/vitalwatch/internal/vitals/api"
	"github.com/pulsecare/vitalwatch/internal/vitals/client"
	"github.com/pulsecare/vitalwatch/internal/vitals/database"
	"github.com/pulsecare/vitalwatch/internal/vitals/service"
	"github.com/pulsecare/vitalwatch/internal/vitals/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Info().Msg("Starting vitalwatch server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := db.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to init schema")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	thresholds := store.NewThresholdStore(db)
	anomalies := store.NewAnomalyStore(db)

	alertsClient := client.NewAlertsClient(cfg.Alerts.BaseURL, config.ParseDuration(cfg.Alerts.Timeout, 2*time.Second))
	usersClient := client.NewUsersClient(cfg.Patients.UsersBaseURL, config.ParseDuration(cfg.Patients.Timeout, 2*time.Second))
	historyClient := client.NewHistoryClient(cfg.Patients.HistoryBaseURL, config.ParseDuration(cfg.Patients.Timeout, 3*time.Second))

	evaluator := service.NewEvaluator(thresholds)
	pipeline := service.NewPipeline(evaluator, anomalies, alertsClient)
	analyzer := service.NewAnalyzer(thresholds, historyClient, anomalies, config.ParseDuration(cfg.Analyze.Window, time.Hour))

	// The consumer lives on its own goroutine so evaluation latency and API
	// latency stay independent of each other.
	source := service.NewRedisSource(rdb, cfg.Telemetry.Channel)
	defer source.Close()
	consumer := service.NewConsumer(source, pipeline, config.ParseDuration(cfg.Telemetry.PollInterval, time.Second))
	if err := consumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start stream consumer")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog)

	vitalsAPI := &api.API{
		Thresholds: thresholds,
		Anomalies:  anomalies,
		Analyzer:   analyzer,
		Patients:   usersClient,
	}
	vitalsAPI.RegisterRoutes(router)

	health := &api.Health{Dependencies: map[string]api.Pinger{
		"postgres": db,
		"redis": api.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	}}
	health.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: cfg.Server.BindAddr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.Server.BindAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("start vitalwatch server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	consumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	log.Info().Msg("vitalwatch server exit")
}
