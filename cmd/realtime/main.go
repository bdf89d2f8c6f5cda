package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/campusperks/realtime-service/internal/config"
	"github.com/campusperks/realtime-service/internal/events"
	"github.com/campusperks/realtime-service/internal/handlers"
	"github.com/campusperks/realtime-service/internal/hub"
	"github.com/campusperks/realtime-service/internal/logger"
	"github.com/campusperks/realtime-service/internal/metrics"
	"github.com/campusperks/realtime-service/internal/middleware"
	"github.com/campusperks/realtime-service/internal/presence"
	"github.com/campusperks/realtime-service/internal/repository"
	"github.com/campusperks/realtime-service/internal/retention"
	"github.com/campusperks/realtime-service/internal/routes"
	"github.com/campusperks/realtime-service/internal/service"
	"github.com/campusperks/realtime-service/internal/stream"
	"github.com/campusperks/realtime-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logg, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := repository.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		logg.Fatalw("mongo connect", "err", err)
	}
	defer mongoClient.Disconnect(context.Background())

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	metrics.Init()

	db := mongoClient.Database(cfg.Mongo.Database)
	repo := repository.NewNotificationRepo(db)

	h := hub.New(logg)
	emitter := events.NewEmitter(h, logg)
	svc := service.New(repo, emitter, logg)
	pres := presence.NewStore(rdb, cfg.Redis.Prefix)
	wsh := ws.NewHandler(h, svc, pres, cfg, logg)

	dlq := stream.NewDLQProducer(cfg.Kafka.Brokers, cfg.Kafka.DLQTopic)
	defer dlq.Close()
	streamHandler := stream.NewHandler(svc, emitter, dlq, cfg.Kafka.MaxRetries, cfg.Kafka.RetryBackoffMs, logg)
	consumer := stream.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.GroupID, streamHandler, logg)
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logg.Errorw("kafka consumer stopped", "err", err)
		}
	}()

	sweeper := retention.NewSweeper(repo, cfg.RetentionAge, cfg.SweepInterval, logg)
	go sweeper.Run(ctx)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Errorw("metrics listener", "err", err)
		}
	}()

	limiter := middleware.NewRateLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit.CreateLimit, cfg.RateWindow)

	app := fiber.New(fiber.Config{
		AppName:               "realtime-service",
		DisableStartupMessage: cfg.App.Env == "production",
	})
	handler := handlers.New(svc, pres)
	routes.Register(app, handler, wsh, cfg.JWT.Secret, limiter)

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logg.Infow("starting realtime service", "addr", addr, "metrics_port", cfg.App.MetricsPort)
		errs <- app.Listen(addr)
	}()

	select {
	case err := <-errs:
		logg.Fatalw("server error", "err", err)
	case <-ctx.Done():
		logg.Infow("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Errorw("fiber shutdown", "err", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logg.Errorw("metrics shutdown", "err", err)
	}
	logg.Infow("shutdown complete")
}
