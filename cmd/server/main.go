package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sample-app/config"
	"sample-app/internal/api"
	"sample-app/internal/broker"
	"sample-app/internal/service"
	"sample-app/internal/store"
	"sample-app/internal/util"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.AppName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting sample app", zap.String("version", cfg.Server.Version))

	tp, err := util.InitTracer(util.TracerConfig{
		ServiceName:    cfg.Server.AppName,
		ServiceVersion: cfg.Server.Version,
		Environment:    cfg.Server.Env,
		Exporter:       cfg.Observ.TraceExporter,
		JaegerEndpoint: cfg.Observ.JaegerEndpoint,
		OTLPEndpoint:   cfg.Observ.OTLPEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	inventory := store.NewInventory(store.SeedUsers(), store.SeedProducts())
	ledger := store.NewLedger()

	var publisher service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	catalogService := service.NewCatalogService(inventory)
	orderService := service.NewOrderService(inventory, ledger, publisher, service.DelayRange{
		Min: cfg.Business.OrderDelayMin,
		Max: cfg.Business.OrderDelayMax,
	})

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalogService, orderService, api.Config{
		Version:        cfg.Server.Version,
		RequestTimeout: cfg.Server.RequestTimeout,
		SlowDelay: service.DelayRange{
			Min: cfg.Business.SlowDelayMin,
			Max: cfg.Business.SlowDelayMax,
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           api.Instrument(router, otel.GetTracerProvider()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
