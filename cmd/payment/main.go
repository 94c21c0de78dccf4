package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tair/marketplace-payments/docs"
	"github.com/tair/marketplace-payments/internal/config"
	"github.com/tair/marketplace-payments/internal/payment"
	grpcDelivery "github.com/tair/marketplace-payments/internal/payment/delivery/grpc"
	"github.com/tair/marketplace-payments/internal/payment/handler"
	"github.com/tair/marketplace-payments/internal/payment/repository"
	"github.com/tair/marketplace-payments/pkg/logger"
	"github.com/tair/marketplace-payments/pkg/tracing"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.Init("payment-service", true)
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.Init(cfg.Server.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.Server.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.Server.ServiceName).
		Str("environment", cfg.Server.Environment).
		Str("log_level", cfg.Server.LogLevel).
		Bool("per_seller_credentials", cfg.Payments.PerSellerCredentials).
		Msg("Starting payment service")

	// Initialize tracer
	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Server.ServiceName, version, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tracing.Shutdown(ctx, tp); err != nil {
					logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := payment.OpenDatabase(cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Run migrations
	if err := repository.AutoMigrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	rdb := payment.OpenRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := payment.OpenPublisher(ctx, cfg)
	if publisher != nil {
		defer publisher.Close()
	}

	// Initialize service with Wire DI
	svc, err := payment.InitializeService(cfg, db, rdb, payment.EventPublisher(publisher), prometheus.DefaultRegisterer)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize payment service")
	}

	go svc.Sweeper.Run(ctx)

	reporter := grpcDelivery.NewHealthReporter(sqlDB, 10*time.Second)
	go reporter.Run(ctx)
	go startGRPCServer(reporter, cfg.Server.GRPCAddr)

	server := startHTTPServer(svc.Handler, sqlDB, cfg.Server.HTTPAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

func startHTTPServer(paymentHandler *handler.PaymentHandler, db *sql.DB, addr string) *http.Server {
	// Setup router
	router := mux.NewRouter()

	// Get middleware configuration
	middlewareConfig := paymentHandler.GetMiddlewareConfig()

	// Register all middlewares using middleware registration system
	handler.RegisterMiddlewares(router, middlewareConfig)

	// Register routes
	paymentHandler.RegisterRoutes(router)

	// Health check endpoint
	paymentHandler.RegisterHealthCheck(router, db)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Swagger UI
	handler.RegisterSwaggerDocs(router, httpSwagger.WrapHandler)

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Logger.Info().
			Str("addr", addr).
			Str("metrics_endpoint", "/metrics").
			Str("swagger_endpoint", "/swagger/").
			Msg("HTTP server started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()
	return server
}

func startGRPCServer(reporter *grpcDelivery.HealthReporter, addr string) {
	grpcServer := grpcDelivery.NewServer(reporter)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("addr", addr).Msg("Failed to listen for gRPC")
	}

	logger.Logger.Info().Str("addr", addr).Msg("gRPC health server started")

	if err := grpcServer.Serve(lis); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start gRPC server")
	}
}
