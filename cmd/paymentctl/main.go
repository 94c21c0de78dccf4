package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tair/marketplace-payments/internal/config"
	"github.com/tair/marketplace-payments/internal/payment"
	"github.com/tair/marketplace-payments/kafka"
	"github.com/tair/marketplace-payments/pkg/logger"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "paymentctl",
		Short:         "paymentctl - operate the marketplace payment service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default CONFIG_PATH or configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(sweepCmd(&configPath))
	rootCmd.AddCommand(credentialsCmd(&configPath))
	rootCmd.AddCommand(eventsCmd(&configPath))

	return rootCmd
}

// app holds the connections a command needs. close releases all of them.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	rdb       *redis.Client
	publisher *kafka.Publisher
	svc       *payment.Service
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init("paymentctl", true)
	logger.SetLevel(cfg.Server.LogLevel)
	return cfg, nil
}

func openApp(ctx context.Context, path string) (*app, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	db, err := payment.OpenDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &app{cfg: cfg, db: db}
	a.rdb = payment.OpenRedis(ctx, cfg)
	a.publisher = payment.OpenPublisher(ctx, cfg)

	a.svc, err = payment.InitializeService(cfg, db, a.rdb, payment.EventPublisher(a.publisher), prometheus.NewRegistry())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initialize service: %w", err)
	}
	return a, nil
}

func (a *app) close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
