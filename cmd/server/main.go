package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"

	"github.com/franckalain/freshness/internal/app"
	"github.com/franckalain/freshness/internal/config"
	"github.com/franckalain/freshness/internal/metrics"
	"github.com/franckalain/freshness/internal/server"
)

func main() {
	config.LoadDotEnv()

	configPath := flag.String("config", config.GetConfigPath(), "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.SetupLogging(os.Stderr); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize catalog and ML service
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	metrics.Register()

	// Initialize and start server
	srv := server.New(a.Pipeline, server.Options{
		StaticDir:       cfg.Server.StaticDir,
		UploadDir:       cfg.Server.UploadDir,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration,
	})
	if err := srv.Start(ctx, ":"+cfg.Server.Port); err != nil {
		log.WithError(err).Error("Server stopped with error")
		a.Close()
		os.Exit(1)
	}
}
