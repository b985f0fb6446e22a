package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/menu/config"
	"github.com/ray-remotestate/menu/database"
	"github.com/ray-remotestate/menu/database/dbhelper"
	"github.com/ray-remotestate/menu/server"
	"github.com/ray-remotestate/menu/storage"
	"github.com/ray-remotestate/menu/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.ConfigureLogger()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	if err := database.ConnectAndMigrate(cfg.Database); err != nil {
		logrus.Panicf("failed to initialize database, error: %v", err)
	}
	logrus.Println("migration is successful")

	ctx := context.Background()
	if cfg.Seed.AdminUsername != "" {
		if err := dbhelper.SeedAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword); err != nil {
			logrus.Panicf("failed to seed admin, error: %v", err)
		}
	}
	if cfg.Seed.SampleData {
		if err := dbhelper.SeedSampleMenu(ctx); err != nil {
			logrus.Panicf("failed to seed sample menu, error: %v", err)
		}
	}

	images, err := storage.NewImageStore(cfg.Upload)
	if err != nil {
		logrus.Panicf("failed to prepare image storage, error: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.SetupRoutes(server.Dependencies{
		Tokens:         utils.NewTokenManager(cfg.Auth),
		Images:         images,
		AllowedOrigins: cfg.AllowedOrigins,
		Registry:       registry,
	})

	go func() {
		logrus.Infof("server listening on :%s", cfg.Port)
		if err := srv.Run(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Panicf("failed to run server with error: %v", err)
		}
	}()

	<-done

	logrus.Info("shutting down...")
	if err := srv.Shutdown(cfg.ShutdownTimeout); err != nil {
		logrus.WithError(err).Error("failed to gracefully shutdown server")
	}
	if err := database.ShutdownDatabase(); err != nil {
		logrus.WithError(err).Error("failed to close database connection!")
	}

	logrus.Info("system is shut ..zzz")
}
