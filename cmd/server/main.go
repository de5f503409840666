// Package main starts the console gateway: a local JSON API through
// which view code reads the session and the payments list, setting up
// configuration, logging, storage, the session components and routing.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/opsconsole/internal/config"
	"github.com/atinyakov/opsconsole/internal/console"
	"github.com/atinyakov/opsconsole/internal/logger"
	"github.com/atinyakov/opsconsole/internal/server/handler/http"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))
	if options.Version {
		return
	}

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wire storage, credential store, executor, profile cache and controller.
	c, err := console.Open(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init console", zap.Error(err))
	}
	defer func() { _ = c.Close() }()

	// Periodically drop an expired profile snapshot.
	sweeper := c.Profiles.StartSweeper(ctx, options.SweepInterval.Duration, nil)
	defer sweeper.Stop()

	// Create HTTP handlers for session and payments endpoints.
	sessionHandler := &http.SessionHandler{SessionService: c.Session}
	paymentsHandler := &http.PaymentsHandler{PaymentsService: c.Payments, Limit: options.PageLimit}

	// Build the router with middleware and routes.
	router := http.NewRouter(sessionHandler, paymentsHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zapLogger.Info("starting gateway", zap.String("addr", options.Listen), zap.String("api", options.APIURL))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start gateway", zap.Error(err))
	}
}
