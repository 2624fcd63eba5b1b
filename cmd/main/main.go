package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the application logger at the configured level.
func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

// serve runs the HTTP API until a shutdown signal or API action arrives,
// restarting the whole cycle on request.
func serve(configPath string) error {
	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan // Wait for a signal
		baseLogger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := run(configPath, actionChan)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
			return err
		}

		if action == actionRestart {
			baseLogger.Info("--- Server Restarting ---")
			continue
		}
		break
	}

	baseLogger.Info("Composer has shut down.")
	return nil
}

// run is the main loop that hosts the server, and returns whenever the server is shutdown or restarted
func run(configPath string, actionChan chan string) (string, error) {

	cm, err := NewConfigManager(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	config := cm.Get()

	logger := newLogger(os.Stdout, config.Server.LogLevel)
	cm.SetLogger(logger)
	logger.Info("Starting server cycle...")

	db, store, err := openStore(config.Server, logger)
	if err != nil {
		return "", err
	}

	server := NewServer(cm, logger, db, store, actionChan)
	apiHttpServer := &http.Server{
		Addr:              config.Server.ServerAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serveUntilAction(apiHttpServer, actionChan, logger, func() {
		logger.Info("Closing database connection.")
		store.Close()
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	})
}

// serveUntilAction runs srv until an action arrives on actionChan or the
// listener fails, then shuts it down and calls cleanup. A listener failure is
// returned as an error.
func serveUntilAction(srv *http.Server, actionChan chan string, logger *slog.Logger, cleanup func()) (string, error) {
	defer cleanup()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting composer api server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var action string
	select {
	case action = <-actionChan: // API or OS signal
	case err := <-serveErr:
		logger.Error("Api server failed", "error", err)
		return "", fmt.Errorf("api server failed: %w", err)
	}

	logger.Info("Stopping server for " + action + "...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Api server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")

	return action, nil
}
