package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"coach-backend/internal/config"
	"coach-backend/internal/handlers"
	"coach-backend/internal/router"
	"coach-backend/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.Info().Msg("environment variables loaded")

	// ──── Step 2: Initialize Completion Source ────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := services.NewCompletionSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("completion source initialization failed: %w", err)
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}

	if env := cfg.CredentialEnv(); env != "" && !cfg.HasCredential() {
		logger.Warn().Str("variable", env).Msg("credential not configured, chat requests will fail until it is set")
	}
	logger.Info().
		Str("source", source.Name()).
		Bool("credential_configured", cfg.HasCredential()).
		Dur("handler_timeout", cfg.HandlerTimeout).
		Msg("completion source initialized")

	// ──── Step 3: Initialize Handlers ────
	chatHandler := handlers.NewChatHandler(source, cfg.HandlerTimeout, logger)
	smokeHandler := handlers.NewSmokeHandler()

	// ──── Step 4: Start HTTP Server ────
	r := router.New(logger, chatHandler, smokeHandler, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HandlerTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msgf("coach backend ready on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.IsDevelopment() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "coach-backend").Logger()
}
