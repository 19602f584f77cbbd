package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"saree-studio/internal/config"
	"saree-studio/internal/gemini"
	"saree-studio/internal/httpclient"
	"saree-studio/internal/refimage"
	"saree-studio/internal/render"
	"saree-studio/internal/session"
	"saree-studio/internal/studio"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	renderer := render.New(render.Options{
		Service: gem,
		Encoder: refimage.New(refimage.Options{HTTPClient: httpClient, Logger: logger}),
		Tiers: render.Tiers{
			Preview: cfg.PreviewModel,
			Final:   cfg.FinalModel,
			Motif:   cfg.MotifModel,
		},
		Logger: logger,
	})

	svc, err := studio.New(studio.Options{
		Renderer:      renderer,
		Logger:        logger,
		MotifCount:    cfg.MotifCount,
		MaxMotifCount: cfg.MaxMotifCount,
	})
	if err != nil {
		logger.Error("studio init failed", "err", err)
		os.Exit(1)
	}

	sessions := session.NewStore(session.Options{
		TTL: cfg.SessionTTL,
		OnExpire: func(id string) {
			logger.Info("session closed", "session", id)
		},
	})

	s := &server{
		studio:         svc,
		sessions:       sessions,
		logger:         logger,
		requestTimeout: cfg.RequestTimeout,
	}

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "preview_model", cfg.PreviewModel, "final_model", cfg.FinalModel)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	logger.Info("shutting down")
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
