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

	"github.com/josinaldojr/smart-assistant/internal/app"
	"github.com/josinaldojr/smart-assistant/internal/config"
	apphttp "github.com/josinaldojr/smart-assistant/internal/http"
	"github.com/josinaldojr/smart-assistant/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to init components", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	h := apphttp.NewHandler(a.Service, a.Importer, cfg.QueryTimeout)
	router := apphttp.NewRouter(h, cfg.StaticDir)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(apphttp.CORS(cfg.AllowedOrigins)(apphttp.Logging(router)), "smart-assistant"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("API listening", "addr", srv.Addr, "static_dir", cfg.StaticDir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
