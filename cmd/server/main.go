package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/app"
	"storefront-be/internal/config"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/observability"

	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = time.Minute
)

var (
	newAppFunc      = app.New
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(app.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.L().Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	a, err := newAppFunc(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return serve(ctx, newServer(ctx, cfg, a))
}

func newServer(ctx context.Context, cfg *config.Config, a *app.App) *http.Server {
	limiter := middleware.NewRateLimiter(cfg.InternalAPIKey)
	go sweepLimiter(ctx, limiter)

	return &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.Router(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func sweepLimiter(ctx context.Context, l *middleware.RateLimiter) {
	t := time.NewTicker(limiterSweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Cleanup()
		}
	}
}

// serve blocks until ctx is cancelled or the listener fails, then drains
// in-flight requests.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down http server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
