package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/warp/timeclock/api"
	"github.com/warp/timeclock/log"
)

const shutdownTimeout = 30 * time.Second

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:   "server",
		Usage:  "run the time-clock HTTP server",
		Action: runServer,
		Description: `
Environment variables:
	TIMECLOCK_SERVER_LISTEN_ADDR        (default: 0.0.0.0:8080)
	TIMECLOCK_SERVER_DB_PATH            (default: timeclock.db, ":memory:" for a throwaway database)
	TIMECLOCK_SERVER_DEV                (default: false, enables /api/scenarios)
	TIMECLOCK_SERVER_ALLOWED_ORIGINS    (default: http://localhost:5173, comma-separated)
	TIMECLOCK_SERVER_LOG_LEVEL          (default: info)
	TIMECLOCK_ORG_TIMEZONE              (default: America/Mexico_City)
	TIMECLOCK_ORG_NAME                  (printed on receipts)
	TIMECLOCK_ORG_TAX_ID                (printed on receipts)
	TIMECLOCK_ORG_MAX_RANGE_DAYS        (default: 366)
	TIMECLOCK_RECOGNITION_ENDPOINT      (unset disables kiosk check-in)
	TIMECLOCK_RECOGNITION_TIMEOUT       (default: 5s)
	TIMECLOCK_RECOGNITION_THRESHOLD     (default: 98)
	TIMECLOCK_CACHE_ENABLED             (default: true)
	TIMECLOCK_CACHE_MAX_COST            (default: 10000)
	TIMECLOCK_CACHE_TTL                 (default: 10m)
`,
	}
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	logger := log.FromContext(ctx)

	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Server.Dev {
		logger.Info("running in dev mode, scenario endpoints are enabled")
	}

	server := &http.Server{
		Addr:         a.cfg.Server.ListenAddr,
		Handler:      api.NewRouter(a.handler, a.cfg.Server.Origins()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr, "timezone", a.cfg.Org.Timezone, "db", a.cfg.Server.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
