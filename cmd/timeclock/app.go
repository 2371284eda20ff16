package main

import (
	"context"
	"fmt"

	"github.com/warp/timeclock/api"
	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/config"
	"github.com/warp/timeclock/log"
	"github.com/warp/timeclock/payroll"
	"github.com/warp/timeclock/recognition"
	"github.com/warp/timeclock/store/sqlite"
)

// app holds everything a subcommand needs. Close releases it.
type app struct {
	cfg     *config.Config
	store   *sqlite.Store
	cache   *attendance.ReportCache
	handler *api.Handler
}

func open(ctx context.Context) (*app, error) {
	logger := log.FromContext(ctx)

	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var cache *attendance.ReportCache
	if cfg.Cache.Enabled {
		cache, err = attendance.NewReportCache(cfg.Cache.MaxCost, cfg.Cache.TTL)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	var matcher recognition.Matcher = recognition.Disabled{}
	if cfg.Recognition.Endpoint != "" {
		matcher = recognition.NewHTTPMatcher(cfg.Recognition.Endpoint, cfg.Recognition.Threshold, cfg.Recognition.Timeout)
	} else {
		logger.Warn("no recognition endpoint configured, kiosk check-in is disabled")
	}

	h := api.NewHandler(store, cfg.Org.Location(), api.Options{
		Matcher:        matcher,
		Issuer:         payroll.Issuer{Name: cfg.Org.Name, TaxID: cfg.Org.TaxID},
		Cache:          cache,
		MaxRangeDays:   cfg.Org.MaxRangeDays,
		Dev:            cfg.Server.Dev,
		AllowedOrigins: cfg.Server.Origins(),
		Logger:         log.SubLogger(logger, "api"),
	})

	return &app{cfg: cfg, store: store, cache: cache, handler: h}, nil
}

func (a *app) Close() error {
	a.cache.Close()
	return a.store.Close()
}
