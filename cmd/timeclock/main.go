/*
main.go - Command-line entry point

PURPOSE:
  One binary for the HTTP server and the operator commands that share
  its database:

    timeclock server                         run the HTTP API
    timeclock report  -e ID --from --to      print an attendance report
    timeclock payroll --from --to [--save]   preview or save a payroll run
    timeclock seed    --scenario ID          reset the database and load a demo scenario

CONFIGURATION:
  Environment only (TIMECLOCK_*), see config/config.go. Loaded once before
  any subcommand runs.

SEE ALSO:
  - server.go: HTTP server and graceful shutdown
  - config/config.go: environment variables
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/warp/timeclock/config"
	"github.com/warp/timeclock/log"
)

func main() {
	cmd := &cli.Command{
		Name:  "timeclock",
		Usage: "attendance reconciliation and payroll tool",
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := config.Load(ctx)
			if err != nil {
				return ctx, fmt.Errorf("failed to load config: %w", err)
			}
			log.SetLevel(cfg.Server.LogLevel)
			logger := log.New("timeclock")
			ctx = log.IntoContext(ctx, logger)
			return withConfig(ctx, cfg), nil
		},
		Commands: []*cli.Command{
			serverCommand(),
			reportCommand(),
			payrollCommand(),
			seedCommand(),
		},
	}

	ctx := context.Background()
	logger := log.New("timeclock")
	ctx = log.IntoContext(ctx, logger)

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg, nil
	}
	return config.Load(ctx)
}
