package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/generic"
	"github.com/warp/timeclock/log"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "erase the database and load a demo scenario",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scenario",
				Aliases: []string{"s"},
				Usage:   "scenario id, see --list",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "list embedded scenarios and exit",
			},
		},
		Action: runSeed,
	}
}

func listScenarios() error {
	all, err := factory.Scenarios()
	if err != nil {
		return err
	}
	for _, sc := range all {
		fmt.Printf("%-12s %s\n", sc.ID, sc.Name)
		if d := strings.TrimSpace(sc.Description); d != "" {
			fmt.Printf("%-12s %s\n", "", d)
		}
	}
	return nil
}

func runSeed(ctx context.Context, cmd *cli.Command) error {
	logger := log.FromContext(ctx)

	if cmd.Bool("list") {
		return listScenarios()
	}
	id := cmd.String("scenario")
	if id == "" {
		return fmt.Errorf("--scenario is required")
	}
	sc, ok, err := factory.FindScenario(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}

	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}

	loc := a.cfg.Org.Location()
	loader := factory.NewScenarioLoader(a.store, loc, func(at time.Time, scheduled *generic.ClockTime) generic.Punctuality {
		return attendance.Evaluate(at, scheduled, loc)
	})
	if err := loader.Load(ctx, sc); err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}

	logger.Info("scenario loaded", "scenario", sc.ID, "db", a.cfg.Server.DBPath)
	return nil
}
