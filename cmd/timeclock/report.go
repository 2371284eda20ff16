package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/warp/timeclock/attendance"
	"github.com/warp/timeclock/generic"
)

func periodFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "from",
			Usage:    "first day of the period (YYYY-MM-DD)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "to",
			Usage:    "last day of the period (YYYY-MM-DD), inclusive",
			Required: true,
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "print one employee's day-by-day attendance",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "employee",
				Aliases:  []string{"e"},
				Usage:    "employee id",
				Required: true,
			},
		}, periodFlags()...),
		Action: runReport,
	}
}

func runReport(ctx context.Context, cmd *cli.Command) error {
	p, err := generic.NewPeriod(cmd.String("from"), cmd.String("to"))
	if err != nil {
		return err
	}

	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.handler.Reporter.Report(ctx, generic.EmployeeID(cmd.String("employee")), p)
	if err != nil {
		return err
	}
	printReport(rep, a.cfg.Org.Location())
	return nil
}

func printReport(rep attendance.Report, loc *time.Location) {
	fmt.Printf("%s (%s)  %s\n\n", rep.Employee.Name, rep.Employee.ID, rep.Period)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDAY\tSTATUS\tIN\tOUT\tNOTE")
	for _, d := range rep.Days {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Date, d.Date.Weekday().String()[:3], d.Status,
			hhmm(d.ClockIn, loc), hhmm(d.ClockOut, loc), d.Label)
	}
	tw.Flush()

	fmt.Println()
	for _, s := range attendance.Statuses {
		if n := rep.Counts[s]; n > 0 {
			fmt.Printf("%-12s %d\n", s, n)
		}
	}
}

func hhmm(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "—"
	}
	return t.In(loc).Format("15:04")
}
