package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/warp/timeclock/generic"
	"github.com/warp/timeclock/log"
	"github.com/warp/timeclock/payroll"
)

func payrollCommand() *cli.Command {
	return &cli.Command{
		Name:  "payroll",
		Usage: "preview a payroll over a period, or save it as an immutable run",
		Flags: append(periodFlags(),
			&cli.StringFlag{
				Name:  "name",
				Usage: "run name (default: Nómina FROM al TO)",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "persist the run instead of only printing it",
			},
		),
		Action: runPayroll,
	}
}

func runPayroll(ctx context.Context, cmd *cli.Command) error {
	logger := log.FromContext(ctx)

	p, err := generic.NewPeriod(cmd.String("from"), cmd.String("to"))
	if err != nil {
		return err
	}

	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	engine := a.handler.Payroll
	var run generic.PayrollRun
	if cmd.Bool("save") {
		run, err = engine.Save(ctx, cmd.String("name"), p)
		if err == nil {
			logger.Info("payroll run saved", "run", run.ID, "period", p.String())
		}
	} else {
		run, err = engine.Build(ctx, cmd.String("name"), p)
	}
	if err != nil {
		return err
	}

	printRun(run)
	return nil
}

func printRun(run generic.PayrollRun) {
	fmt.Printf("%s  %s\n\n", run.Name, run.Period)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "EMPLOYEE\tDAYS\tBASE\tBONUS\tCOMMISSION\tDEDUCTION\tNET\t")
	for _, it := range run.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			it.Name, it.DaysWorked,
			payroll.Money(it.BasePay), payroll.Money(it.BonusTotal), payroll.Money(it.CommissionTotal),
			payroll.Money(it.DeductionTotal), payroll.Money(it.NetPay))
	}
	gross, deductions, net := run.Totals()
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%s\t%s\t\n", payroll.Money(deductions), payroll.Money(net))
	tw.Flush()
	fmt.Printf("\ngross %s\n", payroll.Money(gross))
}
