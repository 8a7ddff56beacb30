package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/core/services"
	"github.com/SscSPs/bizledger/internal/reports"
	"github.com/SscSPs/bizledger/internal/scheduler"
	"github.com/SscSPs/bizledger/pkg/database"
	"github.com/urfave/cli/v2"
)

// exitMismatch is the exit code of a check that found mismatches.
const exitMismatch = 2

var errAborted = errors.New("aborted by operator")

var (
	companyFlag = &cli.StringFlag{Name: "company", Aliases: []string{"company-id"}, Usage: "limit the run to one company id"}
	targetFlag  = &cli.StringFlag{Name: "target", Aliases: []string{"client-id", "cash-id"}, Usage: "limit the run to one client or cash register id"}
	detailFlag  = &cli.BoolFlag{Name: "detailed", Usage: "include matching balances in the report"}
	xlsxFlag    = &cli.StringFlag{Name: "xlsx", Usage: "also write the report to this xlsx file"}
	dryRunFlag  = &cli.BoolFlag{Name: "dry-run", Usage: "report what would change without writing"}
	yesFlag     = &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"}
	docsFlag    = &cli.BoolFlag{Name: "include-documents", Usage: "net uncovered orders, sales and receipts into client balances"}
)

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:   "ledgerctl",
		Usage:  "multi-currency ledger maintenance",
		Reader: stdin,
		Writer: stdout,
		Commands: []*cli.Command{
			migrateCommand(),
			cashCommand(),
			clientsCommand(),
			clientRecalcCommand("clients:recalculate-balances"),
			currencyFieldsCommand(),
			scheduleCommand(),
		},
	}
}

func migrateCommand() *cli.Command {
	run := func(direction database.MigrateDirection) cli.ActionFunc {
		return func(c *cli.Context) error {
			if direction == database.MigrateDown {
				if err := confirm(c, "Revert every migration and drop all ledger tables?"); err != nil {
					return err
				}
			}
			rt, err := loadRuntime(c)
			if err != nil {
				return err
			}
			_, err = database.Migrate(rt.cfg.DatabaseURL, rt.cfg.MigrationsPath, direction, rt.logger)
			return err
		}
	}
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or revert the database schema",
		Subcommands: []*cli.Command{
			{Name: "up", Usage: "apply all pending migrations", Action: run(database.MigrateUp)},
			{Name: "down", Usage: "revert all migrations", Flags: []cli.Flag{yesFlag}, Action: run(database.MigrateDown)},
		},
	}
}

func cashCommand() *cli.Command {
	readFlags := []cli.Flag{companyFlag, targetFlag, detailFlag, xlsxFlag}
	return &cli.Command{
		Name:  "cash:balance",
		Usage: "reconcile cash register balances with non-debt ledger entries",
		Subcommands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "report cash registers whose stored balance differs from the ledger",
				ArgsUsage: "[cash_id]",
				Flags:     readFlags,
				Action: withServices(func(c *cli.Context, rt *runtime) error {
					return runReport(c, rt, true, rt.services.Reconciliation.CheckCashBalances)
				}),
			},
			{
				Name:      "analyze",
				Usage:     "rank likely causes of each cash mismatch",
				ArgsUsage: "[cash_id]",
				Flags:     readFlags,
				Action: withServices(func(c *cli.Context, rt *runtime) error {
					return runReport(c, rt, true, rt.services.Reconciliation.AnalyzeCashBalances)
				}),
			},
			{
				Name:      "fix",
				Usage:     "overwrite mismatching cash balances with the ledger sum",
				ArgsUsage: "[cash_id]",
				Flags:     append(readFlags, dryRunFlag, yesFlag),
				Before:    confirmUnlessDryRun("Overwrite mismatching cash register balances?"),
				Action: withServices(func(c *cli.Context, rt *runtime) error {
					return runReport(c, rt, false, rt.services.Reconciliation.FixCashBalances)
				}),
			},
		},
	}
}

func clientsCommand() *cli.Command {
	readFlags := []cli.Flag{companyFlag, targetFlag, detailFlag, docsFlag, xlsxFlag}
	return &cli.Command{
		Name:  "clients",
		Usage: "reconcile client balances with debt ledger entries",
		Subcommands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "report clients whose stored balance differs from the ledger",
				ArgsUsage: "[client_id]",
				Flags:     readFlags,
				Action: withServices(func(c *cli.Context, rt *runtime) error {
					return runReport(c, rt, true, rt.services.Reconciliation.CheckClientBalances)
				}),
			},
			{
				Name:      "analyze",
				Usage:     "rank likely causes of each client mismatch",
				ArgsUsage: "[client_id]",
				Flags:     readFlags,
				Action: withServices(func(c *cli.Context, rt *runtime) error {
					return runReport(c, rt, true, rt.services.Reconciliation.AnalyzeClientBalances)
				}),
			},
			clientRecalcCommand("recalculate-balances"),
		},
	}
}

// clientRecalcCommand is mounted both under clients and at the top level as
// clients:recalculate-balances.
func clientRecalcCommand(name string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     "overwrite mismatching client balances with the ledger sum",
		ArgsUsage: "[client_id]",
		Flags:     []cli.Flag{companyFlag, targetFlag, detailFlag, docsFlag, xlsxFlag, dryRunFlag, yesFlag},
		Before:    confirmUnlessDryRun("Overwrite mismatching client balances?"),
		Action: withServices(func(c *cli.Context, rt *runtime) error {
			return runReport(c, rt, false, rt.services.Reconciliation.RecalculateClientBalances)
		}),
	}
}

func currencyFieldsCommand() *cli.Command {
	return &cli.Command{
		Name:  services.JobCurrencyFields,
		Usage: "recompute report and default currency columns of active entries",
		Flags: []cli.Flag{
			companyFlag,
			&cli.BoolFlag{Name: "skip-filled", Usage: "leave entries whose rates are already set"},
			xlsxFlag,
		},
		Action: withServices(func(c *cli.Context, rt *runtime) error {
			opts := domain.CurrencyRecalcOptions{
				CompanyID:  c.String("company"),
				SkipFilled: c.Bool("skip-filled"),
			}
			stats, err := rt.services.Reconciliation.RecalculateCurrencyFields(rt.ctx, opts)
			if err != nil {
				return err
			}
			rt.logger.Info("Currency fields recalculated",
				slog.Int("processed", stats.Processed),
				slog.Int("updated", stats.Updated),
				slog.Int("skipped", stats.Skipped),
				slog.Int("errors", stats.Errors))
			if path := c.String("xlsx"); path != "" {
				if err := reports.WriteCurrencyRecalcStats(path, opts.CompanyID, stats); err != nil {
					return err
				}
			}
			return printJSON(c.App.Writer, stats)
		}),
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "run the cash and client checks on their cron schedules",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "run-once", Usage: "run both checks now and exit"},
		},
		Action: withServices(func(c *cli.Context, rt *runtime) error {
			s, err := scheduler.NewScheduler(rt.ctx, rt.services.Reconciliation, scheduler.Schedules{
				CashCheck:   rt.cfg.ScheduleCashCheck,
				ClientCheck: rt.cfg.ScheduleClientCheck,
			})
			if err != nil {
				return err
			}
			if c.Bool("run-once") {
				s.RunOnce(rt.ctx)
				return nil
			}
			s.Start()
			<-rt.ctx.Done()
			s.Stop()
			return nil
		}),
	}
}

type reportFunc func(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)

// runReport runs one reconciliation job, prints its report as JSON and
// optionally saves it as xlsx. Read-only runs exit with exitMismatch when
// they find a mismatch.
func runReport(c *cli.Context, rt *runtime, readOnly bool, job reportFunc) error {
	report, err := job(rt.ctx, reconcileOptions(c))
	if err != nil {
		return err
	}
	rt.logger.Info("Reconciliation finished",
		slog.String("job", report.Job),
		slog.Int("checked", report.Checked),
		slog.Int("mismatches", report.Mismatches),
		slog.Int("fixed", report.Fixed),
		slog.Int("errors", report.Errors),
		slog.Bool("interrupted", report.Interrupted))

	if path := c.String("xlsx"); path != "" {
		if err := reports.WriteReconciliationReport(path, report); err != nil {
			return err
		}
	}
	if err := printJSON(c.App.Writer, report); err != nil {
		return err
	}
	if readOnly && report.Mismatches > 0 {
		return cli.Exit(fmt.Sprintf("%d balance mismatches found", report.Mismatches), exitMismatch)
	}
	return nil
}

// reconcileOptions reads the job flags. A positional id stands in for
// --target when the flag is not set.
func reconcileOptions(c *cli.Context) domain.ReconcileOptions {
	target := c.String("target")
	if target == "" {
		target = c.Args().First()
	}
	return domain.ReconcileOptions{
		CompanyID:        c.String("company"),
		TargetID:         target,
		DryRun:           c.Bool("dry-run"),
		Detailed:         c.Bool("detailed"),
		IncludeDocuments: c.Bool("include-documents"),
	}
}

func confirmUnlessDryRun(question string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if c.Bool("dry-run") {
			return nil
		}
		return confirm(c, question)
	}
}

// confirm asks question on the app writer and accepts "y" or "yes" from the
// app reader. --yes skips the prompt.
func confirm(c *cli.Context, question string) error {
	if c.Bool("yes") {
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errAborted
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
