// Package scheduler runs the read-only balance checks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/platform/logging"
	"github.com/robfig/cron/v3"
)

// BalanceChecker is the part of the reconciliation service the scheduler drives.
type BalanceChecker interface {
	CheckCashBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
	CheckClientBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
}

// Schedules holds the cron specs, with a leading seconds field.
type Schedules struct {
	CashCheck   string
	ClientCheck string
}

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron    *cron.Cron
	checker BalanceChecker
	ctx     context.Context
}

// NewScheduler registers the cash and client checks. ctx is the parent of
// every job run; cancelling it interrupts running checks.
func NewScheduler(ctx context.Context, checker BalanceChecker, schedules Schedules) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
		),
		checker: checker,
		ctx:     ctx,
	}

	if _, err := s.cron.AddFunc(schedules.CashCheck, func() { s.CheckCash(s.ctx) }); err != nil {
		return nil, fmt.Errorf("invalid cash check schedule %q: %w", schedules.CashCheck, err)
	}
	if _, err := s.cron.AddFunc(schedules.ClientCheck, func() { s.CheckClients(s.ctx) }); err != nil {
		return nil, fmt.Errorf("invalid client check schedule %q: %w", schedules.ClientCheck, err)
	}
	logging.GetLoggerFromCtx(ctx).Info("Balance check jobs registered",
		slog.String("cash_check", schedules.CashCheck),
		slog.String("client_check", schedules.ClientCheck))
	return s, nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logging.GetLoggerFromCtx(s.ctx).Info("Starting cron scheduler")
	s.cron.Start()
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	logger := logging.GetLoggerFromCtx(s.ctx)
	logger.Info("Stopping cron scheduler")
	<-s.cron.Stop().Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunOnce runs both checks immediately, one after the other.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.CheckCash(ctx)
	s.CheckClients(ctx)
}

// CheckCash runs the cash register check over every company.
func (s *Scheduler) CheckCash(ctx context.Context) {
	s.runWithRecovery(ctx, "cash:check", s.checker.CheckCashBalances)
}

// CheckClients runs the client check over every company.
func (s *Scheduler) CheckClients(ctx context.Context) {
	s.runWithRecovery(ctx, "clients:check", s.checker.CheckClientBalances)
}

// runWithRecovery wraps job execution with panic recovery and logs every
// mismatch the check reports.
func (s *Scheduler) runWithRecovery(ctx context.Context, job string, check func(context.Context, domain.ReconcileOptions) (*domain.ReconciliationReport, error)) {
	ctx, _ = logging.WithRun(ctx, job)
	logger := logging.GetLoggerFromCtx(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", slog.Any("panic", r))
		}
	}()

	logger.Info("Starting job")
	report, err := check(ctx, domain.ReconcileOptions{})
	if err != nil {
		logger.Error("Job failed", slog.String("error", err.Error()))
		return
	}
	for _, c := range report.Checks {
		if c.Err != "" {
			logger.Error("Balance check failed",
				slog.String("target", c.Target.String()),
				slog.String("error", c.Err))
			continue
		}
		if c.Mismatch {
			logger.Warn("Balance mismatch",
				slog.String("target", c.Target.String()),
				slog.String("name", c.Name),
				slog.String("stored", c.Stored.String()),
				slog.String("calculated", c.Calculated.String()),
				slog.String("difference", c.Difference.String()))
		}
	}
	logger.Info("Job completed",
		slog.Int("checked", report.Checked),
		slog.Int("mismatches", report.Mismatches),
		slog.Int("errors", report.Errors),
		slog.Bool("interrupted", report.Interrupted))
}
