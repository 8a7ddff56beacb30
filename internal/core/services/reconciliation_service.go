package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bizledger/internal/core/ports/services"
	"github.com/SscSPs/bizledger/internal/core/rounding"
	"github.com/SscSPs/bizledger/internal/platform/lock"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	JobCashCheck          = "cash:check"
	JobCashAnalyze        = "cash:analyze"
	JobCashFix            = "cash:fix"
	JobClientCheck        = "clients:check"
	JobClientAnalyze      = "clients:analyze"
	JobClientRecalculate  = "clients:recalculate"
	JobCurrencyFields     = "transactions:recalculate-currency-fields"
	defaultChunkSize      = 200
	hypothesisCorrect     = "correct partition"
	hypothesisBothFlags   = "both partitions summed"
	hypothesisWrongFlag   = "opposite partition only"
	hypothesisDocuments   = "uncovered documents included"
	hypothesisNeverPosted = "nothing posted"
)

var (
	debtOnly    = true
	nonDebtOnly = false
)

// reconciliationService recomputes balances from the ledger, entity by
// entity, in short transactions.
type reconciliationService struct {
	BaseService
	companyRepo  portsrepo.CompanyReader
	ledgerRepo   portsrepo.LedgerRepositoryWithTx
	balanceRepo  portsrepo.BalanceRepositoryFacade
	documentRepo portsrepo.DocumentReader
	currencyRepo portsrepo.CurrencyReader
	locker       portssvc.JobLocker
	chunkSize    int
	epsilon      decimal.Decimal
	now          func() time.Time
}

// ReconciliationOption is a functional option for configuring the reconciliation service
type ReconciliationOption func(*reconciliationService)

// WithChunkSize sets how many entities are listed per page.
func WithChunkSize(n int) ReconciliationOption {
	return func(s *reconciliationService) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithEpsilon sets the tolerance below which a difference is not a mismatch.
func WithEpsilon(eps decimal.Decimal) ReconciliationOption {
	return func(s *reconciliationService) {
		s.epsilon = eps
	}
}

// WithJobLocker serialises mutating runs across processes.
func WithJobLocker(l portssvc.JobLocker) ReconciliationOption {
	return func(s *reconciliationService) {
		s.locker = l
	}
}

// WithReconcileMaxRetries bounds conflict retries per entity fix.
func WithReconcileMaxRetries(n int) ReconciliationOption {
	return func(s *reconciliationService) {
		s.MaxRetries = n
	}
}

// NewReconciliationService creates the reconciliation service.
func NewReconciliationService(
	companyRepo portsrepo.CompanyReader,
	ledgerRepo portsrepo.LedgerRepositoryWithTx,
	balanceRepo portsrepo.BalanceRepositoryFacade,
	documentRepo portsrepo.DocumentReader,
	currencyRepo portsrepo.CurrencyReader,
	options ...ReconciliationOption,
) portssvc.ReconciliationSvcFacade {
	svc := &reconciliationService{
		BaseService:  BaseService{MaxRetries: 3},
		companyRepo:  companyRepo,
		ledgerRepo:   ledgerRepo,
		balanceRepo:  balanceRepo,
		documentRepo: documentRepo,
		currencyRepo: currencyRepo,
		locker:       lock.NoopLocker{},
		chunkSize:    defaultChunkSize,
		epsilon:      decimal.RequireFromString("0.01"),
		now:          time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// run holds the per-run state shared by every entity of a job.
type run struct {
	opts      domain.ReconcileOptions
	converter portssvc.CurrencyConverterSvc
	report    *domain.ReconciliationReport
	found     bool
}

// CheckCashBalances compares every cash register with its non-debt entries.
func (s *reconciliationService) CheckCashBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error) {
	return s.execute(ctx, JobCashCheck, opts, false, s.cashEach(false))
}

// AnalyzeCashBalances is a check that also ranks explanations of each mismatch.
func (s *reconciliationService) AnalyzeCashBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error) {
	return s.execute(ctx, JobCashAnalyze, opts, false, s.cashEach(true))
}

// FixCashBalances overwrites each mismatching cash balance with the ledger sum.
func (s *reconciliationService) FixCashBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error) {
	if opts.DryRun {
		return s.execute(ctx, JobCashFix, opts, false, s.cashEach(false))
	}
	return s.execute(ctx, JobCashFix, opts, true, func(ctx context.Context, cc domain.CompanyContext, r *run) error {
		return s.eachCashRegister(ctx, cc, r, func(reg domain.CashRegister) {
			target := domain.CashTarget(reg.ID)
			check := s.fixBalance(ctx, cc, target, reg.Name, entryFilter(cc, target, &nonDebtOnly), decimal.Zero)
			r.report.Record(check, r.opts.Detailed)
		})
	})
}

// CheckClientBalances compares every client with its debt entries.
func (s *reconciliationService) CheckClientBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error) {
	return s.execute(ctx, JobClientCheck, opts, false, s.clientEach(false))
}

// AnalyzeClientBalances is a check that also ranks explanations of each mismatch.
func (s *reconciliationService) AnalyzeClientBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error) {
	return s.execute(ctx, JobClientAnalyze, opts, false, s.clientEach(true))
}

// RecalculateClientBalances overwrites each mismatching client balance with
// the sum of its debt entries, plus its uncovered documents when
// opts.IncludeDocuments is set.
func (s *reconciliationService) RecalculateClientBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error) {
	if opts.DryRun {
		return s.execute(ctx, JobClientRecalculate, opts, false, s.clientEach(false))
	}
	return s.execute(ctx, JobClientRecalculate, opts, true, func(ctx context.Context, cc domain.CompanyContext, r *run) error {
		return s.eachClient(ctx, cc, r, func(c domain.Client) {
			target := domain.ClientTarget(c.ID)
			extra := decimal.Zero
			if r.opts.IncludeDocuments {
				var err error
				extra, err = s.documentNet(ctx, cc, r.converter, c.ID)
				if err != nil {
					r.report.Record(s.failed(ctx, target, c.Name, err), r.opts.Detailed)
					return
				}
			}
			check := s.fixBalance(ctx, cc, target, c.Name, entryFilter(cc, target, &debtOnly), extra)
			r.report.Record(check, r.opts.Detailed)
		})
	})
}

// RecalculateCurrencyFields recomputes rep/def rate and amount of active
// entries. Balances are not touched.
func (s *reconciliationService) RecalculateCurrencyFields(ctx context.Context, opts domain.CurrencyRecalcOptions) (*domain.CurrencyRecalcStats, error) {
	logger := s.GetLogger(ctx)
	contexts, err := s.companyContexts(ctx, opts.CompanyID)
	if err != nil {
		return nil, err
	}
	release, err := s.locker.Acquire(ctx, lock.JobKey(JobCurrencyFields, opts.CompanyID))
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	converter := NewCurrencyConverter(NewBatchRateResolver(s.currencyRepo))
	stats := &domain.CurrencyRecalcStats{}

	for _, cc := range contexts {
		err := eachChunk(ctx, s.chunkSize,
			func(afterID string, limit int) ([]domain.Transaction, error) {
				return s.ledgerRepo.ListActiveEntries(ctx, cc.CompanyID, afterID, limit)
			},
			func(t domain.Transaction) string { return t.ID },
			func(txn domain.Transaction) {
				stats.Processed++
				if opts.SkipFilled && !txn.MissingCurrencyFields() {
					stats.Skipped++
					return
				}
				updated, changed, err := s.recomputeCurrencyFields(ctx, cc, converter, txn)
				if err == nil && changed {
					err = s.ledgerRepo.UpdateCurrencyFields(ctx, updated)
				}
				switch {
				case err != nil:
					stats.Errors++
					s.LogError(ctx, err, "Failed to recalculate currency fields", slog.String("transaction_id", txn.ID))
				case changed:
					stats.Updated++
				default:
					stats.Skipped++
				}
			})
		if isInterruption(err) {
			stats.Interrupted = true
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to list ledger entries of company %s: %w", cc.CompanyID, err)
		}
	}

	logger.Info("Currency fields recalculated",
		slog.Int("processed", stats.Processed),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
		slog.Bool("interrupted", stats.Interrupted))
	return stats, nil
}

func (s *reconciliationService) recomputeCurrencyFields(ctx context.Context, cc domain.CompanyContext, converter portssvc.CurrencyConverterSvc, txn domain.Transaction) (domain.Transaction, bool, error) {
	values, err := converter.CurrencyValues(ctx, cc, txn.OrigAmount, txn.CurrencyID, txn.Date)
	if err != nil {
		return txn, false, err
	}
	rc := txn.Source.Kind.RoundingContext()
	defAmount, err := rounding.Amount(cc, rc, values.DefAmount)
	if err != nil {
		return txn, false, err
	}
	repAmount, err := rounding.Amount(cc, rc, values.RepAmount)
	if err != nil {
		return txn, false, err
	}

	next := txn
	next.DefRate = decimal.NewNullDecimal(values.DefRate)
	next.DefAmount = decimal.NewNullDecimal(defAmount)
	next.RepRate = decimal.NewNullDecimal(values.RepRate)
	next.RepAmount = decimal.NewNullDecimal(repAmount)
	changed := !sameNull(txn.DefRate, next.DefRate) || !sameNull(txn.DefAmount, next.DefAmount) ||
		!sameNull(txn.RepRate, next.RepRate) || !sameNull(txn.RepAmount, next.RepAmount)
	return next, changed, nil
}

func sameNull(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// execute resolves every company up front, so a missing default currency
// aborts the job before any entity is touched, then runs each for every company.
func (s *reconciliationService) execute(ctx context.Context, job string, opts domain.ReconcileOptions, mutating bool,
	each func(ctx context.Context, cc domain.CompanyContext, r *run) error) (*domain.ReconciliationReport, error) {
	logger := s.GetLogger(ctx).With(slog.String("job", job))

	contexts, err := s.companyContexts(ctx, opts.CompanyID)
	if err != nil {
		logger.Error("Reconciliation aborted", slog.String("error", err.Error()))
		return nil, err
	}
	if mutating {
		release, err := s.locker.Acquire(ctx, lock.JobKey(job, opts.CompanyID))
		if err != nil {
			return nil, err
		}
		defer s.release(ctx, release)
	}

	r := &run{
		opts:      opts,
		converter: NewCurrencyConverter(NewBatchRateResolver(s.currencyRepo)),
		report: &domain.ReconciliationReport{
			Job:       job,
			CompanyID: opts.CompanyID,
			DryRun:    opts.DryRun,
			StartedAt: s.now(),
		},
	}

	for _, cc := range contexts {
		err := each(ctx, cc, r)
		if isInterruption(err) {
			r.report.Interrupted = true
			break
		}
		if err != nil {
			r.report.FinishedAt = s.now()
			logger.Error("Reconciliation failed", slog.String("company_id", cc.CompanyID), slog.String("error", err.Error()))
			return r.report, err
		}
	}
	r.report.FinishedAt = s.now()

	if opts.TargetID != "" && !r.found {
		return r.report, apperrors.NewNotFoundError("balance owner " + opts.TargetID + " not found")
	}

	logger.Info("Reconciliation finished",
		slog.Int("checked", r.report.Checked),
		slog.Int("mismatches", r.report.Mismatches),
		slog.Int("fixed", r.report.Fixed),
		slog.Int("errors", r.report.Errors),
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("interrupted", r.report.Interrupted))
	return r.report, nil
}

func (s *reconciliationService) companyContexts(ctx context.Context, companyID string) ([]domain.CompanyContext, error) {
	ids := []string{companyID}
	if companyID == "" {
		var err error
		ids, err = s.companyRepo.ListCompanyIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list companies: %w", err)
		}
		if len(ids) == 0 {
			return nil, apperrors.NewConfigurationError("no companies found")
		}
	}

	contexts := make([]domain.CompanyContext, 0, len(ids))
	for _, id := range ids {
		cc, err := s.companyRepo.FindCompanyContext(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load company %s: %w", id, err)
		}
		if err := cc.Validate(); err != nil {
			return nil, err
		}
		contexts = append(contexts, *cc)
	}
	return contexts, nil
}

func (s *reconciliationService) release(ctx context.Context, release func(context.Context) error) {
	// The run context may already be cancelled; the lock still has to go.
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.LogError(ctx, err, "Failed to release job lock")
	}
}

func (s *reconciliationService) cashEach(analyze bool) func(context.Context, domain.CompanyContext, *run) error {
	return func(ctx context.Context, cc domain.CompanyContext, r *run) error {
		return s.eachCashRegister(ctx, cc, r, func(reg domain.CashRegister) {
			r.report.Record(s.checkCash(ctx, cc, reg, analyze), r.opts.Detailed)
		})
	}
}

func (s *reconciliationService) clientEach(analyze bool) func(context.Context, domain.CompanyContext, *run) error {
	return func(ctx context.Context, cc domain.CompanyContext, r *run) error {
		return s.eachClient(ctx, cc, r, func(c domain.Client) {
			r.report.Record(s.checkClient(ctx, cc, r, c, analyze), r.opts.Detailed)
		})
	}
}

func (s *reconciliationService) eachCashRegister(ctx context.Context, cc domain.CompanyContext, r *run, fn func(domain.CashRegister)) error {
	if r.opts.TargetID != "" {
		reg, err := s.balanceRepo.FindCashRegister(ctx, cc.CompanyID, r.opts.TargetID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		r.found = true
		fn(*reg)
		return nil
	}
	return eachChunk(ctx, s.chunkSize,
		func(afterID string, limit int) ([]domain.CashRegister, error) {
			return s.balanceRepo.ListCashRegisters(ctx, cc.CompanyID, afterID, limit)
		},
		func(reg domain.CashRegister) string { return reg.ID },
		fn)
}

func (s *reconciliationService) eachClient(ctx context.Context, cc domain.CompanyContext, r *run, fn func(domain.Client)) error {
	if r.opts.TargetID != "" {
		c, err := s.balanceRepo.FindClient(ctx, cc.CompanyID, r.opts.TargetID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		r.found = true
		fn(*c)
		return nil
	}
	return eachChunk(ctx, s.chunkSize,
		func(afterID string, limit int) ([]domain.Client, error) {
			return s.balanceRepo.ListClients(ctx, cc.CompanyID, afterID, limit)
		},
		func(c domain.Client) string { return c.ID },
		fn)
}

func (s *reconciliationService) checkCash(ctx context.Context, cc domain.CompanyContext, reg domain.CashRegister, analyze bool) domain.BalanceCheck {
	target := domain.CashTarget(reg.ID)
	sums, err := s.ledgerRepo.SumActiveEntries(ctx, entryFilter(cc, target, &nonDebtOnly))
	if err != nil {
		return s.failed(ctx, target, reg.Name, err)
	}
	check := domain.BalanceCheck{Target: target, Name: reg.Name, Stored: reg.Balance}
	s.compare(&check, sums.Net())
	if !analyze || !check.Mismatch {
		return check
	}

	both, err := s.ledgerRepo.SumActiveEntries(ctx, entryFilter(cc, target, nil))
	if err != nil {
		return s.failed(ctx, target, reg.Name, err)
	}
	wrong, err := s.ledgerRepo.SumActiveEntries(ctx, entryFilter(cc, target, &debtOnly))
	if err != nil {
		return s.failed(ctx, target, reg.Name, err)
	}
	s.rank(&check,
		hypothesis(hypothesisCorrect, check.Calculated, check.Stored),
		hypothesis(hypothesisBothFlags, both.Net(), check.Stored),
		hypothesis(hypothesisWrongFlag, wrong.Net(), check.Stored),
		hypothesis(hypothesisNeverPosted, decimal.Zero, check.Stored),
	)
	return check
}

func (s *reconciliationService) checkClient(ctx context.Context, cc domain.CompanyContext, r *run, c domain.Client, analyze bool) domain.BalanceCheck {
	target := domain.ClientTarget(c.ID)
	sums, err := s.ledgerRepo.SumActiveEntries(ctx, entryFilter(cc, target, &debtOnly))
	if err != nil {
		return s.failed(ctx, target, c.Name, err)
	}

	var docs decimal.Decimal
	if r.opts.IncludeDocuments || analyze {
		docs, err = s.documentNet(ctx, cc, r.converter, c.ID)
		if err != nil {
			return s.failed(ctx, target, c.Name, err)
		}
	}

	calculated := sums.Net()
	if r.opts.IncludeDocuments {
		calculated = calculated.Add(docs)
	}
	check := domain.BalanceCheck{Target: target, Name: c.Name, Stored: c.Balance}
	s.compare(&check, calculated)
	if !analyze || !check.Mismatch {
		return check
	}

	both, err := s.ledgerRepo.SumActiveEntries(ctx, entryFilter(cc, target, nil))
	if err != nil {
		return s.failed(ctx, target, c.Name, err)
	}
	wrong, err := s.ledgerRepo.SumActiveEntries(ctx, entryFilter(cc, target, &nonDebtOnly))
	if err != nil {
		return s.failed(ctx, target, c.Name, err)
	}
	hyps := []domain.Hypothesis{
		hypothesis(hypothesisCorrect, check.Calculated, check.Stored),
		hypothesis(hypothesisBothFlags, both.Net(), check.Stored),
		hypothesis(hypothesisWrongFlag, wrong.Net(), check.Stored),
	}
	if !r.opts.IncludeDocuments {
		hyps = append(hyps, hypothesis(hypothesisDocuments, sums.Net().Add(docs), check.Stored))
	}
	hyps = append(hyps, hypothesis(hypothesisNeverPosted, decimal.Zero, check.Stored))
	s.rank(&check, hyps...)
	return check
}

// fixBalance locks the balance row, recomputes the ledger sum under the lock
// and overwrites the stored value when it is off by more than epsilon.
// Postings lock the same row before writing ledger rows, so the sum cannot
// move while the lock is held.
func (s *reconciliationService) fixBalance(ctx context.Context, cc domain.CompanyContext, target domain.BalanceTarget, name string, filter domain.EntryFilter, extra decimal.Decimal) domain.BalanceCheck {
	check := domain.BalanceCheck{Target: target, Name: name}
	err := s.RunInTx(ctx, s.ledgerRepo, "fix_balance", func(tx pgx.Tx) error {
		check.Fixed = false
		locked, err := s.balanceRepo.LockBalancesForUpdate(ctx, tx, cc.CompanyID, []domain.BalanceTarget{target})
		if err != nil {
			return err
		}
		bal, ok := locked[target]
		if !ok {
			return apperrors.NewNotFoundError(target.String() + " not found")
		}
		sums, err := s.ledgerRepo.SumActiveEntriesInTx(ctx, tx, filter)
		if err != nil {
			return err
		}
		check.Stored = bal.Amount
		s.compare(&check, sums.Net().Add(extra))
		if !check.Mismatch {
			return nil
		}
		if err := s.balanceRepo.SetBalanceInTx(ctx, tx, target, check.Calculated); err != nil {
			return err
		}
		check.Fixed = true
		return nil
	})
	if err != nil {
		return s.failed(ctx, target, name, err)
	}
	if check.Fixed {
		s.GetLogger(ctx).Info("Balance corrected",
			slog.String("target", target.String()),
			slog.String("stored", check.Stored.String()),
			slog.String("calculated", check.Calculated.String()))
	}
	return check
}

// documentNet converts the client's uncovered documents to the default
// currency and nets them: orders and sales add, receipts subtract.
func (s *reconciliationService) documentNet(ctx context.Context, cc domain.CompanyContext, converter portssvc.CurrencyConverterSvc, clientID string) (decimal.Decimal, error) {
	docs, err := s.documentRepo.ListUncoveredDebtDocuments(ctx, cc.CompanyID, clientID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list documents of client %s: %w", clientID, err)
	}
	net := decimal.Zero
	for _, doc := range docs {
		amount, err := converter.Convert(ctx, cc, doc.Total, doc.CurrencyID, cc.DefaultCurrencyID, doc.Date)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to convert %s: %w", doc.Source, err)
		}
		amount, err = rounding.Amount(cc, doc.Source.Kind.RoundingContext(), amount)
		if err != nil {
			return decimal.Zero, err
		}
		net = net.Add(doc.DebtType().Signed(amount))
	}
	return net, nil
}

func (s *reconciliationService) compare(check *domain.BalanceCheck, calculated decimal.Decimal) {
	check.Calculated = calculated
	check.Difference = check.Stored.Sub(calculated)
	check.Mismatch = check.Difference.Abs().GreaterThan(s.epsilon)
}

// rank stores hyps and picks the one closest to the stored value. Ties keep
// the earlier hypothesis.
func (s *reconciliationService) rank(check *domain.BalanceCheck, hyps ...domain.Hypothesis) {
	check.Hypotheses = hyps
	for i := range hyps {
		if check.Best == nil || hyps[i].Distance.LessThan(check.Best.Distance) {
			best := hyps[i]
			check.Best = &best
		}
	}
}

func (s *reconciliationService) failed(ctx context.Context, target domain.BalanceTarget, name string, err error) domain.BalanceCheck {
	s.LogError(ctx, err, "Balance reconciliation failed", slog.String("target", target.String()))
	return domain.BalanceCheck{Target: target, Name: name, Err: err.Error()}
}

func hypothesis(name string, value, stored decimal.Decimal) domain.Hypothesis {
	return domain.Hypothesis{Name: name, Value: value, Distance: stored.Sub(value).Abs()}
}

func entryFilter(cc domain.CompanyContext, target domain.BalanceTarget, isDebt *bool) domain.EntryFilter {
	return domain.EntryFilter{CompanyID: cc.CompanyID, Target: target, IsDebt: isDebt}
}

// eachChunk pages through list by id and calls fn per item, stopping between
// items once ctx is done. Work already done by fn is kept.
func eachChunk[T any](ctx context.Context, chunk int, list func(afterID string, limit int) ([]T, error), id func(T) string, fn func(T)) error {
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := list(afterID, chunk)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(item)
		}
		if len(items) < chunk {
			return nil
		}
		afterID = id(items[len(items)-1])
	}
}

func isInterruption(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
