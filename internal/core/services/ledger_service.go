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
	"github.com/SscSPs/bizledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ledgerService posts ledger entries and keeps client and cash register
// balances in step with them.
type ledgerService struct {
	BaseService
	ledgerRepo   portsrepo.LedgerRepositoryWithTx
	balanceRepo  portsrepo.BalanceRepositoryFacade
	currencyRepo portsrepo.CurrencyReader
	converter    portssvc.CurrencyConverterSvc
	now          func() time.Time
}

// LedgerOption is a functional option for configuring the ledger service
type LedgerOption func(*ledgerService)

// WithLedgerMaxRetries bounds conflict retries per posting.
func WithLedgerMaxRetries(n int) LedgerOption {
	return func(s *ledgerService) {
		s.MaxRetries = n
	}
}

// WithLedgerClock overrides the audit timestamp source.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// NewLedgerService creates the posting service.
func NewLedgerService(
	ledgerRepo portsrepo.LedgerRepositoryWithTx,
	balanceRepo portsrepo.BalanceRepositoryFacade,
	currencyRepo portsrepo.CurrencyReader,
	converter portssvc.CurrencyConverterSvc,
	options ...LedgerOption,
) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		BaseService:  BaseService{MaxRetries: 3},
		ledgerRepo:   ledgerRepo,
		balanceRepo:  balanceRepo,
		currencyRepo: currencyRepo,
		converter:    converter,
		now:          time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// GetItem retrieves an entry of the company.
func (s *ledgerService) GetItem(ctx context.Context, cc domain.CompanyContext, transactionID string) (*domain.Transaction, error) {
	txn, err := s.ledgerRepo.FindTransactionByID(ctx, cc.CompanyID, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find ledger entry", slog.String("transaction_id", transactionID))
		}
		return nil, err
	}
	return txn, nil
}

// CreateItem posts a new entry. Unless SkipBalanceUpdate is given, the
// affected balance row is locked and moved by the signed amount in the same
// transaction as the insert.
func (s *ledgerService) CreateItem(ctx context.Context, cc domain.CompanyContext, in domain.LedgerEntryInput, opts ...domain.PostOption) (*domain.Transaction, error) {
	logger := s.GetLogger(ctx)
	o := domain.ApplyPostOptions(opts...)

	txn, err := s.buildTransaction(ctx, cc, in)
	if err != nil {
		return nil, err
	}
	txn.ID = uuid.NewString()
	txn.AuditFields = domain.NewAuditFields(in.UserID, s.now())

	err = s.RunInTx(ctx, s.ledgerRepo, "create_item", func(tx pgx.Tx) error {
		return s.post(ctx, tx, cc, o, nil, []domain.Transaction{*txn}, func() error {
			return s.ledgerRepo.InsertTransactionInTx(ctx, tx, *txn)
		})
	})
	if err != nil {
		logger.Error("Failed to create ledger entry", slog.String("error", err.Error()), slog.String("source", in.Source.String()))
		return nil, err
	}

	logger.Info("Ledger entry created",
		slog.String("transaction_id", txn.ID),
		slog.String("source", txn.Source.String()),
		slog.Bool("is_debt", txn.IsDebt),
		slog.String("amount", txn.Amount.String()),
		slog.Bool("skip_balance_update", o.SkipBalanceUpdate))
	return txn, nil
}

// UpdateItem replaces the posted values of an entry. The old and new balance
// effects are netted and applied once, so moving an entry between balances or
// changing its amount is a single locked write.
func (s *ledgerService) UpdateItem(ctx context.Context, cc domain.CompanyContext, transactionID string, in domain.LedgerEntryInput, opts ...domain.PostOption) (*domain.Transaction, error) {
	logger := s.GetLogger(ctx)
	o := domain.ApplyPostOptions(opts...)

	next, err := s.buildTransaction(ctx, cc, in)
	if err != nil {
		return nil, err
	}

	err = s.RunInTx(ctx, s.ledgerRepo, "update_item", func(tx pgx.Tx) error {
		current, err := s.ledgerRepo.FindTransactionForUpdate(ctx, tx, cc.CompanyID, transactionID)
		if err != nil {
			return err
		}
		if current.IsDeleted {
			return apperrors.NewValidationError("ledger entry " + transactionID + " is deleted")
		}
		if next.Source != current.Source {
			return apperrors.NewValidationError(fmt.Sprintf("ledger entry %s belongs to %s and cannot move to %s", transactionID, current.Source, next.Source))
		}
		s.carryIdentity(next, current, in.UserID)
		return s.post(ctx, tx, cc, o, []domain.Transaction{*current}, []domain.Transaction{*next}, func() error {
			return s.ledgerRepo.UpdateTransactionInTx(ctx, tx, *next)
		})
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrValidation) {
			logger.Error("Failed to update ledger entry", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return nil, err
	}

	logger.Info("Ledger entry updated", slog.String("transaction_id", transactionID), slog.String("amount", next.Amount.String()))
	return next, nil
}

// DeleteItem soft-deletes an entry and reverses its balance effect. Deleting
// an entry that is already deleted does nothing.
func (s *ledgerService) DeleteItem(ctx context.Context, cc domain.CompanyContext, transactionID string, userID string, opts ...domain.PostOption) error {
	logger := s.GetLogger(ctx)
	o := domain.ApplyPostOptions(opts...)
	alreadyDeleted := false

	err := s.RunInTx(ctx, s.ledgerRepo, "delete_item", func(tx pgx.Tx) error {
		current, err := s.ledgerRepo.FindTransactionForUpdate(ctx, tx, cc.CompanyID, transactionID)
		if err != nil {
			return err
		}
		if current.IsDeleted {
			alreadyDeleted = true
			return nil
		}
		now := s.now()
		deleted := *current
		deleted.IsDeleted = true
		deleted.Touch(userID, now)
		return s.post(ctx, tx, cc, o, []domain.Transaction{*current}, []domain.Transaction{deleted}, func() error {
			return s.ledgerRepo.MarkTransactionDeletedInTx(ctx, tx, transactionID, userID, now)
		})
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to delete ledger entry", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return err
	}

	if alreadyDeleted {
		logger.Debug("Ledger entry already deleted", slog.String("transaction_id", transactionID))
		return nil
	}
	logger.Info("Ledger entry deleted", slog.String("transaction_id", transactionID))
	return nil
}

// SyncAutomaticDebt keeps exactly one automatic debt entry per source
// document: the existing income debt entry of the document is updated in
// place, or created when there is none yet.
func (s *ledgerService) SyncAutomaticDebt(ctx context.Context, cc domain.CompanyContext, in domain.LedgerEntryInput) (*domain.Transaction, error) {
	logger := s.GetLogger(ctx)
	if !in.IsDebt || in.Type != domain.Income {
		return nil, apperrors.NewValidationError("automatic debt entries must be income debt entries")
	}
	if in.Source.Kind == domain.SourceManual {
		return nil, apperrors.NewValidationError("automatic debt entries need a source document")
	}

	next, err := s.buildTransaction(ctx, cc, in)
	if err != nil {
		return nil, err
	}
	newID := uuid.NewString()
	created := false

	err = s.RunInTx(ctx, s.ledgerRepo, "sync_automatic_debt", func(tx pgx.Tx) error {
		current, err := s.ledgerRepo.FindAutomaticDebtForUpdate(ctx, tx, cc.CompanyID, in.Source)
		if errors.Is(err, apperrors.ErrNotFound) {
			created = true
			next.ID = newID
			next.AuditFields = domain.NewAuditFields(in.UserID, s.now())
			err = s.post(ctx, tx, cc, domain.PostOptions{}, nil, []domain.Transaction{*next}, func() error {
				return s.ledgerRepo.InsertTransactionInTx(ctx, tx, *next)
			})
			if errors.Is(err, apperrors.ErrDuplicate) {
				// Lost the race to another writer creating the same document's entry.
				return apperrors.NewConflictError("automatic debt for "+in.Source.String()+" created concurrently", err)
			}
			return err
		}
		if err != nil {
			return err
		}
		created = false
		s.carryIdentity(next, current, in.UserID)
		return s.post(ctx, tx, cc, domain.PostOptions{}, []domain.Transaction{*current}, []domain.Transaction{*next}, func() error {
			return s.ledgerRepo.UpdateTransactionInTx(ctx, tx, *next)
		})
	})
	if err != nil {
		logger.Error("Failed to sync automatic debt", slog.String("error", err.Error()), slog.String("source", in.Source.String()))
		return nil, err
	}

	logger.Info("Automatic debt synced",
		slog.String("transaction_id", next.ID),
		slog.String("source", in.Source.String()),
		slog.Bool("created", created),
		slog.String("amount", next.Amount.String()))
	return next, nil
}

// RecordDebtPayment writes the two rows of a payment against debt: a debt
// expense lowering the client balance and a non-debt income raising the cash
// register. Both rows and both balances change in one transaction.
func (s *ledgerService) RecordDebtPayment(ctx context.Context, cc domain.CompanyContext, p domain.DebtPaymentInput) (*domain.Transaction, *domain.Transaction, error) {
	logger := s.GetLogger(ctx)
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	debtIn, cashIn := p.Entries()

	debt, err := s.buildTransaction(ctx, cc, debtIn)
	if err != nil {
		return nil, nil, err
	}
	cash, err := s.buildTransaction(ctx, cc, cashIn)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	debt.ID, cash.ID = uuid.NewString(), uuid.NewString()
	debt.AuditFields = domain.NewAuditFields(p.UserID, now)
	cash.AuditFields = domain.NewAuditFields(p.UserID, now)

	err = s.RunInTx(ctx, s.ledgerRepo, "record_debt_payment", func(tx pgx.Tx) error {
		return s.post(ctx, tx, cc, domain.PostOptions{}, nil, []domain.Transaction{*debt, *cash}, func() error {
			if err := s.ledgerRepo.InsertTransactionInTx(ctx, tx, *debt); err != nil {
				return err
			}
			return s.ledgerRepo.InsertTransactionInTx(ctx, tx, *cash)
		})
	})
	if err != nil {
		logger.Error("Failed to record debt payment", slog.String("error", err.Error()),
			slog.String("client_id", p.ClientID), slog.String("cash_id", p.CashID))
		return nil, nil, err
	}

	logger.Info("Debt payment recorded",
		slog.String("debt_transaction_id", debt.ID),
		slog.String("cash_transaction_id", cash.ID),
		slog.String("client_id", p.ClientID),
		slog.String("cash_id", p.CashID))
	return debt, cash, nil
}

// post locks every balance touched by the change from before to after, runs
// write, then applies the net deltas. Balance rows are locked ahead of the
// ledger write so that a concurrent reconciliation holding the same lock
// always sees a ledger consistent with the stored balance.
func (s *ledgerService) post(ctx context.Context, tx pgx.Tx, cc domain.CompanyContext, o domain.PostOptions, before, after []domain.Transaction, write func() error) error {
	if o.SkipBalanceUpdate {
		return write()
	}

	deltas := accounting.NetDeltas(accounting.Effects(before...), accounting.Effects(after...))
	if len(deltas) > 0 {
		targets := accounting.SortedTargets(deltas)
		locked, err := s.balanceRepo.LockBalancesForUpdate(ctx, tx, cc.CompanyID, targets)
		if err != nil {
			return fmt.Errorf("failed to lock balances: %w", err)
		}
		for _, target := range targets {
			if _, ok := locked[target]; !ok {
				return apperrors.NewValidationError(fmt.Sprintf("%s not found", target))
			}
		}
	}

	if err := write(); err != nil {
		return err
	}
	if len(deltas) == 0 {
		return nil
	}
	if err := s.balanceRepo.ApplyBalanceDeltasInTx(ctx, tx, deltas); err != nil {
		return fmt.Errorf("failed to apply balance deltas: %w", err)
	}
	return nil
}

// buildTransaction validates in and derives every computed column: amount in
// the bucket currency plus the base and report currency values, all rounded
// with the policy of the entry's source kind.
func (s *ledgerService) buildTransaction(ctx context.Context, cc domain.CompanyContext, in domain.LedgerEntryInput) (*domain.Transaction, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	currency, err := s.currencyRepo.FindCurrencyByID(ctx, in.CurrencyID)
	if err != nil {
		return nil, asValidation(err, "currency "+in.CurrencyID+" not found")
	}
	if currency.CompanyID != nil && *currency.CompanyID != cc.CompanyID {
		return nil, apperrors.NewValidationError("currency " + in.CurrencyID + " belongs to another company")
	}

	bucketCurrency := cc.DefaultCurrencyID
	if in.IsDebt || in.ClientID != nil {
		if _, err := s.balanceRepo.FindClient(ctx, cc.CompanyID, *in.ClientID); err != nil {
			return nil, asValidation(err, "client "+*in.ClientID+" not found")
		}
	}
	if !in.IsDebt {
		register, err := s.balanceRepo.FindCashRegister(ctx, cc.CompanyID, *in.CashID)
		if err != nil {
			return nil, asValidation(err, "cash register "+*in.CashID+" not found")
		}
		bucketCurrency = register.CurrencyID
	}

	rc := in.Source.Kind.RoundingContext()
	orig, err := rounding.Amount(cc, rc, in.OrigAmount)
	if err != nil {
		return nil, err
	}
	converted, err := s.converter.Convert(ctx, cc, orig, in.CurrencyID, bucketCurrency, in.Date)
	if err != nil {
		return nil, err
	}
	amount, err := rounding.Amount(cc, rc, converted)
	if err != nil {
		return nil, err
	}
	values, err := s.converter.CurrencyValues(ctx, cc, orig, in.CurrencyID, in.Date)
	if err != nil {
		return nil, err
	}
	defAmount, err := rounding.Amount(cc, rc, values.DefAmount)
	if err != nil {
		return nil, err
	}
	repAmount, err := rounding.Amount(cc, rc, values.RepAmount)
	if err != nil {
		return nil, err
	}

	return &domain.Transaction{
		CompanyID:  cc.CompanyID,
		Type:       in.Type,
		IsDebt:     in.IsDebt,
		Amount:     amount,
		OrigAmount: orig,
		CurrencyID: in.CurrencyID,
		DefRate:    decimal.NewNullDecimal(values.DefRate),
		DefAmount:  decimal.NewNullDecimal(defAmount),
		RepRate:    decimal.NewNullDecimal(values.RepRate),
		RepAmount:  decimal.NewNullDecimal(repAmount),
		ClientID:   in.ClientID,
		CashID:     in.CashID,
		Source:     in.Source,
		CategoryID: in.CategoryID,
		ProjectID:  in.ProjectID,
		UserID:     in.UserID,
		Note:       in.Note,
		Date:       in.Date,
	}, nil
}

// carryIdentity gives next the id, author and creation audit of current.
func (s *ledgerService) carryIdentity(next, current *domain.Transaction, userID string) {
	next.ID = current.ID
	next.CompanyID = current.CompanyID
	next.UserID = current.UserID
	next.AuditFields = current.AuditFields
	next.Touch(userID, s.now())
}

// asValidation turns a missing reference into a validation error.
func asValidation(err error, msg string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewValidationError(msg)
	}
	return err
}
