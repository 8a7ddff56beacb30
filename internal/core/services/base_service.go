package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/bizledger/internal/apperrors"
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	"github.com/SscSPs/bizledger/internal/platform/logging"
	"github.com/jackc/pgx/v5"
)

// BaseService provides common functionality for all services
type BaseService struct {
	// MaxRetries bounds how often a transaction failing with apperrors.ErrConflict is re-run.
	MaxRetries int
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return logging.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// RunInTx runs fn inside one database transaction, committing on success and
// rolling back on error or panic. A conflict is retried up to MaxRetries times;
// each attempt starts from scratch, so fn must not keep state between calls.
func (s *BaseService) RunInTx(ctx context.Context, tm portsrepo.TransactionManager, op string, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.runOnce(ctx, tm, fn)
		if err == nil || !errors.Is(err, apperrors.ErrConflict) || attempt >= s.MaxRetries {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
		s.GetLogger(ctx).Warn("Retrying after concurrent update conflict",
			slog.String("operation", op),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}
}

func (s *BaseService) runOnce(ctx context.Context, tm portsrepo.TransactionManager, fn func(tx pgx.Tx) error) (err error) {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tm.Rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			if rbErr := tm.Rollback(ctx, tx); rbErr != nil {
				s.LogError(ctx, rbErr, "Failed to roll back transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tm.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
