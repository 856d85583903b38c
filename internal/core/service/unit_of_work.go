package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

type Config struct {
	// TxTimeout bounds a single unit of work from Begin to Commit.
	TxTimeout time.Duration
	// MaxRetries is how many extra attempts a unit of work gets after losing
	// a version race.
	MaxRetries           uint64
	RetryInitialInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		TxTimeout:            5 * time.Second,
		MaxRetries:           3,
		RetryInitialInterval: 10 * time.Millisecond,
	}
}

type unitOfWorkFunc func(ctx context.Context, uow port.UnitOfWork) error

type txRunner struct {
	factory port.UnitOfWorkFactory
	cfg     Config
	logger  *zap.Logger
}

// run executes fn in a fresh unit of work and commits it. Conflicts restart the
// whole unit of work; every other error is returned after rollback.
func (r txRunner) run(ctx context.Context, fn unitOfWorkFunc) error {
	attempt := 0
	op := func() error {
		attempt++
		err := r.once(ctx, fn, true)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			r.logger.Debug("unit of work conflict", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.RetryInitialInterval
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx))
}

// read executes fn in a unit of work that is always rolled back.
func (r txRunner) read(ctx context.Context, fn unitOfWorkFunc) error {
	return r.once(ctx, fn, false)
}

func (r txRunner) once(ctx context.Context, fn unitOfWorkFunc, commit bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.TxTimeout)
	defer cancel()

	uow, err := r.factory.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil {
			r.logger.Error("rollback failed", zap.Error(rbErr))
		}
	}()

	if err := fn(ctx, uow); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}
