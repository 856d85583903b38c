package storage

import (
	"errors"
	"fmt"

	"github.com/rl1809/order-reservation/internal/core/domain"
)

var (
	ErrOptimisticLock = fmt.Errorf("optimistic lock conflict: %w", domain.ErrConcurrencyConflict)

	errTxDone = errors.New("unit of work already finished")
)
