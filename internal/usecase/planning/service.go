package planning

import (
	"context"
	"errors"
	"time"

	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

const defaultParallelism = 8

// Service answers read-only planning questions over the inventory store.
// Results are point-in-time snapshots and are never persisted.
type Service struct {
	inventory   ports.InventoryReader
	now         func() time.Time
	parallelism int
}

type Options struct {
	Now func() time.Time
	// Parallelism caps concurrent store reads per request.
	Parallelism int
}

func NewService(inventory ports.InventoryReader, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &Service{inventory: inventory, now: now, parallelism: parallelism}
}

func (s *Service) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.inventory == nil {
		return errors.New("inventory reader is required")
	}
	return nil
}

// Today is the evaluation date in the clock's location.
func (s *Service) Today() string {
	return s.now().Format(time.DateOnly)
}
