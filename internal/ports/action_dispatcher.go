package ports

import (
	"context"

	"supplyguard/internal/domain/risk"
)

type ActionOutcome struct {
	Playbook string `json:"playbook"`
	Detail   string `json:"detail"`
}

// ActionDispatcher runs the standard operating procedure for a routed event.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, event risk.ClassifiedEvent) (ActionOutcome, error)
}
