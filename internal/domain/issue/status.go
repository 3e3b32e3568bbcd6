package issue

import (
	"fmt"
	"strings"

	"supplyguard/internal/errs"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusOpen: {
		StatusOpen:       {},
		StatusInProgress: {},
		StatusResolved:   {},
		StatusClosed:     {},
	},
	StatusInProgress: {
		StatusInProgress: {},
		StatusResolved:   {},
		StatusClosed:     {},
	},
	StatusResolved: {
		StatusResolved: {},
		StatusClosed:   {},
	},
	StatusClosed: {
		StatusClosed: {},
	},
}

func ParseStatus(raw string) (Status, error) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := allowedTransitions[normalized]; !ok {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidStatus, raw)
	}
	return normalized, nil
}

// IsActive reports whether the status participates in the dedup key constraint.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInProgress
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// CheckTransition returns ErrInvalidTransition when from cannot move to to.
// Re-applying the current status is accepted so retries stay harmless.
func CheckTransition(from, to Status) error {
	next, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrInvalidStatus, from)
	}
	if _, ok := allowedTransitions[to]; !ok {
		return fmt.Errorf("%w: %q", errs.ErrInvalidStatus, to)
	}
	if _, ok := next[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, from, to)
	}
	return nil
}
