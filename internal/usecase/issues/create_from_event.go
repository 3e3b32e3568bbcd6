package issues

import (
	"context"
	"fmt"
	"log/slog"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/issue"
	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

// CreateFromEvent opens an issue for an escalated event, or returns the active
// issue already tracking the same (intent, part, order). Scores below the
// escalation threshold never create anything.
func (s *Service) CreateFromEvent(ctx context.Context, event risk.ClassifiedEvent) (CreateResult, error) {
	if err := s.ready(ctx); err != nil {
		return CreateResult{}, err
	}

	event = event.Normalize()
	if err := event.Validate(); err != nil {
		return CreateResult{}, err
	}
	if !event.ShouldEscalate() {
		return CreateResult{BelowThreshold: true}, nil
	}

	severity, err := issue.SeverityForRisk(event.RiskScore)
	if err != nil {
		return CreateResult{}, err
	}
	key := issue.NewDedupKey(event.Intent, event.PartID, event.OrderID)
	logCtx := logging.WithAttrs(
		logging.WithComponent(ctx, "usecase.issues"),
		slog.String("dedup_key", key.String()),
	)

	unlock, err := s.lock(ctx, key.LockName())
	if err != nil {
		return CreateResult{}, err
	}
	defer unlock()

	now := s.now()
	stamp := issue.FormatTimestamp(now)
	activeKey := key.String()
	record := ports.IssueRecord{
		Title:           issue.EventTitle(severity, event),
		Description:     issue.EventDescription(event),
		Intent:          event.Intent,
		Severity:        severity,
		Status:          issue.StatusOpen,
		PartID:          key.PartID,
		OrderID:         key.OrderID,
		SourceReference: issue.OptionalString(event.SourceReference),
		AssignedTo:      issue.DefaultAssignee,
		ActiveKey:       &activeKey,
		CreatedAt:       stamp,
		UpdatedAt:       stamp,
	}

	var result CreateResult
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for attempt := 0; attempt < maxIDAttempts; attempt++ {
			existing, found, err := s.repo.FindActiveByKey(txCtx, key)
			if err != nil {
				return err
			}
			if found {
				result = CreateResult{IssueID: existing.IssueID, Severity: existing.Severity}
				return nil
			}

			issueID, inserted, err := s.allocateAndInsert(txCtx, record, now)
			if err != nil {
				return err
			}
			if inserted {
				result = CreateResult{IssueID: issueID, Severity: severity, Created: true}
				return nil
			}
		}
		return fmt.Errorf("allocate issue id: %d attempts exhausted", maxIDAttempts)
	})
	if err != nil {
		// A failed duplicate check is never read as "no duplicate".
		return CreateResult{}, errs.Unavailable(err, "create issue from event")
	}

	if result.Created {
		s.setCacheBestEffort(ctx, result.IssueID, issue.StatusOpen)
		logging.Info(logCtx, "issue created", slog.String("issue_id", result.IssueID), slog.String("severity", string(severity)))
	} else {
		logging.Info(logCtx, "duplicate event matched active issue", slog.String("issue_id", result.IssueID))
	}
	return result, nil
}
