package issues

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/issue"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

// CreateManual always inserts a new issue. Operator entries skip deduplication.
func (s *Service) CreateManual(ctx context.Context, input ManualIssueInput) (Issue, error) {
	if err := s.ready(ctx); err != nil {
		return Issue{}, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Issue{}, errs.Invalid("title is required")
	}

	severity := issue.SeverityMedium
	if strings.TrimSpace(input.Severity) != "" {
		parsed, err := issue.ParseSeverity(input.Severity)
		if err != nil {
			return Issue{}, err
		}
		severity = parsed
	}

	assignee := strings.TrimSpace(input.AssignedTo)
	if assignee == "" {
		assignee = issue.DefaultAssignee
	}

	now := s.now()
	stamp := issue.FormatTimestamp(now)
	record := ports.IssueRecord{
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Intent:          issue.IntentManual,
		Severity:        severity,
		Status:          issue.StatusOpen,
		PartID:          issue.OptionalString(input.PartID),
		OrderID:         issue.OptionalString(input.OrderID),
		SourceReference: issue.OptionalString(input.SourceReference),
		AssignedTo:      assignee,
		CreatedAt:       stamp,
		UpdatedAt:       stamp,
	}

	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for attempt := 0; attempt < maxIDAttempts; attempt++ {
			issueID, inserted, err := s.allocateAndInsert(txCtx, record, now)
			if err != nil {
				return err
			}
			if inserted {
				record.IssueID = issueID
				return nil
			}
		}
		return fmt.Errorf("allocate issue id: %d attempts exhausted", maxIDAttempts)
	})
	if err != nil {
		return Issue{}, errs.Unavailable(err, "create manual issue")
	}

	s.setCacheBestEffort(ctx, record.IssueID, issue.StatusOpen)
	logging.Info(
		logging.WithComponent(ctx, "usecase.issues"),
		"manual issue created",
		slog.String("issue_id", record.IssueID),
		slog.String("severity", string(severity)),
	)
	return toIssue(record), nil
}
