package issues

import (
	"context"
	"log/slog"
	"strings"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/issue"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

// Resolve marks the issue with exactly this identifier as RESOLVED.
func (s *Service) Resolve(ctx context.Context, issueID string, notes string) (Issue, error) {
	trimmedNotes := strings.TrimSpace(notes)
	return s.transition(ctx, issueID, issue.StatusResolved, &trimmedNotes)
}

// UpdateStatus moves an issue to rawStatus. Unknown values fail with ErrInvalidStatus.
func (s *Service) UpdateStatus(ctx context.Context, issueID string, rawStatus string) (Issue, error) {
	status, err := issue.ParseStatus(rawStatus)
	if err != nil {
		return Issue{}, err
	}
	return s.transition(ctx, issueID, status, nil)
}

func (s *Service) transition(ctx context.Context, issueID string, to issue.Status, notes *string) (Issue, error) {
	if err := s.ready(ctx); err != nil {
		return Issue{}, err
	}

	id := strings.TrimSpace(issueID)
	if id == "" {
		return Issue{}, errs.Invalid("issue id is required")
	}

	now := issue.FormatTimestamp(s.now())
	var updated ports.IssueRecord
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetIssue(txCtx, id)
		if err != nil {
			return err
		}
		if err := issue.CheckTransition(current.Status, to); err != nil {
			return err
		}

		update := ports.IssueStatusUpdate{
			IssueID:         id,
			Status:          to,
			UpdatedAt:       now,
			ResolutionNotes: notes,
			ClearActiveKey:  !to.IsActive(),
		}
		if to == issue.StatusResolved {
			update.ResolvedAt = &now
		}
		if err := s.repo.UpdateIssueStatus(txCtx, update); err != nil {
			return err
		}

		updated, err = s.repo.GetIssue(txCtx, id)
		return err
	})
	if err != nil {
		return Issue{}, errs.Unavailable(err, "update issue status")
	}

	s.setCacheBestEffort(ctx, id, to)
	logging.Info(
		logging.WithComponent(ctx, "usecase.issues"),
		"issue status updated",
		slog.String("issue_id", id),
		slog.String("status", string(to)),
	)
	return toIssue(updated), nil
}
