package issues

import (
	"context"
	"strings"

	"supplyguard/internal/domain/issue"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

const defaultSearchLimit = 50

func (s *Service) Get(ctx context.Context, issueID string) (Issue, error) {
	if err := s.ready(ctx); err != nil {
		return Issue{}, err
	}
	id := strings.TrimSpace(issueID)
	if id == "" {
		return Issue{}, errs.Invalid("issue id is required")
	}

	record, err := s.repo.GetIssue(ctx, id)
	if err != nil {
		return Issue{}, errs.Unavailable(err, "get issue")
	}
	return toIssue(record), nil
}

// Status answers from the cache when possible and falls back to the store.
func (s *Service) Status(ctx context.Context, issueID string) (issue.Status, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	id := strings.TrimSpace(issueID)
	if id == "" {
		return "", errs.Invalid("issue id is required")
	}

	if s.cache != nil {
		if value, found, err := s.cache.Get(ctx, cacheIssueStatusKey(id)); err == nil && found {
			if status, err := issue.ParseStatus(value); err == nil {
				return status, nil
			}
		}
	}

	record, err := s.repo.GetIssue(ctx, id)
	if err != nil {
		return "", errs.Unavailable(err, "get issue status")
	}
	s.setCacheBestEffort(ctx, id, record.Status)
	return record.Status, nil
}

// List returns issues ordered by severity, CRITICAL first, then newest first.
func (s *Service) List(ctx context.Context, input ListInput) ([]Issue, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	filter := ports.IssueFilter{Order: ports.IssueOrderSeverity, Limit: input.Limit}
	for _, raw := range input.Statuses {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, err := issue.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if input.ActiveOnly && len(filter.Statuses) == 0 {
		filter.Statuses = []issue.Status{issue.StatusOpen, issue.StatusInProgress}
	}
	for _, raw := range input.Severities {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		severity, err := issue.ParseSeverity(raw)
		if err != nil {
			return nil, err
		}
		filter.Severities = append(filter.Severities, severity)
	}

	records, err := s.repo.ListIssues(ctx, filter)
	if err != nil {
		return nil, errs.Unavailable(err, "list issues")
	}
	return toIssues(records), nil
}

// Search returns every issue whose identifier contains fragment, newest first.
// It never picks one match on the caller's behalf.
func (s *Service) Search(ctx context.Context, fragment string, limit int) ([]Issue, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return nil, errs.Invalid("search text is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	records, err := s.repo.SearchIssues(ctx, trimmed, limit)
	if err != nil {
		return nil, errs.Unavailable(err, "search issues")
	}
	return toIssues(records), nil
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if err := s.ready(ctx); err != nil {
		return Summary{}, err
	}

	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Summary{}, errs.Unavailable(err, "count issues by status")
	}
	bySeverity, err := s.repo.CountActiveBySeverity(ctx)
	if err != nil {
		return Summary{}, errs.Unavailable(err, "count issues by severity")
	}

	summary := Summary{
		ByStatus:         make(map[issue.Status]int64, 4),
		ActiveBySeverity: make(map[issue.Severity]int64, 4),
	}
	for _, status := range []issue.Status{issue.StatusOpen, issue.StatusInProgress, issue.StatusResolved, issue.StatusClosed} {
		summary.ByStatus[status] = byStatus[status]
		summary.Total += byStatus[status]
		if status.IsActive() {
			summary.Active += byStatus[status]
		}
	}
	for _, severity := range issue.Severities() {
		summary.ActiveBySeverity[severity] = bySeverity[severity]
	}
	return summary, nil
}
