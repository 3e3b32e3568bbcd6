package issues

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/issue"
	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

// maxIDAttempts bounds retries when a concurrent writer takes the next daily sequence.
const maxIDAttempts = 5

// Service owns the issue lifecycle. It is the only writer of the issues table.
type Service struct {
	repo     ports.IssueRepository
	uow      ports.UnitOfWork
	locker   ports.KeyLocker
	cache    ports.Cache
	cacheTTL time.Duration
	now      func() time.Time

	// mergeMu keeps one sweep per process; the merge lock covers other processes.
	mergeMu sync.Mutex
}

type Options struct {
	Cache    ports.Cache
	CacheTTL time.Duration
	Now      func() time.Time
}

func NewService(repo ports.IssueRepository, uow ports.UnitOfWork, locker ports.KeyLocker, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		uow:      uow,
		locker:   locker,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		now:      now,
	}
}

// Issue is the caller-facing view of a tracked problem.
type Issue struct {
	IssueID         string         `json:"issue_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Intent          risk.Intent    `json:"intent"`
	Severity        issue.Severity `json:"severity"`
	Status          issue.Status   `json:"status"`
	PartID          *string        `json:"part_id"`
	OrderID         *string        `json:"order_id"`
	SourceReference *string        `json:"source_reference"`
	AssignedTo      string         `json:"assigned_to"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	ResolvedAt      *string        `json:"resolved_at"`
	ResolutionNotes *string        `json:"resolution_notes"`
}

type CreateResult struct {
	IssueID  string         `json:"issue_id,omitempty"`
	Severity issue.Severity `json:"severity,omitempty"`
	Created  bool           `json:"created"`
	// BelowThreshold is set when the score does not escalate. No issue is touched.
	BelowThreshold bool `json:"below_threshold,omitempty"`
}

type ManualIssueInput struct {
	Title           string
	Description     string
	Severity        string
	PartID          string
	OrderID         string
	SourceReference string
	AssignedTo      string
}

type ListInput struct {
	Statuses   []string
	Severities []string
	ActiveOnly bool
	Limit      int
}

type Summary struct {
	Total            int64                    `json:"total"`
	Active           int64                    `json:"active"`
	ByStatus         map[issue.Status]int64   `json:"by_status"`
	ActiveBySeverity map[issue.Severity]int64 `json:"active_by_severity"`
}

type MergeGroup struct {
	Kept   string   `json:"kept"`
	Closed []string `json:"closed"`
}

type MergeReport struct {
	Groups []MergeGroup `json:"groups"`
	Closed int          `json:"closed"`
}

func (s *Service) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("issue repository is required")
	}
	if s.uow == nil {
		return errors.New("issue unit of work is required")
	}
	return nil
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, errs.Unavailable(err, "acquire issue lock")
	}
	return unlock, nil
}

// allocateAndInsert numbers the issue as today's count+1 and inserts it.
// inserted is false when a concurrent writer took the id or the active key;
// callers retry and the count is read again.
func (s *Service) allocateAndInsert(txCtx context.Context, record ports.IssueRecord, day time.Time) (string, bool, error) {
	count, err := s.repo.CountIssuesWithPrefix(txCtx, issue.DayPrefix(day))
	if err != nil {
		return "", false, err
	}

	record.IssueID = issue.FormatIssueID(day, int(count)+1)
	inserted, err := s.repo.CreateIssue(txCtx, record)
	if err != nil {
		return "", false, err
	}
	return record.IssueID, inserted, nil
}

func (s *Service) setCacheBestEffort(ctx context.Context, issueID string, status issue.Status) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheIssueStatusKey(issueID), string(status), s.cacheTTL); err != nil {
		logging.Debug(ctx, "issue status cache write failed", slog.String("issue_id", issueID), slog.Any("err", errs.Loggable(err)))
	}
}

func cacheIssueStatusKey(issueID string) string {
	return "issue_status:" + issueID
}

func toIssue(record ports.IssueRecord) Issue {
	return Issue{
		IssueID:         record.IssueID,
		Title:           record.Title,
		Description:     record.Description,
		Intent:          record.Intent,
		Severity:        record.Severity,
		Status:          record.Status,
		PartID:          record.PartID,
		OrderID:         record.OrderID,
		SourceReference: record.SourceReference,
		AssignedTo:      record.AssignedTo,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
		ResolvedAt:      record.ResolvedAt,
		ResolutionNotes: record.ResolutionNotes,
	}
}

func toIssues(records []ports.IssueRecord) []Issue {
	out := make([]Issue, 0, len(records))
	for _, record := range records {
		out = append(out, toIssue(record))
	}
	return out
}
