package ports

import (
	"context"

	"supplyguard/internal/domain/issue"
	"supplyguard/internal/domain/risk"
)

type IssueRecord struct {
	RowID           uint64
	IssueID         string
	Title           string
	Description     string
	Intent          risk.Intent
	Severity        issue.Severity
	Status          issue.Status
	PartID          *string
	OrderID         *string
	SourceReference *string
	AssignedTo      string
	ActiveKey       *string
	CreatedAt       string
	UpdatedAt       string
	ResolvedAt      *string
	ResolutionNotes *string
}

type IssueOrder int

const (
	// IssueOrderSeverity sorts CRITICAL first, newest first within a severity.
	IssueOrderSeverity IssueOrder = iota
	// IssueOrderCreatedAsc sorts oldest first.
	IssueOrderCreatedAsc
)

type IssueFilter struct {
	Statuses   []issue.Status
	Severities []issue.Severity
	Order      IssueOrder
	Limit      int
}

type IssueStatusUpdate struct {
	IssueID         string
	Status          issue.Status
	UpdatedAt       string
	ResolvedAt      *string
	ResolutionNotes *string
	ClearActiveKey  bool
}

type IssueReadRepository interface {
	GetIssue(ctx context.Context, issueID string) (IssueRecord, error)
	// FindActiveByKey returns the earliest OPEN or IN_PROGRESS issue matching the triple.
	FindActiveByKey(ctx context.Context, key issue.DedupKey) (IssueRecord, bool, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]IssueRecord, error)
	SearchIssues(ctx context.Context, fragment string, limit int) ([]IssueRecord, error)
	CountIssuesWithPrefix(ctx context.Context, prefix string) (int64, error)
	CountByStatus(ctx context.Context) (map[issue.Status]int64, error)
	CountActiveBySeverity(ctx context.Context) (map[issue.Severity]int64, error)
}

type IssueRepository interface {
	IssueReadRepository
	// CreateIssue reports false when a unique column (issue_id or active_key) already holds the value.
	CreateIssue(ctx context.Context, record IssueRecord) (bool, error)
	UpdateIssueStatus(ctx context.Context, update IssueStatusUpdate) error
	// SetActiveKey claims the unique active key for an issue. It reports false when another row holds it.
	SetActiveKey(ctx context.Context, issueID string, activeKey string) (bool, error)
}
