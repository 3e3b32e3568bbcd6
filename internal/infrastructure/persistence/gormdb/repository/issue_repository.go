package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supplyguard/internal/domain/issue"
	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
	"supplyguard/internal/infrastructure/persistence/gormdb/model"
	"supplyguard/internal/ports"
)

type IssueRepository struct {
	db *gorm.DB
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// severityRankSQL orders CRITICAL first; unknown severities sort last.
const severityRankSQL = "CASE severity WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 3 ELSE 4 END"

func (r *IssueRepository) GetIssue(ctx context.Context, issueID string) (ports.IssueRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.IssueRecord{}, err
	}

	var row model.Issue
	if err := db.Where("issue_id = ?", strings.TrimSpace(issueID)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IssueRecord{}, fmt.Errorf("issue %q: %w", issueID, errs.ErrNotFound)
		}
		return ports.IssueRecord{}, errs.Wrap(err, "query issue")
	}
	return mapIssue(row), nil
}

func (r *IssueRepository) FindActiveByKey(ctx context.Context, key issue.DedupKey) (ports.IssueRecord, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.IssueRecord{}, false, err
	}

	query := db.
		Where("intent = ?", string(key.Intent)).
		Where("status IN ?", activeStatuses())
	query = whereNullable(query, "part_id", key.PartID)
	query = whereNullable(query, "order_id", key.OrderID)

	var rows []model.Issue
	if err := query.Order("created_at asc").Order("id asc").Limit(1).Find(&rows).Error; err != nil {
		return ports.IssueRecord{}, false, errs.Wrap(err, "query active issue by key")
	}
	if len(rows) == 0 {
		return ports.IssueRecord{}, false, nil
	}
	return mapIssue(rows[0]), true, nil
}

func (r *IssueRepository) ListIssues(ctx context.Context, filter ports.IssueFilter) ([]ports.IssueRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Issue{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(filter.Statuses))
	}
	if len(filter.Severities) > 0 {
		severities := make([]string, 0, len(filter.Severities))
		for _, severity := range filter.Severities {
			severities = append(severities, string(severity))
		}
		query = query.Where("severity IN ?", severities)
	}

	switch filter.Order {
	case ports.IssueOrderCreatedAsc:
		query = query.Order("created_at asc").Order("id asc")
	default:
		query = query.Order(severityRankSQL).Order("created_at desc").Order("id desc")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Issue
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query issues")
	}
	return mapIssues(rows), nil
}

func (r *IssueRepository) SearchIssues(ctx context.Context, fragment string, limit int) ([]ports.IssueRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.
		Where("issue_id LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.TrimSpace(fragment))+"%").
		Order("created_at desc").
		Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Issue
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "search issues")
	}
	return mapIssues(rows), nil
}

func (r *IssueRepository) CountIssuesWithPrefix(ctx context.Context, prefix string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Issue{}).
		Where("issue_id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count issues by prefix")
	}
	return count, nil
}

type groupCount struct {
	Value string
	Total int64
}

func (r *IssueRepository) CountByStatus(ctx context.Context) (map[issue.Status]int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []groupCount
	if err := db.Model(&model.Issue{}).
		Select("status AS value, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count issues by status")
	}

	out := make(map[issue.Status]int64, len(rows))
	for _, row := range rows {
		out[issue.Status(row.Value)] = row.Total
	}
	return out, nil
}

func (r *IssueRepository) CountActiveBySeverity(ctx context.Context) (map[issue.Severity]int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []groupCount
	if err := db.Model(&model.Issue{}).
		Select("severity AS value, COUNT(*) AS total").
		Where("status IN ?", activeStatuses()).
		Group("severity").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count active issues by severity")
	}

	out := make(map[issue.Severity]int64, len(rows))
	for _, row := range rows {
		out[issue.Severity(row.Value)] = row.Total
	}
	return out, nil
}

func (r *IssueRepository) CreateIssue(ctx context.Context, record ports.IssueRecord) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	row := model.Issue{
		IssueID:         record.IssueID,
		Title:           record.Title,
		Description:     record.Description,
		Intent:          string(record.Intent),
		Severity:        string(record.Severity),
		Status:          string(record.Status),
		PartID:          record.PartID,
		OrderID:         record.OrderID,
		SourceReference: record.SourceReference,
		AssignedTo:      record.AssignedTo,
		ActiveKey:       record.ActiveKey,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
		ResolvedAt:      record.ResolvedAt,
		ResolutionNotes: record.ResolutionNotes,
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert issue")
	}
	return result.RowsAffected > 0, nil
}

func (r *IssueRepository) UpdateIssueStatus(ctx context.Context, update ports.IssueStatusUpdate) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	values := map[string]any{
		"status":     string(update.Status),
		"updated_at": update.UpdatedAt,
	}
	if update.ResolvedAt != nil {
		values["resolved_at"] = *update.ResolvedAt
	}
	if update.ResolutionNotes != nil {
		values["resolution_notes"] = *update.ResolutionNotes
	}
	if update.ClearActiveKey {
		values["active_key"] = gorm.Expr("NULL")
	}

	result := db.Model(&model.Issue{}).
		Where("issue_id = ?", update.IssueID).
		Updates(values)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update issue status")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("issue %q: %w", update.IssueID, errs.ErrNotFound)
	}
	return nil
}

func (r *IssueRepository) SetActiveKey(ctx context.Context, issueID string, activeKey string) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	var holders int64
	if err := db.Model(&model.Issue{}).
		Where("active_key = ? AND issue_id <> ?", activeKey, issueID).
		Count(&holders).Error; err != nil {
		return false, errs.Wrap(err, "check active key holder")
	}
	if holders > 0 {
		return false, nil
	}

	result := db.Model(&model.Issue{}).
		Where("issue_id = ?", issueID).
		Update("active_key", activeKey)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "set active key")
	}
	if result.RowsAffected == 0 {
		return false, fmt.Errorf("issue %q: %w", issueID, errs.ErrNotFound)
	}
	return true, nil
}

// whereNullable compares NULL with NULL as equal.
func whereNullable(query *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return query.Where(column + " IS NULL")
	}
	return query.Where(column+" = ?", *value)
}

func activeStatuses() []string {
	return []string{string(issue.StatusOpen), string(issue.StatusInProgress)}
}

func statusStrings(statuses []issue.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func escapeLike(raw string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(raw)
}

func mapIssues(rows []model.Issue) []ports.IssueRecord {
	items := make([]ports.IssueRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapIssue(row))
	}
	return items
}

func mapIssue(row model.Issue) ports.IssueRecord {
	return ports.IssueRecord{
		RowID:           row.ID,
		IssueID:         row.IssueID,
		Title:           row.Title,
		Description:     row.Description,
		Intent:          risk.Intent(row.Intent),
		Severity:        issue.Severity(row.Severity),
		Status:          issue.Status(row.Status),
		PartID:          row.PartID,
		OrderID:         row.OrderID,
		SourceReference: row.SourceReference,
		AssignedTo:      row.AssignedTo,
		ActiveKey:       row.ActiveKey,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		ResolvedAt:      row.ResolvedAt,
		ResolutionNotes: row.ResolutionNotes,
	}
}
