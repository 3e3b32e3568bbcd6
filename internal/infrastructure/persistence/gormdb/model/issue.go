package model

type Issue struct {
	ID              uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	IssueID         string  `gorm:"column:issue_id;type:text;not null;uniqueIndex:uq_issues_issue_id"`
	Title           string  `gorm:"column:title;type:text;not null"`
	Description     string  `gorm:"column:description;type:text;not null"`
	Intent          string  `gorm:"column:intent;type:text;not null;index:idx_issues_dedup,priority:1"`
	Severity        string  `gorm:"column:severity;type:text;not null"`
	Status          string  `gorm:"column:status;type:text;not null;index:idx_issues_status"`
	PartID          *string `gorm:"column:part_id;type:text;index:idx_issues_dedup,priority:2"`
	OrderID         *string `gorm:"column:order_id;type:text;index:idx_issues_dedup,priority:3"`
	SourceReference *string `gorm:"column:source_reference;type:text"`
	AssignedTo      string  `gorm:"column:assigned_to;type:text;not null;default:system-agent"`
	// ActiveKey holds the encoded dedup key while the issue is OPEN or IN_PROGRESS
	// and NULL otherwise. The unique index is what keeps active issues unique per key.
	ActiveKey       *string `gorm:"column:active_key;type:text;uniqueIndex:uq_issues_active_key"`
	CreatedAt       string  `gorm:"column:created_at;type:text;not null;index:idx_issues_created_at"`
	UpdatedAt       string  `gorm:"column:updated_at;type:text;not null"`
	ResolvedAt      *string `gorm:"column:resolved_at;type:text"`
	ResolutionNotes *string `gorm:"column:resolution_notes;type:text"`
}

func (Issue) TableName() string {
	return "issues"
}
