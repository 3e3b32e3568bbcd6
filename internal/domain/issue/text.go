package issue

import (
	"fmt"

	"supplyguard/internal/domain/risk"
)

const (
	DefaultAssignee = "system-agent"
	// IntentManual marks issues created by an operator rather than escalation.
	IntentManual risk.Intent = "MANUAL"
	MergeLockName            = "issues:merge"
)

func EventTitle(severity Severity, event risk.ClassifiedEvent) string {
	return fmt.Sprintf("[%s] %s: %s", severity, event.Intent, event.Subject())
}

func EventDescription(event risk.ClassifiedEvent) string {
	source := event.SourceReference
	if source == "" {
		source = "unknown"
	}
	return fmt.Sprintf("Auto-generated from source: %s\n\nReason: %s", source, event.Reasoning)
}

func MergeNote(keptIssueID string) string {
	return "Duplicate - merged with " + keptIssueID
}
