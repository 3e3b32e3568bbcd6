package issue

import (
	"fmt"
	"strings"

	"supplyguard/internal/errs"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// severityByRisk is the only place auto-created issues get their severity from.
var severityByRisk = map[int]Severity{
	5: SeverityCritical,
	4: SeverityHigh,
}

func ParseSeverity(raw string) (Severity, error) {
	normalized := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := severityRank[normalized]; !ok {
		return "", errs.Invalid("unknown severity %q", raw)
	}
	return normalized, nil
}

// Rank orders severities with CRITICAL first.
func (s Severity) Rank() int {
	if rank, ok := severityRank[s]; ok {
		return rank
	}
	return len(severityRank)
}

func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// SeverityForRisk maps an escalated risk score to a severity.
func SeverityForRisk(score int) (Severity, error) {
	severity, ok := severityByRisk[score]
	if !ok {
		return "", fmt.Errorf("%w: risk score %d does not escalate", errs.ErrInvalidRequest, score)
	}
	return severity, nil
}
