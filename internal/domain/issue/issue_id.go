package issue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"supplyguard/internal/errs"
)

const (
	issueIDPrefix = "ISS-"
	issueIDDay    = "20060102"
)

// DayPrefix returns "ISS-YYYYMMDD-" for the calendar day of t.
func DayPrefix(t time.Time) string {
	return issueIDPrefix + t.Format(issueIDDay) + "-"
}

// FormatIssueID renders ISS-YYYYMMDD-NNN with seq zero-padded to three digits.
func FormatIssueID(day time.Time, seq int) string {
	return fmt.Sprintf("%s%03d", DayPrefix(day), seq)
}

// ParseIssueID splits an identifier into its calendar day and daily sequence.
func ParseIssueID(raw string) (time.Time, int, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, issueIDPrefix) {
		return time.Time{}, 0, errs.Invalid("issue id %q must start with %s", raw, issueIDPrefix)
	}

	parts := strings.SplitN(strings.TrimPrefix(trimmed, issueIDPrefix), "-", 2)
	if len(parts) != 2 || len(parts[0]) != len(issueIDDay) || len(parts[1]) < 3 {
		return time.Time{}, 0, errs.Invalid("issue id %q is not ISS-YYYYMMDD-NNN", raw)
	}

	day, err := time.Parse(issueIDDay, parts[0])
	if err != nil {
		return time.Time{}, 0, errs.Invalid("issue id %q has a bad date", raw)
	}
	seq, err := strconv.Atoi(parts[1])
	if err != nil || seq <= 0 {
		return time.Time{}, 0, errs.Invalid("issue id %q has a bad sequence", raw)
	}
	return day, seq, nil
}
