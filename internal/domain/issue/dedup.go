package issue

import (
	"strings"

	"supplyguard/internal/domain/risk"
)

// DedupKey identifies a tracked problem among active issues.
// A nil part or order matches another nil.
type DedupKey struct {
	Intent  risk.Intent
	PartID  *string
	OrderID *string
}

func NewDedupKey(intent risk.Intent, partID, orderID string) DedupKey {
	return DedupKey{
		Intent:  intent,
		PartID:  OptionalString(partID),
		OrderID: OptionalString(orderID),
	}
}

// String encodes the key for the unique active_key column and lock names.
// "-" stands for NULL and "=" prefixes a value, so NULL never collides with text.
func (k DedupKey) String() string {
	return string(k.Intent) + "|" + encodeKeyPart(k.PartID) + "|" + encodeKeyPart(k.OrderID)
}

func (k DedupKey) LockName() string {
	return "issues:dedup:" + k.String()
}

func encodeKeyPart(v *string) string {
	if v == nil {
		return "-"
	}
	return "=" + *v
}

// OptionalString trims raw and returns nil for blank input.
func OptionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func StringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
