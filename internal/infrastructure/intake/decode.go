package intake

import (
	"bytes"
	"encoding/json"

	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
)

// DecodeEvent parses one classified event. source fills an empty source_reference.
func DecodeEvent(raw []byte, source string) (risk.ClassifiedEvent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return risk.ClassifiedEvent{}, errs.Invalid("empty event payload")
	}

	var event risk.ClassifiedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return risk.ClassifiedEvent{}, errs.Invalid("decode event: %v", err)
	}
	if event.SourceReference == "" {
		event.SourceReference = source
	}

	event = event.Normalize()
	if err := event.Validate(); err != nil {
		return risk.ClassifiedEvent{}, err
	}
	return event, nil
}
