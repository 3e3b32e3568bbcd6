package risk

import (
	"fmt"
	"strings"

	"supplyguard/internal/errs"
)

// Intent is the category the classification collaborator assigns to a message.
type Intent string

const (
	IntentDelay           Intent = "DELAY"
	IntentPriceChange     Intent = "PRICE_CHANGE"
	IntentQualityAlert    Intent = "QUALITY_ALERT"
	IntentCancellation    Intent = "CANCELLATION"
	IntentDiscontinuation Intent = "DISCONTINUATION"
	IntentPartialShipment Intent = "PARTIAL_SHIPMENT"
	IntentNewProposal     Intent = "NEW_PROPOSAL"
	IntentDemandChange    Intent = "DEMAND_CHANGE"
	IntentOther           Intent = "OTHER"
)

var intents = []Intent{
	IntentDelay,
	IntentPriceChange,
	IntentQualityAlert,
	IntentCancellation,
	IntentDiscontinuation,
	IntentPartialShipment,
	IntentNewProposal,
	IntentDemandChange,
	IntentOther,
}

const (
	MinScore = 1
	MaxScore = 5

	// ActionThreshold is the lowest score routed to the Act stage.
	ActionThreshold = 2
	// EscalationThreshold is the lowest score that opens an issue. It is a hard gate.
	EscalationThreshold = 4
)

func Intents() []Intent {
	out := make([]Intent, len(intents))
	copy(out, intents)
	return out
}

func ParseIntent(raw string) (Intent, error) {
	normalized := Intent(strings.ToUpper(strings.TrimSpace(raw)))
	for _, intent := range intents {
		if intent == normalized {
			return intent, nil
		}
	}
	return "", errs.Invalid("unknown intent %q", raw)
}

// ClassifiedEvent is the immutable output of the classification collaborator.
type ClassifiedEvent struct {
	Intent          Intent `json:"intent" jsonschema:"required,enum=DELAY,enum=PRICE_CHANGE,enum=QUALITY_ALERT,enum=CANCELLATION,enum=DISCONTINUATION,enum=PARTIAL_SHIPMENT,enum=NEW_PROPOSAL,enum=DEMAND_CHANGE,enum=OTHER"`
	RiskScore       int    `json:"risk_score" jsonschema:"required,minimum=1,maximum=5"`
	PartID          string `json:"part_id,omitempty" jsonschema:"description=Part number such as P300"`
	OrderID         string `json:"order_id,omitempty" jsonschema:"description=Purchase order number such as O5007"`
	OldValue        string `json:"old_value,omitempty"`
	NewValue        string `json:"new_value,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	Reasoning       string `json:"reasoning"`
	SourceReference string `json:"source_reference"`
}

// Normalize returns a copy with trimmed identifiers and an upper-cased intent.
func (e ClassifiedEvent) Normalize() ClassifiedEvent {
	e.Intent = Intent(strings.ToUpper(strings.TrimSpace(string(e.Intent))))
	e.PartID = strings.TrimSpace(e.PartID)
	e.OrderID = strings.TrimSpace(e.OrderID)
	e.SourceReference = strings.TrimSpace(e.SourceReference)
	e.Reasoning = strings.TrimSpace(e.Reasoning)
	return e
}

func (e ClassifiedEvent) Validate() error {
	if _, err := ParseIntent(string(e.Intent)); err != nil {
		return err
	}
	if e.RiskScore < MinScore || e.RiskScore > MaxScore {
		return errs.Invalid("risk_score %d outside %d..%d", e.RiskScore, MinScore, MaxScore)
	}
	return nil
}

func (e ClassifiedEvent) ShouldAct() bool {
	return e.RiskScore >= ActionThreshold
}

func (e ClassifiedEvent) ShouldEscalate() bool {
	return e.RiskScore >= EscalationThreshold
}

// Subject names the affected entity: part, then order, then a generic label.
func (e ClassifiedEvent) Subject() string {
	switch {
	case e.PartID != "":
		return e.PartID
	case e.OrderID != "":
		return e.OrderID
	default:
		return "Supply Chain Alert"
	}
}

func (e ClassifiedEvent) String() string {
	return fmt.Sprintf("%s (%d/5) %s", e.Intent, e.RiskScore, e.Subject())
}
