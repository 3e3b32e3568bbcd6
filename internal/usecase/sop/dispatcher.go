package sop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
	"supplyguard/internal/usecase/planning"
)

// PartAnalyzer nets demand for a part. *planning.Service satisfies it.
type PartAnalyzer interface {
	AnalyzePartUsage(ctx context.Context, partID string) (planning.UsageReport, error)
}

// Dispatcher resolves the playbook for an event and renders its steps.
type Dispatcher struct {
	profile  Profile
	analyzer PartAnalyzer
}

var _ ports.ActionDispatcher = (*Dispatcher)(nil)

func NewDispatcher(profile Profile, analyzer PartAnalyzer) *Dispatcher {
	return &Dispatcher{profile: profile, analyzer: analyzer}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event risk.ClassifiedEvent) (ports.ActionOutcome, error) {
	if ctx == nil {
		return ports.ActionOutcome{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.ActionOutcome{}, errs.Wrap(err, "check context")
	}

	playbook := d.profile.PlaybookFor(event.Intent)
	replacer := placeholders(event)

	steps := make([]string, 0, len(playbook.Steps))
	for _, step := range playbook.Steps {
		steps = append(steps, replacer.Replace(strings.TrimSpace(step)))
	}

	detail := playbook.Name
	if len(steps) > 0 {
		detail += ": " + strings.Join(steps, "; ")
	}

	if playbook.CheckPartUsage && event.PartID != "" && d.analyzer != nil {
		report, err := d.analyzer.AnalyzePartUsage(ctx, event.PartID)
		if err != nil {
			return ports.ActionOutcome{}, errs.Wrapf(err, "part usage for %s", event.PartID)
		}
		detail += fmt.Sprintf(" [usage %s balance %d]", report.Status, report.Balance)
	}
	if playbook.Owner != "" {
		detail += " (owner " + playbook.Owner + ")"
	}

	logging.Debug(
		logging.WithComponent(ctx, "usecase.sop"),
		"playbook dispatched",
		slog.String("playbook", playbook.Name),
		slog.String("intent", string(event.Intent)),
	)
	return ports.ActionOutcome{Playbook: playbook.Name, Detail: detail}, nil
}

func placeholders(event risk.ClassifiedEvent) *strings.Replacer {
	return strings.NewReplacer(
		"{intent}", string(event.Intent),
		"{subject}", event.Subject(),
		"{part}", orDash(event.PartID),
		"{order}", orDash(event.OrderID),
		"{old_value}", orDash(event.OldValue),
		"{new_value}", orDash(event.NewValue),
		"{tracking}", orDash(event.TrackingNumber),
	)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
