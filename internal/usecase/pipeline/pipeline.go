package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
	"supplyguard/internal/usecase/issues"
)

// IssueEscalator opens or matches an issue for a high-risk event.
type IssueEscalator interface {
	CreateFromEvent(ctx context.Context, event risk.ClassifiedEvent) (issues.CreateResult, error)
}

type Stage string

const (
	StageRouted  Stage = "ROUTED"
	StageActed   Stage = "ACTED"
	StageStopped Stage = "STOPPED"
)

type Outcome struct {
	RunID     string               `json:"run_id"`
	Event     risk.ClassifiedEvent `json:"event"`
	Stage     Stage                `json:"stage"`
	Action    *ports.ActionOutcome `json:"action,omitempty"`
	Escalated bool                 `json:"escalated"`
	Issue     *issues.CreateResult `json:"issue,omitempty"`
}

// Pipeline routes one classified event at a time. Concurrent Process calls are
// independent; the only shared state is the action log.
type Pipeline struct {
	dispatcher ports.ActionDispatcher
	escalator  IssueEscalator
	log        *ActionLog
	now        func() time.Time
}

func New(dispatcher ports.ActionDispatcher, escalator IssueEscalator, log *ActionLog, now func() time.Time) *Pipeline {
	if log == nil {
		log = NewActionLog(DefaultActionLogSize)
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{dispatcher: dispatcher, escalator: escalator, log: log, now: now}
}

func (p *Pipeline) ActionLog() *ActionLog {
	return p.log
}

// Process routes event to the Act stage when its score reaches the action
// threshold and, independently, escalates it to an issue at the escalation
// threshold. Act and escalation run concurrently; a failure in one does not
// cancel the other.
func (p *Pipeline) Process(ctx context.Context, event risk.ClassifiedEvent) (Outcome, error) {
	if ctx == nil {
		return Outcome{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, errs.Wrap(err, "check context")
	}

	event = event.Normalize()
	if err := event.Validate(); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{RunID: uuid.NewString(), Event: event, Stage: StageStopped}
	logCtx := logging.WithAttrs(
		logging.WithComponent(ctx, "usecase.pipeline"),
		slog.String("run_id", outcome.RunID),
		slog.String("intent", string(event.Intent)),
		slog.Int("risk_score", event.RiskScore),
		slog.String("source", event.SourceReference),
	)

	act := event.ShouldAct() && p.dispatcher != nil
	escalate := event.ShouldEscalate() && p.escalator != nil
	if act {
		outcome.Stage = StageRouted
	}

	// Neither stage cancels the other and both errors are reported.
	var (
		wg        sync.WaitGroup
		actErr    error
		escErr    error
		action    ports.ActionOutcome
		escalated issues.CreateResult
	)
	if act {
		wg.Add(1)
		go func() {
			defer wg.Done()
			action, actErr = p.dispatcher.Dispatch(logCtx, event)
		}()
	}
	if escalate {
		wg.Add(1)
		go func() {
			defer wg.Done()
			escalated, escErr = p.escalator.CreateFromEvent(logCtx, event)
		}()
	}
	wg.Wait()

	if act && actErr == nil {
		outcome.Stage = StageActed
		outcome.Action = &action
		p.record(outcome.RunID, event, action.Detail)
	}
	if escalate && escErr == nil {
		outcome.Escalated = true
		outcome.Issue = &escalated
		p.record(outcome.RunID, event, escalationDetail(escalated))
	}

	if err := errors.Join(wrapStage(actErr, "act"), wrapStage(escErr, "escalate")); err != nil {
		logging.Error(logCtx, "event processing failed", slog.Any("err", errs.Loggable(err)))
		return outcome, err
	}

	logging.Info(logCtx, "event processed", slog.String("stage", string(outcome.Stage)), slog.Bool("escalated", outcome.Escalated))
	return outcome, nil
}

func (p *Pipeline) record(runID string, event risk.ClassifiedEvent, detail string) {
	p.log.Append(ActionEntry{
		RunID:     runID,
		At:        p.now(),
		Intent:    event.Intent,
		RiskScore: event.RiskScore,
		Detail:    detail,
	})
}

func escalationDetail(result issues.CreateResult) string {
	if result.Created {
		return fmt.Sprintf("opened %s issue %s", result.Severity, result.IssueID)
	}
	return "matched active issue " + result.IssueID
}

func wrapStage(err error, stage string) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(err, stage)
}
