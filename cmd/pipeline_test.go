package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"supplyguard/internal/domain/risk"
	"supplyguard/internal/usecase/pipeline"
)

// blockedSource sends events until ctx ends, then reports the context error
// the way a source stuck in a send does.
type blockedSource struct {
	sent chan struct{}
}

func (s *blockedSource) Run(ctx context.Context, out chan<- pipeline.Envelope) error {
	envelope := pipeline.Envelope{Source: "blocked", Event: risk.ClassifiedEvent{Intent: risk.IntentDelay, RiskScore: 1}}
	for {
		select {
		case out <- envelope:
			select {
			case s.sent <- struct{}{}:
			default:
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type failingSource struct{}

func (failingSource) Run(context.Context, chan<- pipeline.Envelope) error {
	return errors.New("nats: no servers available")
}

func TestRunListenTreatsCancellationAsShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &blockedSource{sent: make(chan struct{}, 1)}
	p := pipeline.New(nil, nil, nil, testNow)

	done := make(chan error, 1)
	go func() {
		_, err := runListen(ctx, p, []envelopeSource{source}, 1)
		done <- err
	}()

	select {
	case <-source.sent:
	case <-time.After(3 * time.Second):
		t.Fatalf("source never sent an envelope")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runListen() error = %v, want nil on shutdown", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("runListen() did not return after cancel")
	}
}

func TestRunListenReportsSourceFailure(t *testing.T) {
	p := pipeline.New(nil, nil, nil, testNow)

	_, err := runListen(context.Background(), p, []envelopeSource{failingSource{}}, 1)
	if err == nil || !strings.Contains(err.Error(), "no servers available") {
		t.Fatalf("runListen() error = %v, want source failure", err)
	}
}
