package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
	"supplyguard/internal/usecase/pipeline"
)

// NATSSource subscribes to a subject carrying classified event JSON.
type NATSSource struct {
	url     string
	subject string
	queue   string
}

func NewNATSSource(url, subject, queue string) *NATSSource {
	return &NATSSource{url: strings.TrimSpace(url), subject: strings.TrimSpace(subject), queue: strings.TrimSpace(queue)}
}

func (s *NATSSource) Run(ctx context.Context, out chan<- pipeline.Envelope) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if s.url == "" || s.subject == "" {
		return errors.New("nats url and subject are required")
	}
	logCtx := logging.WithAttrs(logging.WithComponent(ctx, "infrastructure.intake.nats"), slog.String("subject", s.subject))

	conn, err := nats.Connect(
		s.url,
		nats.Name("supplyguard-intake"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			logging.Info(logCtx, "nats reconnected")
		}),
	)
	if err != nil {
		return errs.Wrap(err, "connect nats")
	}
	defer conn.Close()

	msgs := make(chan *nats.Msg, 64)
	var sub *nats.Subscription
	if s.queue != "" {
		sub, err = conn.ChanQueueSubscribe(s.subject, s.queue, msgs)
	} else {
		sub, err = conn.ChanSubscribe(s.subject, msgs)
	}
	if err != nil {
		return errs.Wrapf(err, "subscribe %q", s.subject)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			logging.Debug(logCtx, "nats unsubscribe failed", slog.Any("err", errs.Loggable(err)))
		}
	}()
	logging.Info(logCtx, "listening for events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			envelope, ok := s.envelope(logCtx, msg)
			if !ok {
				continue
			}
			select {
			case out <- envelope:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *NATSSource) envelope(ctx context.Context, msg *nats.Msg) (pipeline.Envelope, bool) {
	source := "nats:" + msg.Subject
	event, err := DecodeEvent(msg.Data, source)
	if err != nil {
		logging.Warn(ctx, "skip malformed event message", slog.String("source", source), slog.Any("err", errs.Loggable(err)))
		return pipeline.Envelope{}, false
	}
	return pipeline.Envelope{Source: source, Event: event}, true
}
