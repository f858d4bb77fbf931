package worker

import (
	"context"
	"log/slog"

	"quickpoll/internal/metrics"
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventVoted   EventKind = "voted"
	EventEdited  EventKind = "edited"
)

type PollEvent struct {
	Kind   EventKind
	PollID string
	// Detail is the option index for votes and the edit action for edits.
	Detail string
}

// ActivityWorker drains poll events published by the HTTP handlers and
// records them off the request path.
type ActivityWorker struct {
	Ch     <-chan PollEvent
	logger *slog.Logger
	onDone func(PollEvent)
}

func NewActivityWorker(ch <-chan PollEvent, logger *slog.Logger) *ActivityWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityWorker{Ch: ch, logger: logger}
}

func (w *ActivityWorker) Run(ctx context.Context) {
	w.logger.Info("activity worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("activity worker stopped")
			return
		case ev, ok := <-w.Ch:
			if !ok {
				w.logger.Info("activity worker stopped", "reason", "channel closed")
				return
			}
			w.handle(ev)
		}
	}
}

func (w *ActivityWorker) handle(ev PollEvent) {
	metrics.IncPollEvent(string(ev.Kind))
	w.logger.Info("poll event", "kind", ev.Kind, "poll_id", ev.PollID, "detail", ev.Detail)
	if w.onDone != nil {
		w.onDone(ev)
	}
}

// Publish hands ev to the worker without blocking; events are dropped when
// the buffer is full.
func Publish(ch chan<- PollEvent, ev PollEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
