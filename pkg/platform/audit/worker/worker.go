package worker

import (
	"context"
	"log/slog"

	audit "deedblock/pkg/platform/audit"
)

// Worker drains audit events from a channel into a store so the request path
// never blocks on audit persistence. Append failures are logged and the event
// dropped; auditing is best-effort off the hot path.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("appending audit event failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}

// Buffered is an audit.Store that hands events to a Worker through a bounded
// channel. When the buffer is full the event is dropped rather than stalling
// the caller.
type Buffered struct {
	ch     chan audit.Event
	logger *slog.Logger
}

func NewBuffered(size int, logger *slog.Logger) *Buffered {
	return &Buffered{ch: make(chan audit.Event, size), logger: logger}
}

func (b *Buffered) Append(_ context.Context, event audit.Event) error {
	select {
	case b.ch <- event:
	default:
		b.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

// Inbox is the channel a Worker should drain.
func (b *Buffered) Inbox() <-chan audit.Event { return b.ch }
