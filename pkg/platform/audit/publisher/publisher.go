// Package publisher connects audit emitters to a store, either synchronously
// or through a buffered channel drained by a background goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/requestcontext"
)

// Publisher enriches events with request correlation data and hands them to
// the configured store. In async mode a full buffer drops the event rather
// than blocking the request path; audit writes must never stall a vote.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox  chan audit.Event
	done   chan struct{}
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given
// channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records an event. Missing correlation fields are filled from the
// context; a zero Timestamp is set to the request time.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
	return nil
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Detached from the request context: the request may be long gone
		// by the time the event is persisted.
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// Close drains buffered events and stops the background goroutine.
// Safe to call multiple times.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox == nil {
			close(p.done)
			return
		}
		close(p.inbox)
		<-p.done
	})
}

// ListRecent exposes the store's read side for admin inspection.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}
