// Package bus carries attribute change notifications from the attribute
// store to its consumers. One failing handler or event must never block
// delivery of subsequent, unrelated events.
package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/domain"
)

// Handler consumes one attribute change event.
type Handler func(ctx context.Context, event domain.AttributeEvent) error

// Publisher emits attribute change events.
type Publisher interface {
	Publish(ctx context.Context, event domain.AttributeEvent) error
}

// Subscriber registers a handler for attribute change events.
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
}

// MemoryBus is a synchronous in-process bus. It backs single-process
// deployments and tests; multi-process deployments use the redis bus.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish delivers the event to every registered handler in registration
// order. Handler errors are logged and do not stop delivery to the
// remaining handlers.
func (b *MemoryBus) Publish(ctx context.Context, event domain.AttributeEvent) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			log.Error().Err(err).
				Str("account_id", event.AccountID).
				Str("key", event.Key).
				Str("kind", string(event.Kind)).
				Msg("Attribute event handler failed")
		}
	}
	return nil
}

// Subscribe registers a handler for all future events.
func (b *MemoryBus) Subscribe(_ context.Context, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

var (
	_ Publisher  = (*MemoryBus)(nil)
	_ Subscriber = (*MemoryBus)(nil)
)
