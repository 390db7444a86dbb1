// Package runtime handles fact propagation: the bus, the room
// dispatcher and their delivery rules. It orchestrates the system
// without containing business logic or domain rules.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/david-camba/kafky-event-driven-chat/contract"
	"github.com/david-camba/kafky-event-driven-chat/domain/event"
	"github.com/david-camba/kafky-event-driven-chat/errors"
)

// Bus is the single in-process publish/subscribe hub. Every published
// fact gets two delivery rounds:
//
//  1. An immediate "optimistic" round to subscribers of the fact's own
//     type, before any durability work.
//  2. After the fact has been appended to the event log, a "confirmed"
//     round under the derived "{type}-confirmed" name, whose payload
//     carries the assigned sequence id.
//
// Consumers that must never act on an un-persisted fact subscribe to
// the confirmed variant; latency-sensitive consumers subscribe to the
// optimistic one. If the append fails the confirmed round never runs
// and the error is surfaced to the publisher.
type Bus struct {
	log      *slog.Logger
	store    contract.IEventStore
	mu       sync.RWMutex
	handlers map[string][]contract.Handler
}

func NewBus(log *slog.Logger, store contract.IEventStore) *Bus {
	return &Bus{
		log:      log,
		store:    store,
		handlers: make(map[string][]contract.Handler),
	}
}

func (b *Bus) Subscribe(factType string, handler contract.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[factType] = append(b.handlers[factType], handler)
}

func (b *Bus) Publish(ctx context.Context, fact event.Fact) error {
	// Optimistic round, strictly before the append.
	b.deliver(ctx, fact)

	payload, err := json.Marshal(fact.Payload)
	if err != nil {
		b.log.Error("Fact payload is not serializable, nothing was logged",
			"type", fact.Type, "error", err)
		return fmt.Errorf("marshaling %s payload: %w", fact.Type, err)
	}

	sequenceID, err := b.store.Append(fact.Type, payload)
	if err != nil {
		// Optimistic subscribers were already notified; there is no
		// compensation mechanism, only the publisher learns about it.
		b.log.Error("Event log append failed, confirmed delivery skipped",
			"type", fact.Type, "fact_id", fact.ID, "error", err)
		return fmt.Errorf("logging fact %s: %w", fact.Type, err)
	}

	confirmed := event.NewFact(
		event.ConfirmedType(fact.Type),
		event.Confirmed{SequenceID: sequenceID, Payload: fact.Payload},
		fact.CorrelationID,
		fact.ID.String(),
	)
	b.deliver(ctx, confirmed)
	return nil
}

// deliver invokes every subscriber of the fact's type in registration
// order. Each invocation is isolated: a failing or panicking handler
// never prevents delivery to the others.
func (b *Bus) deliver(ctx context.Context, fact event.Fact) {
	b.mu.RLock()
	handlers := b.handlers[fact.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.invoke(ctx, handler, fact); err != nil {
			b.log.Error("Fact handler failed", "type", fact.Type, "error", err)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, handler contract.Handler, fact event.Fact) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Fact handler panicked", "type", fact.Type, "panic", r)
			err = errors.ErrWorkerPanic
		}
	}()
	return handler(ctx, fact)
}
