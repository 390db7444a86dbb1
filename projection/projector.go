// Package projection turns durable facts into the query-optimized read
// model. It never trusts bus payloads: the canonical fact is always
// re-fetched from the event log by sequence id.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"

	"github.com/david-camba/kafky-event-driven-chat/contract"
	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/domain/event"
	"github.com/david-camba/kafky-event-driven-chat/errors"
	"github.com/david-camba/kafky-event-driven-chat/moderation"
)

type Projector struct {
	log       *slog.Logger
	store     contract.IEventStore
	messages  contract.IMessageRepository
	bus       contract.IBus
	moderator moderation.Moderator
}

func NewProjector(log *slog.Logger, store contract.IEventStore,
	messages contract.IMessageRepository, bus contract.IBus,
	moderator moderation.Moderator) *Projector {
	return &Projector{
		log:       log,
		store:     store,
		messages:  messages,
		bus:       bus,
		moderator: moderator,
	}
}

// RegisterHandlers subscribes the projector to the confirmed variant of
// new chat texts, once at startup.
func (p *Projector) RegisterHandlers(bus contract.IBus) {
	bus.Subscribe(event.ConfirmedType(event.TypeNewMessage), p.onNewMessageConfirmed)
}

// onNewMessageConfirmed materializes one read-model row. Handling
// aborts for this fact only when the canonical entry is missing or of
// the wrong type; there is no retry.
func (p *Projector) onNewMessageConfirmed(ctx context.Context, fact event.Fact) error {
	confirmed, ok := fact.Payload.(event.Confirmed)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", fact.Type, fact.Payload)
	}

	entry, err := p.store.Get(confirmed.SequenceID)
	if err != nil {
		p.log.Warn("Dropping confirmed fact, canonical entry unavailable",
			"sequence_id", confirmed.SequenceID, "error", err)
		return err
	}
	if entry.Type != event.TypeNewMessage {
		p.log.Warn("Dropping confirmed fact, canonical entry has unexpected type",
			"sequence_id", confirmed.SequenceID, "type", entry.Type)
		return errors.ErrUnexpectedFactType
	}

	var posted event.NewMessage
	if err = json.Unmarshal(entry.Payload, &posted); err != nil {
		return fmt.Errorf("decoding canonical payload %d: %w", entry.SequenceID, err)
	}

	row := p.toRow(entry, posted)
	if err = p.messages.StoreMessage(row); err != nil {
		return fmt.Errorf("storing row %d: %w", row.ID, err)
	}

	return p.bus.Publish(ctx, event.NewFact(
		event.TypeMessageProjected,
		event.MessageProjected{Message: row},
		fact.CorrelationID,
		fact.ID.String(),
	))
}

// toRow is a deterministic function of the canonical log entry: the row
// id is the entry's sequence id, so projecting the same confirmed fact
// twice overwrites the same row instead of duplicating it.
func (p *Projector) toRow(entry domain.LogEntry, posted event.NewMessage) domain.ChatMessage {
	sanitized, foundWords := p.moderator.Censor(posted.Content)
	if len(foundWords) > 0 {
		p.log.Info("Censored words in message",
			"sequence_id", entry.SequenceID, "count", len(foundWords))
	}

	info := whatlanggo.Detect(posted.Content)
	return domain.ChatMessage{
		ID:         entry.SequenceID,
		Room:       posted.Room,
		Author:     posted.Author,
		AuthorName: posted.AuthorName,
		Content:    sanitized,
		Lang:       info.Lang.Iso6391(),
		CreatedAt:  entry.CreatedAt,
	}
}
