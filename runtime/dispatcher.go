package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/david-camba/kafky-event-driven-chat/contract"
	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/domain/event"
)

type memberSet map[*domain.Connection]struct{}

// Dispatcher owns room membership: which live connections currently
// view which room. It fans projected messages out to members and cleans
// membership up on disconnect or session takeover. Membership is
// mutated only here; the gateway owns the connections themselves.
type Dispatcher struct {
	log        *slog.Logger
	bus        contract.IBus
	messages   contract.IMessageRepository
	mu         sync.RWMutex
	membership map[domain.RoomID]memberSet
}

func NewDispatcher(log *slog.Logger, bus contract.IBus, messages contract.IMessageRepository) *Dispatcher {
	return &Dispatcher{
		log:        log,
		bus:        bus,
		messages:   messages,
		membership: make(map[domain.RoomID]memberSet),
	}
}

// RegisterHandlers wires the dispatcher's bus reactions, once at
// startup. Projected messages are consumed optimistically: the
// projector only runs after its own trigger was confirmed, so the
// causal chain already guarantees durability.
func (d *Dispatcher) RegisterHandlers(bus contract.IBus) {
	bus.Subscribe(event.TypeMessageProjected, d.onMessageProjected)
	bus.Subscribe(event.TypeRoomSelected, d.onRoomSelected)
	bus.Subscribe(event.TypeConnectionClosed, d.onConnectionClosed)
	bus.Subscribe(event.TypeRoomRevoked, d.onRoomRevoked)
}

// Subscribe adds the connection to the room's member set. It does not
// remove the connection from any prior room; callers unsubscribe
// explicitly first.
func (d *Dispatcher) Subscribe(conn *domain.Connection, room domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.membership[room]; !ok {
		d.membership[room] = make(memberSet)
	}
	d.membership[room][conn] = struct{}{}
}

// Unsubscribe removes the connection from the room's member set. An
// emptied room is deleted unless deleteIfEmpty is false: on a session
// takeover the room must survive because the new tab is about to
// re-subscribe to it.
func (d *Dispatcher) Unsubscribe(conn *domain.Connection, room domain.RoomID, deleteIfEmpty bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	members, ok := d.membership[room]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 && deleteIfEmpty {
		delete(d.membership, room)
	}
}

// Dispatch pushes the row to every member whose transport is still
// open and returns the number of deliveries. Closed transports are
// skipped silently; removing them is the gateway's close handler job.
func (d *Dispatcher) Dispatch(room domain.RoomID, msg domain.ChatMessage) int {
	d.mu.RLock()
	members := lo.Keys(d.membership[room])
	d.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if !conn.Transport.IsOpen() {
			continue
		}
		if err := conn.Transport.Send(domain.Push{Type: domain.PushBroadcast, Payload: msg}); err != nil {
			d.log.Debug("Push to member failed", "room", room, "conn", conn.ID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (d *Dispatcher) onMessageProjected(ctx context.Context, fact event.Fact) error {
	payload, ok := fact.Payload.(event.MessageProjected)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", fact.Type, fact.Payload)
	}
	recipients := d.Dispatch(domain.RoomID(payload.Message.Room), payload.Message)
	return d.bus.Publish(ctx, event.NewFact(
		event.TypeMessageDispatched,
		event.MessageDispatched{Room: payload.Message.Room, Recipients: recipients},
		fact.CorrelationID,
		fact.ID.String(),
	))
}

// onRoomSelected subscribes the connection, replays the history the
// client has not seen yet, then announces the member.
func (d *Dispatcher) onRoomSelected(ctx context.Context, fact event.Fact) error {
	payload, ok := fact.Payload.(event.RoomSelected)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", fact.Type, fact.Payload)
	}
	room := domain.RoomID(payload.Room)
	d.Subscribe(payload.Conn, room)

	rows, err := d.messages.ListMessagesAfter(payload.Room, payload.LastSeenID)
	if err != nil {
		return fmt.Errorf("loading history of room %d: %w", payload.Room, err)
	}
	if err = payload.Conn.Transport.Send(domain.Push{Type: domain.PushHistory, Payload: rows}); err != nil {
		d.log.Debug("History push failed", "room", room, "conn", payload.Conn.ID, "error", err)
	}

	return d.bus.Publish(ctx, event.NewFact(
		event.TypeUserJoined,
		event.UserJoined{Room: payload.Room, User: payload.User},
		fact.CorrelationID,
		fact.ID.String(),
	))
}

func (d *Dispatcher) onConnectionClosed(_ context.Context, fact event.Fact) error {
	payload, ok := fact.Payload.(event.ConnectionClosed)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", fact.Type, fact.Payload)
	}
	if payload.Room == 0 {
		return nil
	}
	d.Unsubscribe(payload.Conn, domain.RoomID(payload.Room), true)
	return nil
}

func (d *Dispatcher) onRoomRevoked(_ context.Context, fact event.Fact) error {
	payload, ok := fact.Payload.(event.RoomRevoked)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", fact.Type, fact.Payload)
	}
	d.Unsubscribe(payload.Conn, domain.RoomID(payload.Room), false)
	return nil
}

// Members returns the current member connections of a room.
func (d *Dispatcher) Members(room domain.RoomID) []*domain.Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members, ok := d.membership[room]
	if !ok {
		return nil
	}
	return lo.Keys(members)
}

// HasRoom reports whether the room still has a membership entry, even
// an empty one.
func (d *Dispatcher) HasRoom(room domain.RoomID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.membership[room]
	return ok
}
