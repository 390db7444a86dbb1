// Package gateway terminates client sessions. It maps inbound client
// requests to facts on the bus and certain facts back to direct pushes
// on a specific connection.
package gateway

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

// Gateway drives the per-connection state machine
// Unidentified -> Identified -> (roomless <-> in a room) and owns the
// identity -> connections index. One identity may hold several
// simultaneous connections (tabs), but at most one of them is active
// in a given room.
type Gateway struct {
	log        *slog.Logger
	bus        contract.IBus
	auth       contract.IAuthRepository
	mu         sync.RWMutex
	identities map[string][]*domain.Connection
}

func NewGateway(log *slog.Logger, bus contract.IBus, auth contract.IAuthRepository) *Gateway {
	return &Gateway{
		log:        log,
		bus:        bus,
		auth:       auth,
		identities: make(map[string][]*domain.Connection),
	}
}

// NewConnection registers a fresh, unidentified session around the
// given transport.
func (g *Gateway) NewConnection(t domain.Transport) *domain.Connection {
	return domain.NewConnection(t)
}

// Identify claims an identity for the connection. There is no
// transition back; a second identify on the same connection is dropped.
func (g *Gateway) Identify(conn *domain.Connection, userID, displayName string) {
	if conn.Identified() {
		g.log.Warn("Connection tried to identify twice", "conn", conn.ID, "user", conn.UserID)
		return
	}
	if displayName == "" {
		displayName = userID
	}
	conn.UserID = userID
	conn.DisplayName = displayName

	g.mu.Lock()
	g.identities[userID] = append(g.identities[userID], conn)
	g.mu.Unlock()

	g.log.Info("Connection identified", "conn", conn.ID, "user", userID)
}

// Select claims a room for the connection: revoke any prior session of
// the same identity in that room, authorize the caller against the
// room's record, then publish the selection. Unauthorized requests are
// rejected silently (logged as a security event, no state change, no
// fact published).
func (g *Gateway) Select(ctx context.Context, conn *domain.Connection, room domain.RoomID, lastSeenID uint64) {
	if !conn.Identified() {
		g.log.Warn("Unidentified connection tried to select a room", "conn", conn.ID, "room", room)
		return
	}

	g.revokePriorSession(ctx, conn, room)

	record, err := g.auth.GetParticipants(room)
	if err != nil || !record.Allows(conn.UserID) {
		g.log.Warn("SECURITY Room selection rejected",
			"conn", conn.ID, "user", conn.UserID, "room", room, "error", err)
		return
	}

	conn.SetActiveRoom(room)
	correlationID := conn.ID.String()
	g.publish(ctx, event.NewFact(
		event.TypeRoomSelected,
		event.RoomSelected{Conn: conn, Room: int(room), User: conn.UserID, LastSeenID: lastSeenID},
		correlationID,
		"client:"+conn.UserID,
	))
}

// revokePriorSession treats another connection of the same identity
// already active in the room as a prior tab: its claim is cleared, a
// revocation fact is published for the dispatcher, and the old tab gets
// a direct notice.
func (g *Gateway) revokePriorSession(ctx context.Context, conn *domain.Connection, room domain.RoomID) {
	g.mu.RLock()
	siblings := append([]*domain.Connection(nil), g.identities[conn.UserID]...)
	g.mu.RUnlock()

	for _, other := range siblings {
		if other == conn || other.ActiveRoom() != room {
			continue
		}
		other.SetActiveRoom(0)
		g.publish(ctx, event.NewFact(
			event.TypeRoomRevoked,
			event.RoomRevoked{Conn: other, Room: int(room), User: conn.UserID},
			conn.ID.String(),
			"client:"+conn.UserID,
		))
		notice := fmt.Sprintf("Your session in room %d was taken over by a newer tab", room)
		if err := other.Transport.Send(domain.Push{Type: domain.PushSessionRevoked, Payload: notice}); err != nil {
			g.log.Debug("Revocation notice push failed", "conn", other.ID, "error", err)
		}
	}
}

// SendMessage publishes a new chat text for the connection's active
// room. Authorization was established at select time, so there is no
// re-check; a connection without identity or active room is silently
// ignored.
func (g *Gateway) SendMessage(ctx context.Context, conn *domain.Connection, text string) {
	room := conn.ActiveRoom()
	if !conn.Identified() || room == 0 {
		g.log.Debug("Message without active room ignored", "conn", conn.ID)
		return
	}
	g.publish(ctx, event.NewFact(
		event.TypeNewMessage,
		event.NewMessage{
			Room:       int(room),
			Author:     conn.UserID,
			AuthorName: conn.DisplayName,
			Content:    text,
		},
		conn.ID.String(),
		"client:"+conn.UserID,
	))
}

// Disconnect purges the closed connection. An identity entry is deleted
// with its last connection; an unidentified session is discarded
// silently.
func (g *Gateway) Disconnect(ctx context.Context, conn *domain.Connection) {
	if !conn.Identified() {
		return
	}

	g.mu.Lock()
	remaining := lo.Without(g.identities[conn.UserID], conn)
	if len(remaining) == 0 {
		delete(g.identities, conn.UserID)
	} else {
		g.identities[conn.UserID] = remaining
	}
	g.mu.Unlock()

	g.publish(ctx, event.NewFact(
		event.TypeConnectionClosed,
		event.ConnectionClosed{Conn: conn, Room: int(conn.ActiveRoom()), User: conn.UserID},
		conn.ID.String(),
		"client:"+conn.UserID,
	))
	g.log.Info("Connection closed", "conn", conn.ID, "user", conn.UserID)
}

// Connections returns the live connections of an identity.
func (g *Gateway) Connections(userID string) []*domain.Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*domain.Connection(nil), g.identities[userID]...)
}

// publish reports durability failures but never fails the caller: the
// optimistic subscribers were already notified and the session must
// keep serving.
func (g *Gateway) publish(ctx context.Context, fact event.Fact) {
	if err := g.bus.Publish(ctx, fact); err != nil {
		g.log.Error("Publishing fact failed", "type", fact.Type, "error", err)
	}
}
