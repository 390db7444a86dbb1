package domain

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Transport is one live client session seen from the server side.
// Send pushes a single JSON frame; a closed transport silently refuses.
type Transport interface {
	Send(v any) error
	IsOpen() bool
	Close() error
}

// Connection holds the per-session state of the gateway's state machine.
// It is created by the gateway; the dispatcher keeps references inside
// its membership map but never mutates them. Identity fields are
// written once on the connection's own goroutine, but the active room
// crosses goroutines: a newer tab of the same identity clears it during
// a session takeover, so it lives behind an atomic.
type Connection struct {
	ID          uuid.UUID
	UserID      string
	DisplayName string
	Transport   Transport

	activeRoom atomic.Int64
}

func NewConnection(t Transport) *Connection {
	return &Connection{ID: uuid.New(), Transport: t}
}

// Identified reports whether the connection passed the identify step.
func (c *Connection) Identified() bool {
	return c.UserID != ""
}

// ActiveRoom returns the room currently claimed by the connection,
// 0 when none is selected.
func (c *Connection) ActiveRoom() RoomID {
	return RoomID(c.activeRoom.Load())
}

func (c *Connection) SetActiveRoom(room RoomID) {
	c.activeRoom.Store(int64(room))
}
