package event

import (
	"github.com/david-camba/kafky-event-driven-chat/domain"
)

// Fact types published on the bus. Each type also has a derived
// "-confirmed" variant (see ConfirmedType).
const (
	TypeNewMessage        = "chat.message.new"
	TypeRoomSelected      = "chat.room.selected"
	TypeMessageProjected  = "chat.message.projected"
	TypeMessageDispatched = "chat.message.dispatched"
	TypeUserJoined        = "chat.room.joined"
	TypeRoomRevoked       = "chat.room.revoked"
	TypeConnectionClosed  = "connection.closed"
)

// NewMessage is published by the gateway when an identified connection
// with an active room sends a chat text.
type NewMessage struct {
	Room       int    `json:"room_id"`
	Author     string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"text"`
}

// RoomSelected carries the live connection that claimed a room. The
// handle is shared in memory only and never serialized into the log.
type RoomSelected struct {
	Conn       *domain.Connection `json:"-"`
	Room       int                `json:"room_id"`
	User       string             `json:"user_id"`
	LastSeenID uint64             `json:"last_seen_id"`
}

// MessageProjected is published by the projector once the read-model
// row exists; the dispatcher consumes it optimistically.
type MessageProjected struct {
	Message domain.ChatMessage `json:"message"`
}

// MessageDispatched records a completed fan-out to a room.
type MessageDispatched struct {
	Room       int `json:"room_id"`
	Recipients int `json:"recipients"`
}

// UserJoined records a successful room selection.
type UserJoined struct {
	Room int    `json:"room_id"`
	User string `json:"user_id"`
}

// RoomRevoked is published when a newer tab of the same identity takes
// over a room; the carried connection is the revoked prior session.
type RoomRevoked struct {
	Conn *domain.Connection `json:"-"`
	Room int                `json:"room_id"`
	User string             `json:"user_id"`
}

// ConnectionClosed is published when an identified transport closes.
// Room is 0 when the connection never selected a room.
type ConnectionClosed struct {
	Conn *domain.Connection `json:"-"`
	Room int                `json:"room_id"`
	User string             `json:"user_id"`
}
