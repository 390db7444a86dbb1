package gateway

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/david-camba/kafky-event-driven-chat/domain"
)

// Client->server frame types.
const (
	FrameIdentify   = "user.identify"
	FrameSelect     = "chat.select"
	FrameNewMessage = "chat.message.new"
)

var validate = validator.New()

// Frame is the envelope of every client->server message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type IdentifyPayload struct {
	UserID      string `json:"userId" validate:"required"`
	DisplayName string `json:"displayName"`
}

type SelectPayload struct {
	ChatID        int    `json:"chatId" validate:"required"`
	LastMessageID uint64 `json:"lastMessageId"`
}

type NewMessagePayload struct {
	ChatID      int    `json:"chatId" validate:"required"`
	MessageText string `json:"messageText" validate:"required"`
}

// HandleFrame routes one inbound frame to the matching operation.
// Malformed frames (unparsable, missing required fields, unknown type
// tag) are logged and dropped; they never close the connection.
func (g *Gateway) HandleFrame(ctx context.Context, conn *domain.Connection, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.log.Warn("Unparsable frame dropped", "conn", conn.ID, "error", err)
		return
	}

	switch frame.Type {
	case FrameIdentify:
		var payload IdentifyPayload
		if !g.decode(conn, frame, &payload) {
			return
		}
		g.Identify(conn, payload.UserID, payload.DisplayName)
	case FrameSelect:
		var payload SelectPayload
		if !g.decode(conn, frame, &payload) {
			return
		}
		g.Select(ctx, conn, domain.RoomID(payload.ChatID), payload.LastMessageID)
	case FrameNewMessage:
		var payload NewMessagePayload
		if !g.decode(conn, frame, &payload) {
			return
		}
		g.SendMessage(ctx, conn, payload.MessageText)
	default:
		g.log.Warn("Frame with unknown type dropped", "conn", conn.ID, "type", frame.Type)
	}
}

func (g *Gateway) decode(conn *domain.Connection, frame Frame, dst any) bool {
	if err := json.Unmarshal(frame.Payload, dst); err != nil {
		g.log.Warn("Malformed payload dropped", "conn", conn.ID, "type", frame.Type, "error", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		g.log.Warn("Invalid payload dropped", "conn", conn.ID, "type", frame.Type, "error", err)
		return false
	}
	return true
}
