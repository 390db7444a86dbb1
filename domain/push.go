package domain

// Server->client push frame types.
const (
	PushHistory        = "chat.history"
	PushBroadcast      = "chat.message.broadcast"
	PushSessionRevoked = "chat.session.revoked"
)

// Push is the envelope of every server->client frame.
type Push struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
