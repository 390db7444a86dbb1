// Package domain contains core concepts of the chat system.
// This file defines Room identifiers and authorization records.
// No runtime, network, or UI logic should be added here.
package domain

type RoomID int

// RoomRecord is the authorization record of a private room.
// A room is a conversation between exactly two identities; the record
// is read-only for the rest of the system.
type RoomRecord struct {
	ID           RoomID    `json:"room_id"`
	Participants [2]string `json:"participants"`
}

// Allows reports whether the given user is one of the two participants.
func (r RoomRecord) Allows(userID string) bool {
	return r.Participants[0] == userID || r.Participants[1] == userID
}
