// Package domain contains core concepts of the chat system.
// This file defines the materialized chat message row.
package domain

import "time"

// ChatMessage is a read-model row, built by the projector as a
// deterministic function of a logged fact. The ID is the event log
// sequence id of that fact, which makes re-projection idempotent and
// gives rows a global total order.
type ChatMessage struct {
	ID         uint64    `json:"message_id"`
	Room       int       `json:"room_id"`
	Author     string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"text"`
	Lang       string    `json:"lang,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
