package domain

import (
	"encoding/json"
	"time"
)

// LogEntry is one immutable record of the event log. The sequence id is
// the only identifier other components may use to re-fetch the
// canonical fact.
type LogEntry struct {
	SequenceID uint64          `json:"sequence_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}
