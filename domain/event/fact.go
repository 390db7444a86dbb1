// Package event defines the immutable facts exchanged on the bus.
// A fact is created by a publisher, never mutated, consumed by zero or
// more subscribers and retained forever in the event log.
package event

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmedSuffix marks the durable variant of a fact type, delivered
// only after the fact has been appended to the event log.
const ConfirmedSuffix = "-confirmed"

// ConfirmedType returns the name under which the durable variant of a
// fact type is republished.
func ConfirmedType(factType string) string {
	return factType + ConfirmedSuffix
}

// Fact is a domain event envelope. CorrelationID groups every fact
// produced by one end-user interaction; CausationID names the fact or
// actor that directly produced this one.
type Fact struct {
	ID            uuid.UUID
	Type          string
	Payload       any
	CorrelationID string
	CausationID   string
	At            time.Time
}

func NewFact(factType string, payload any, correlationID, causationID string) Fact {
	return Fact{
		ID:            uuid.New(),
		Type:          factType,
		Payload:       payload,
		CorrelationID: correlationID,
		CausationID:   causationID,
		At:            time.Now().UTC(),
	}
}

// Confirmed is the payload of every "-confirmed" fact: the original
// payload plus the sequence id assigned by the event log.
type Confirmed struct {
	SequenceID uint64 `json:"sequence_id"`
	Payload    any    `json:"payload"`
}
