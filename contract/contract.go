//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/domain/event"
)

// Handler consumes one fact. Errors are logged by the bus and never
// prevent delivery to the other subscribers of the same type.
type Handler func(ctx context.Context, fact event.Fact) error

// IBus is the single in-process publish/subscribe hub. Publish performs
// optimistic delivery, then logs the fact, then delivers the confirmed
// variant, in that exact order.
type IBus interface {
	Publish(ctx context.Context, fact event.Fact) error
	Subscribe(factType string, handler Handler)
}

// IEventStore is the append-only log of all facts. Append is durable
// before it returns and sequence ids are strictly increasing with no
// gaps or duplicates, even under concurrent appends.
type IEventStore interface {
	Append(factType string, payload []byte) (uint64, error)
	Get(sequenceID uint64) (domain.LogEntry, error)
}

// IMessageRepository is the query-optimized read model of chat messages.
type IMessageRepository interface {
	StoreMessage(msg domain.ChatMessage) error
	ListMessagesAfter(room int, afterID uint64) ([]domain.ChatMessage, error)
}

// IAuthRepository resolves the authorization record of a room.
// Read-only for the core; returns errors.ErrRoomNotFound when absent.
type IAuthRepository interface {
	GetParticipants(room domain.RoomID) (domain.RoomRecord, error)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
