package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/domain/event"
	"github.com/david-camba/kafky-event-driven-chat/errors"
	"github.com/david-camba/kafky-event-driven-chat/mocks"
)

// recordingStore is an in-memory event store that tracks call order.
type recordingStore struct {
	next    uint64
	entries map[uint64]domain.LogEntry
	calls   *[]string
}

func newRecordingStore(calls *[]string) *recordingStore {
	return &recordingStore{next: 1, entries: make(map[uint64]domain.LogEntry), calls: calls}
}

func (s *recordingStore) Append(factType string, payload []byte) (uint64, error) {
	*s.calls = append(*s.calls, "append")
	seq := s.next
	s.next++
	s.entries[seq] = domain.LogEntry{SequenceID: seq, Type: factType, Payload: payload}
	return seq, nil
}

func (s *recordingStore) Get(sequenceID uint64) (domain.LogEntry, error) {
	entry, ok := s.entries[sequenceID]
	if !ok {
		return domain.LogEntry{}, errors.ErrFactNotFound
	}
	return entry, nil
}

func TestBus_Optimistic_Delivery_Happens_Before_Append(t *testing.T) {
	req := require.New(t)
	var calls []string
	bus := NewBus(slog.Default(), newRecordingStore(&calls))

	bus.Subscribe("chat.message.new", func(ctx context.Context, fact event.Fact) error {
		calls = append(calls, "optimistic")
		return nil
	})
	bus.Subscribe("chat.message.new-confirmed", func(ctx context.Context, fact event.Fact) error {
		calls = append(calls, "confirmed")
		return nil
	})

	fact := event.NewFact("chat.message.new", event.NewMessage{Room: 1, Author: "alice", Content: "hi"}, "corr", "client:alice")
	req.NoError(bus.Publish(context.Background(), fact))

	// Then delivery order is structural: optimistic, append, confirmed
	req.Equal([]string{"optimistic", "append", "confirmed"}, calls)
}

func TestBus_Confirmed_Fact_Carries_Sequence_And_Matches_Log(t *testing.T) {
	req := require.New(t)
	var calls []string
	store := newRecordingStore(&calls)
	bus := NewBus(slog.Default(), store)

	var confirmed []event.Confirmed
	bus.Subscribe(event.ConfirmedType(event.TypeNewMessage), func(ctx context.Context, fact event.Fact) error {
		confirmed = append(confirmed, fact.Payload.(event.Confirmed))
		return nil
	})

	posted := event.NewMessage{Room: 1, Author: "alice", AuthorName: "alice", Content: "hi"}
	fact := event.NewFact(event.TypeNewMessage, posted, "corr", "client:alice")
	req.NoError(bus.Publish(context.Background(), fact))

	// Then exactly one confirmed variant was delivered
	req.Len(confirmed, 1)
	req.Equal(uint64(1), confirmed[0].SequenceID)

	// And re-fetching by that id returns the payload that was logged
	entry, err := store.Get(confirmed[0].SequenceID)
	req.NoError(err)
	req.Equal(event.TypeNewMessage, entry.Type)
	var logged event.NewMessage
	req.NoError(json.Unmarshal(entry.Payload, &logged))
	req.Equal(posted, logged)
}

func TestBus_Append_Failure_Skips_Confirmed_And_Reports(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	storeMock := mocks.NewMockIEventStore(ctrl)

	bus := NewBus(slog.Default(), storeMock)

	optimistic := 0
	confirmed := 0
	bus.Subscribe(event.TypeNewMessage, func(ctx context.Context, fact event.Fact) error {
		optimistic++
		return nil
	})
	bus.Subscribe(event.ConfirmedType(event.TypeNewMessage), func(ctx context.Context, fact event.Fact) error {
		confirmed++
		return nil
	})

	// Given the event log is unavailable
	storeMock.EXPECT().
		Append(event.TypeNewMessage, gomock.Any()).
		Return(uint64(0), fmt.Errorf("disk on fire")).
		Times(1)

	fact := event.NewFact(event.TypeNewMessage, event.NewMessage{Room: 1, Author: "alice", Content: "hi"}, "corr", "client:alice")
	err := bus.Publish(context.Background(), fact)

	// Then the failure reaches the publisher, the optimistic round
	// already ran and the confirmed round never does
	req.Error(err)
	req.Equal(1, optimistic)
	req.Equal(0, confirmed)
}

func TestBus_Handler_Failure_Does_Not_Block_Other_Subscribers(t *testing.T) {
	req := require.New(t)
	var calls []string
	bus := NewBus(slog.Default(), newRecordingStore(&calls))

	delivered := 0
	bus.Subscribe(event.TypeNewMessage, func(ctx context.Context, fact event.Fact) error {
		return fmt.Errorf("handler error")
	})
	bus.Subscribe(event.TypeNewMessage, func(ctx context.Context, fact event.Fact) error {
		panic("handler panic")
	})
	bus.Subscribe(event.TypeNewMessage, func(ctx context.Context, fact event.Fact) error {
		delivered++
		return nil
	})

	fact := event.NewFact(event.TypeNewMessage, event.NewMessage{Room: 1, Author: "alice", Content: "hi"}, "corr", "client:alice")
	req.NoError(bus.Publish(context.Background(), fact))

	// Then the healthy subscriber was still notified and the fact logged
	req.Equal(1, delivered)
	req.Contains(calls, "append")
}
