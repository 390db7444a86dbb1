package e2e

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/suite"

	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/gateway"
	"github.com/david-camba/kafky-event-driven-chat/moderation"
	"github.com/david-camba/kafky-event-driven-chat/projection"
	"github.com/david-camba/kafky-event-driven-chat/repositories"
	"github.com/david-camba/kafky-event-driven-chat/runtime"
)

// BaseBackendSuite boots the whole backend in-process against a
// throwaway badger directory: real log, real read model, real bus with
// the projector and dispatcher registered, real gateway. Only the
// transport is faked.
type BaseBackendSuite struct {
	suite.Suite

	db         *badger.DB
	Bus        *runtime.Bus
	Dispatcher *runtime.Dispatcher
	Gateway    *gateway.Gateway
	Store      *repositories.EventLogRepository
	Messages   repositories.MessageRepository
	Auth       repositories.AuthRepository
}

func (s *BaseBackendSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	opts := badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	s.Require().NoError(err)
	s.db = db

	s.Store, err = repositories.NewEventLogRepository(db, log)
	s.Require().NoError(err)
	s.Messages = repositories.NewMessageRepository(db, log, nil)
	s.Auth = repositories.NewAuthRepository(db, log)

	censored, err := moderation.LoadCensoredWords()
	s.Require().NoError(err)
	moderator, err := moderation.NewModerator(censored.Words, '*')
	s.Require().NoError(err)

	s.Bus = runtime.NewBus(log, s.Store)
	projection.NewProjector(log, s.Store, s.Messages, s.Bus, moderator).RegisterHandlers(s.Bus)
	s.Dispatcher = runtime.NewDispatcher(log, s.Bus, s.Messages)
	s.Dispatcher.RegisterHandlers(s.Bus)
	s.Gateway = gateway.NewGateway(log, s.Bus, s.Auth)
}

func (s *BaseBackendSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

// SeedRoom registers a two-participant room in the authorization
// repository.
func (s *BaseBackendSuite) SeedRoom(id domain.RoomID, userA, userB string) {
	s.Require().NoError(s.Auth.SaveRoom(domain.RoomRecord{
		ID:           id,
		Participants: [2]string{userA, userB},
	}))
}

// Frame builds a raw client frame as it would arrive off the wire.
func Frame(frameType, payloadJSON string) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"payload":%s}`, frameType, payloadJSON))
}

// RecordingTransport captures every push the server sends to one
// client session.
type RecordingTransport struct {
	mu     sync.Mutex
	closed bool
	pushes []domain.Push
}

func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{}
}

func (t *RecordingTransport) Send(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport closed")
	}
	push, ok := v.(domain.Push)
	if !ok {
		return fmt.Errorf("unexpected frame %T", v)
	}
	t.pushes = append(t.pushes, push)
	return nil
}

func (t *RecordingTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *RecordingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Pushes returns the frames of the given type, in arrival order.
func (t *RecordingTransport) Pushes(frameType string) []domain.Push {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.Push
	for _, p := range t.pushes {
		if p.Type == frameType {
			out = append(out, p)
		}
	}
	return out
}

// All returns every captured push in arrival order.
func (t *RecordingTransport) All() []domain.Push {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Push(nil), t.pushes...)
}
