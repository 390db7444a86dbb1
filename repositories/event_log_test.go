package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_And_Get_Fact(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo, err := NewEventLogRepository(db, slog.Default())
	req.NoError(err)

	payload, err := json.Marshal(map[string]any{"room_id": 1, "text": "hi"})
	req.NoError(err)

	// When a fact is appended
	seq, err := repo.Append("chat.message.new", payload)
	req.NoError(err)
	req.Equal(uint64(1), seq)

	// Then re-fetching by sequence id returns the logged payload
	entry, err := repo.Get(seq)
	req.NoError(err)
	req.Equal(seq, entry.SequenceID)
	req.Equal("chat.message.new", entry.Type)
	req.JSONEq(string(payload), string(entry.Payload))
	req.False(entry.CreatedAt.IsZero())
}

func Test_Get_Unknown_Sequence(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo, err := NewEventLogRepository(db, slog.Default())
	req.NoError(err)

	_, err = repo.Get(42)
	req.ErrorIs(err, errors.ErrFactNotFound)
}

func Test_Sequence_Is_Strictly_Increasing_Without_Gaps(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo, err := NewEventLogRepository(db, slog.Default())
	req.NoError(err)

	for i := 1; i <= 10; i++ {
		seq, err := repo.Append("chat.message.new", []byte(fmt.Sprintf(`{"n":%d}`, i)))
		req.NoError(err)
		req.Equal(uint64(i), seq)
	}
}

func Test_Concurrent_Appends_Produce_Unique_Sequences(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo, err := NewEventLogRepository(db, slog.Default())
	req.NoError(err)

	const publishers = 8
	const perPublisher = 20

	var mu sync.Mutex
	seen := make(map[uint64]struct{})
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				seq, err := repo.Append("chat.message.new", []byte(`{}`))
				require.NoError(t, err)
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Then no sequence id was duplicated and none was skipped
	req.Len(seen, publishers*perPublisher)
	for i := uint64(1); i <= publishers*perPublisher; i++ {
		req.Contains(seen, i)
	}
}

func Test_Sequence_Survives_Reopen(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repo, err := NewEventLogRepository(db, slog.Default())
	req.NoError(err)
	for i := 0; i < 3; i++ {
		_, err = repo.Append("chat.message.new", []byte(`{}`))
		req.NoError(err)
	}

	// When the repository is rebuilt over the same database
	reopened, err := NewEventLogRepository(db, slog.Default())
	req.NoError(err)

	// Then the next sequence id continues after the last assigned one
	seq, err := reopened.Append("chat.message.new", []byte(`{}`))
	req.NoError(err)
	req.Equal(uint64(4), seq)
}

func Test_Sequence_Seed_Finds_Twenty_Digit_Keys(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	// Given a persisted entry whose sequence id overflows the 19-digit
	// key padding
	huge := uint64(math.MaxUint64 - 1)
	entry := domain.LogEntry{SequenceID: huge, Type: "chat.message.new", Payload: []byte(`{}`)}
	bytes, err := json.Marshal(entry)
	req.NoError(err)
	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sequenceKey(huge)), bytes)
	}))

	// When the repository seeds its counter from the existing keys
	repo, err := NewEventLogRepository(db, slog.Default())
	req.NoError(err)

	// Then the next append continues strictly after it
	seq, err := repo.Append("chat.message.new", []byte(`{}`))
	req.NoError(err)
	req.Equal(huge+1, seq)
}
