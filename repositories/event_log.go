package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/errors"
)

const logKeyPrefix = "log:"

// EventLogRepository persists facts in BadgerDB under an append-only
// key space. Keys are formatted as "log:{sequence_padded}" with 19-digit
// zero padding so lexicographical order equals sequence order.
//
// The next sequence id lives in memory behind a mutex and is seeded
// from the highest existing key at open time. The counter is only
// advanced after the badger transaction committed, which keeps the
// sequence gapless when an append fails.
type EventLogRepository struct {
	db   *badger.DB
	log  *slog.Logger
	mu   sync.Mutex
	next uint64
}

func NewEventLogRepository(db *badger.DB, log *slog.Logger) (*EventLogRepository, error) {
	repo := &EventLogRepository{db: db, log: log, next: 1}
	if err := repo.seedSequence(); err != nil {
		return nil, fmt.Errorf("seeding event log sequence: %w", err)
	}
	return repo, nil
}

// seedSequence finds the last assigned sequence id with a reverse
// prefix scan. Sequence ids are never reused across restarts.
func (r *EventLogRepository) seedSequence() error {
	return r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(logKeyPrefix)
		// Seek to the highest representable key, then step back into
		// the prefix. %019d pads to a minimum, so MaxUint64 spills to
		// 20 digits and sorts after every other sequence key.
		it.Seek([]byte(sequenceKey(math.MaxUint64)))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		var last uint64
		if _, err := fmt.Sscanf(string(it.Item().Key()), logKeyPrefix+"%d", &last); err != nil {
			return err
		}
		r.next = last + 1
		return nil
	})
}

// Append durably records a fact and returns its sequence id. The write
// is committed before the method returns; callers treat the entry as
// the single source of truth for the fact's payload.
func (r *EventLogRepository) Append(factType string, payload []byte) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := domain.LogEntry{
		SequenceID: r.next,
		Type:       factType,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	bytes, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sequenceKey(entry.SequenceID)), bytes)
	})
	if err != nil {
		return 0, fmt.Errorf("appending fact %s: %w", factType, err)
	}
	r.next++
	return entry.SequenceID, nil
}

// Get re-fetches the canonical fact by sequence id.
func (r *EventLogRepository) Get(sequenceID uint64) (domain.LogEntry, error) {
	var entry domain.LogEntry
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sequenceKey(sequenceID)))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &entry)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.LogEntry{}, errors.ErrFactNotFound
	}
	if err != nil {
		return domain.LogEntry{}, err
	}
	return entry, nil
}

func sequenceKey(sequenceID uint64) string {
	return fmt.Sprintf(logKeyPrefix+"%019d", sequenceID)
}
