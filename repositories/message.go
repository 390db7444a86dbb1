package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/david-camba/kafky-event-driven-chat/domain"
)

// MessageRepository persists read-model rows in BadgerDB.
// The key is formatted as "msg:{room_id}:{message_id_padded}" to:
//  1. Ensure ascending id order using 19-digit zero padding
//     (lexicographical order).
//  2. Make re-projection idempotent: the message id is the event log
//     sequence id, so writing the same row twice overwrites in place.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

func (m MessageRepository) StoreMessage(msg domain.ChatMessage) error {
	key := messageKey(msg.Room, msg.ID)
	bytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// ListMessagesAfter returns the room's rows with id strictly greater
// than afterID, ascending. Thanks to the padded id in the key, a
// forward prefix scan from afterID+1 yields them already ordered.
// It stops collecting once the configured limitMessages is reached.
func (m MessageRepository) ListMessagesAfter(room int, afterID uint64) ([]domain.ChatMessage, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%d:", room))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek([]byte(messageKey(room, afterID+1))); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var messages []domain.ChatMessage
	for _, b := range byteMessages {
		var msg domain.ChatMessage
		if err = json.Unmarshal(b, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func messageKey(room int, id uint64) string {
	return fmt.Sprintf("msg:%d:%019d", room, id)
}
