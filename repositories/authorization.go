package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/errors"
)

// AuthRepository reads room authorization records. The core only ever
// queries it; SaveRoom exists for bootstrap seeding and tests.
type AuthRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewAuthRepository(db *badger.DB, log *slog.Logger) AuthRepository {
	return AuthRepository{db: db, log: log}
}

func (a AuthRepository) SaveRoom(record domain.RoomRecord) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(roomKey(record.ID)), bytes)
	})
}

func (a AuthRepository) GetParticipants(room domain.RoomID) (domain.RoomRecord, error) {
	var record domain.RoomRecord
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(roomKey(room)))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.RoomRecord{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomRecord{}, err
	}
	return record, nil
}

func roomKey(room domain.RoomID) string {
	return fmt.Sprintf("room:%d", room)
}
