package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/david-camba/kafky-event-driven-chat/domain"
)

func Test_Store_And_List_Messages_In_Id_Order(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	room := 1
	at := time.Now().UTC().Truncate(time.Millisecond)
	rows := []domain.ChatMessage{
		{ID: 3, Room: room, Author: "alice", AuthorName: "alice", Content: "first", CreatedAt: at},
		{ID: 7, Room: room, Author: "bob", AuthorName: "bob", Content: "second", CreatedAt: at.Add(time.Minute)},
		{ID: 9, Room: room, Author: "alice", AuthorName: "alice", Content: "third", CreatedAt: at.Add(2 * time.Minute)},
	}
	// Stored out of order on purpose
	for _, i := range []int{1, 0, 2} {
		req.NoError(repository.StoreMessage(rows[i]))
	}

	fetched, err := repository.ListMessagesAfter(room, 0)
	req.NoError(err)
	req.Equal(rows, fetched)
}

func Test_List_Messages_After_Id(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	room := 1
	at := time.Now().UTC().Truncate(time.Millisecond)
	for _, id := range []uint64{1, 2, 3, 4} {
		req.NoError(repository.StoreMessage(domain.ChatMessage{
			ID: id, Room: room, Author: "alice", Content: "msg", CreatedAt: at,
		}))
	}

	// When listing with a last-seen id
	fetched, err := repository.ListMessagesAfter(room, 2)
	req.NoError(err)

	// Then only strictly newer rows come back, ascending
	req.Len(fetched, 2)
	req.Equal(uint64(3), fetched[0].ID)
	req.Equal(uint64(4), fetched[1].ID)
}

func Test_List_Messages_Is_Scoped_To_The_Room(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC().Truncate(time.Millisecond)
	req.NoError(repository.StoreMessage(domain.ChatMessage{ID: 1, Room: 1, Author: "alice", Content: "room one", CreatedAt: at}))
	req.NoError(repository.StoreMessage(domain.ChatMessage{ID: 2, Room: 2, Author: "carol", Content: "room two", CreatedAt: at}))

	fetched, err := repository.ListMessagesAfter(1, 0)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("room one", fetched[0].Content)
}

func Test_Store_Same_Id_Twice_Does_Not_Duplicate(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	row := domain.ChatMessage{ID: 5, Room: 1, Author: "alice", Content: "hi", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}

	// When the same row is projected twice
	req.NoError(repository.StoreMessage(row))
	req.NoError(repository.StoreMessage(row))

	// Then the read model holds a single copy
	fetched, err := repository.ListMessagesAfter(1, 0)
	req.NoError(err)
	req.Len(fetched, 1)
}

func Test_List_Messages_And_Limit(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)
	at := time.Now().UTC().Truncate(time.Millisecond)
	for _, id := range []uint64{1, 2, 3} {
		req.NoError(repository.StoreMessage(domain.ChatMessage{ID: id, Room: 1, Author: "alice", Content: "msg", CreatedAt: at}))
	}

	fetched, err := repository.ListMessagesAfter(1, 0)
	req.NoError(err)
	req.Len(fetched, limit)
}
