package ws

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/david-camba/kafky-event-driven-chat/errors"
)

// wsTransport adapts a gorilla connection to domain.Transport. Writes
// from the dispatcher and the read loop are serialized by a mutex;
// gorilla allows at most one concurrent writer.
type wsTransport struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed atomic.Bool
}

func newTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Send(v any) error {
	if t.closed.Load() {
		return errors.ErrTransportClosed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) IsOpen() bool {
	return !t.closed.Load()
}

func (t *wsTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}
