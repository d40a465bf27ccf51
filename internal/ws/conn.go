package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"alerts-service/internal/models"
)

var errConnClosed = errors.New("connection closed")

// conn wraps a gorilla connection with the identity it was authenticated
// as. Writes are serialized behind a mutex; gorilla allows at most one
// concurrent writer.
type conn struct {
	userID int64
	ws     *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newConn(userID int64, ws *websocket.Conn) *conn {
	return &conn{userID: userID, ws: ws}
}

func (c *conn) UserID() int64 {
	return c.userID
}

func (c *conn) WriteEnvelope(env models.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	return c.ws.WriteJSON(env)
}

func (c *conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close is idempotent: the close handler and the error path both funnel
// through here.
func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}
