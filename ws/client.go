package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// ErrClientGone reports a send to a connection that is closed or whose
// outbound buffer is full. Either way the client is treated as
// disconnected.
var ErrClientGone = errors.New("client unreachable")

// Client wraps one websocket connection. Frames to deliver go through
// a bounded channel drained by a single write pump, which keeps frame
// order per client and lets Send fail fast instead of blocking a
// broadcast behind a slow socket.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, sendBuffer int) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues one frame for delivery. It never blocks: a full buffer
// means the consumer is too slow, so the client is written off and its
// connection wound down.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientGone
	}
	select {
	case c.send <- frame:
		return nil
	default:
		c.closed = true
		close(c.send)
		return ErrClientGone
	}
}

// close makes every future Send fail and lets the write pump finish
// whatever is queued. Safe to call more than once; the read loop calls
// it on its way out.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump drains the send channel onto the socket, one goroutine per
// connection. It exits when the channel closes or a write fails;
// either way the connection is finished.
func (c *Client) writePump() {
	defer c.conn.Close()
	for frame := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}
