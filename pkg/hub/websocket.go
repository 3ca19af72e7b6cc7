package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Viewers only listen; anything they send is small and discarded.
	maxMessageSize = 4096

	// DefaultSendBuffer is the outbound frame buffer of a WSConn.
	DefaultSendBuffer = 256
)

var _ Conn = (*WSConn)(nil)

// WSConn adapts a gorilla websocket connection to Conn. A single writer
// goroutine owns all data writes; Send only enqueues.
type WSConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// NewWSConn wraps ws with an outbound buffer of size frames. A size of
// zero or less selects DefaultSendBuffer.
func NewWSConn(ws *websocket.Conn, size int) *WSConn {
	if size <= 0 {
		size = DefaultSendBuffer
	}
	return &WSConn{
		ws:   ws,
		send: make(chan []byte, size),
		done: make(chan struct{}),
	}
}

// Send enqueues one text frame. It returns ErrNotWritable when the buffer
// is full and ErrClosed once the connection is closed.
func (c *WSConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrNotWritable
	}
}

// Serve runs the connection until the peer goes away, ctx is cancelled,
// or a write fails. It always closes the connection before returning.
// Abnormal closes are returned; a normal close returns nil.
func (c *WSConn) Serve(ctx context.Context) error {
	defer c.Close()

	go c.writePump()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return err
			}
			return nil
		}
	}
}

// Done is closed when the connection closes.
func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and releases the socket. It is safe to call
// more than once and from any goroutine.
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = c.ws.Close()
	})
	return err
}

func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}
