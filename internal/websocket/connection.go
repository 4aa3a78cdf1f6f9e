package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chessclub/pkg/types"
)

// Connection wraps a websocket with a single writer goroutine so concurrent
// broadcasts never race on the underlying socket. Identity is fixed at
// upgrade time; the subscribed room can change on a later join intent.
type Connection struct {
	conn    *websocket.Conn
	writeCh chan []byte

	participantID string
	name          string

	mu     sync.RWMutex // protects roomID
	roomID string

	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// NewConnection starts the writer goroutine for conn. The 100-message buffer
// absorbs broadcast bursts; a full buffer drops rather than blocks, because
// the room engine emits while holding room locks.
func NewConnection(conn *websocket.Conn, participantID, name, roomID string, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:          conn,
		writeCh:       make(chan []byte, 100),
		participantID: participantID,
		name:          name,
		roomID:        roomID,
		writeTimeout:  writeTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}

	go c.writeLoop()

	return c
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send enqueues one event envelope for delivery. It never blocks: a closed
// connection or a full buffer is an error the caller may log and move on
// from, matching the at-most-once delivery contract.
func (c *Connection) Send(event string, payload interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(types.Event{Event: event, Data: payload})
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrWriteBufferFull
	}
}

// Close shuts the writer down and closes the socket. Safe to call twice.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *Connection) ParticipantID() string {
	return c.participantID
}

func (c *Connection) Name() string {
	return c.name
}

func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Connection) setRoomID(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}
