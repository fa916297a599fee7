package websocket

import (
	"sync"
	"time"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8 * 1024

	sendQueueSize = 256
)

// client wraps one websocket connection. All writes go through the buffered
// send channel and a single write pump, as gorilla requires one writer per
// connection; the channel also keeps per-room send order.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (that *client) shutdown() {
	that.once.Do(func() {
		close(that.done)
	})
}

func (that *client) queue(message []byte) error {
	select {
	case <-that.done:
		return apperror.ErrStaleConnection
	case that.send <- message:
		return nil
	default:
		return apperror.ErrConnectionSendQueue
	}
}

// writePump pumps queued messages to the websocket connection and keeps it
// alive with pings.
func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case <-that.done:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})

			return
		case message := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
