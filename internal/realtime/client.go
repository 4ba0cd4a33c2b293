// Package realtime streams quiz events to WebSocket clients over Redis pub/sub.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30 * time.Second
	PongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // public, read-only stream
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Subscriber delivers the events published for one quiz.
type Subscriber interface {
	SubscribeQuiz(quizID int64, handler func(event string, payload []byte)) (cancel func(), err error)
}

// client is one WebSocket connection following a quiz. Events that arrive
// before the snapshot is queued wait in pending.
type client struct {
	quizID  int64
	conn    *websocket.Conn
	send    chan WSMessage
	done    chan struct{}
	mu      sync.Mutex
	ready   bool
	pending []WSMessage
	logger  *zap.Logger
}

// ServeQuizStream upgrades the request, subscribes to quizID, then writes the
// result of snapshot followed by every event published since the subscription,
// until the peer disconnects. The caller must have validated the request;
// errors after the upgrade only close the socket.
func ServeQuizStream(w http.ResponseWriter, r *http.Request, quizID int64, snapshot func() (WSMessage, error), sub Subscriber, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		quizID: quizID,
		conn:   conn,
		send:   make(chan WSMessage, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}

	cancel, err := sub.SubscribeQuiz(quizID, c.enqueue)
	if err != nil {
		logger.Warn("quiz subscription failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		c.closeWith(websocket.CloseTryAgainLater, "subscription unavailable")
		return
	}
	defer cancel()

	first, err := snapshot()
	if err != nil {
		logger.Warn("quiz snapshot failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		c.closeWith(websocket.CloseInternalServerErr, "snapshot unavailable")
		return
	}
	c.start(first)

	go c.writePump()
	c.readPump()
}

func (c *client) closeWith(code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// start queues the snapshot ahead of the events held back while it loaded.
func (c *client) start(snapshot WSMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send <- snapshot
	for _, msg := range c.pending {
		c.push(msg)
	}
	c.pending = nil
	c.ready = true
}

// enqueue drops events for slow readers; the next snapshot supersedes them.
func (c *client) enqueue(event string, payload []byte) {
	msg := WSMessage{Event: event, Data: payload}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		if len(c.pending) == sendBuffer-1 {
			c.pending = c.pending[1:]
		}
		c.pending = append(c.pending, msg)
		return
	}
	c.push(msg)
}

func (c *client) push(msg WSMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.logger.Debug("dropping event for slow client", zap.Int64("quiz_id", c.quizID), zap.String("event", msg.Event))
	}
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
