package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"vendora/internal/domain/entity"
	"vendora/internal/usecase"
	"vendora/pkg/logger"
)

// Client is one websocket connection bridging a user's messaging session to
// the wire. It implements usecase.SessionSink: stream deliveries become
// outbound frames, inbound frames become session commands.
type Client struct {
	UserID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Session *usecase.MessagingSession

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	mu         sync.Mutex
	sendClosed bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context bounds everything the client's session does on the backend.
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) shutdown() {
	c.stopOnce.Do(func() {
		if c.Session != nil {
			c.Session.Close()
		}
		c.cancel()

		// push checks sendClosed under the same mutex, so a late frame from
		// the read pump of a replaced connection can never hit a closed
		// channel.
		c.mu.Lock()
		c.sendClosed = true
		close(c.Send)
		c.mu.Unlock()
	})
}

// push queues a frame without blocking; a slow connection drops frames
// rather than stalling stream delivery. Frames pushed after shutdown are
// discarded.
func (c *Client) push(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.Send <- frame:
	default:
		logger.Warn("Dropping frame for slow client %s", c.UserID)
	}
}

// ConversationsUpdated implements usecase.SessionSink.
func (c *Client) ConversationsUpdated(conversations []*entity.Conversation) {
	c.push(marshalConversationFrame(c.UserID, conversations))
}

// MessagesUpdated implements usecase.SessionSink.
func (c *Client) MessagesUpdated(conversationID string, messages []*entity.Message) {
	c.push(marshalMessageFrame(conversationID, messages))
}

// StreamFailed implements usecase.SessionSink.
func (c *Client) StreamFailed(err error) {
	c.push(marshalErrorFrame(err))
}

// ReadPump reads commands from the connection until it closes.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("Client %s read error: %v", c.UserID, err)
			}
			return
		}
		c.handleCommand(raw)
	}
}

// WritePump writes queued frames to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		frame, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Error("Client %s write error: %v", c.UserID, err)
			return
		}
	}
}
