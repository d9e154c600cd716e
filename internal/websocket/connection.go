package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
	"github.com/Araaditya/WhatsEase-dev-task/service"
)

// Connection represents a single authenticated WebSocket connection.
type Connection struct {
	Ws          *websocket.Conn
	Send        chan domain.Event
	Hub         *Hub
	SessionID   string
	Identity    domain.Identity
	ChatService service.ChatService
	Logger      logger.Logger

	// Ctx is the connection's parent context (the app root); event handling
	// derives from it so in-flight operations observe shutdown.
	Ctx context.Context

	mu     sync.Mutex
	closed bool
}

// enqueue puts ev on the send channel unless the connection is closed or the
// buffer is full. It holds the same lock closeSend takes, so a send can never
// race a close: once closeSend has run, enqueue only ever reports false.
func (c *Connection) enqueue(ev domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

// closeSend marks the connection closed and closes the send channel exactly
// once, ending WritePump. Safe to call from any goroutine, any number of times.
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ReadPump consumes client events until the socket closes, then tears the
// session down. Runs as its own goroutine per connection.
func (c *Connection) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Ws.Close()
		c.ChatService.Disconnect(context.Background(), c.SessionID)
	}()

	for {
		var ev domain.Event
		if err := c.Ws.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.Logger.Errorf("read error for session %s: %v", c.SessionID, err)
			}
			return
		}
		c.handle(ev)
	}
}

func (c *Connection) handle(ev domain.Event) {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch ev.Type {
	case domain.EventJoinRoom:
		history, err := c.ChatService.JoinRoom(ctx, c.SessionID, ev.Room)
		if err != nil {
			c.sendError(err)
			return
		}
		if history == nil {
			history = []domain.ChatMessage{}
		}
		c.deliver(domain.Event{Type: domain.EventRoomJoined, Room: ev.Room, History: history})

	case domain.EventLeaveRoom:
		c.ChatService.LeaveRoom(c.SessionID)

	case domain.EventSendMessage:
		if err := c.ChatService.SendMessage(ctx, c.SessionID, ev.Content); err != nil {
			c.sendError(err)
		}

	case domain.EventListUsers:
		users, err := c.ChatService.ListActiveUsers(ctx)
		if err != nil {
			c.sendError(err)
			return
		}
		c.deliver(domain.Event{Type: domain.EventUsers, Users: users})

	default:
		c.sendError(errors.New("unknown event type"))
	}
}

// sendError reports a failure to this session only; other room members
// never see another client's errors.
func (c *Connection) sendError(err error) {
	c.deliver(domain.ErrorEvent(err.Error()))
}

func (c *Connection) deliver(ev domain.Event) {
	if !c.enqueue(ev) {
		c.Logger.Warnf("dropping event for slow session %s", c.SessionID)
	}
}

// WritePump flushes the send channel to the socket until it is closed.
func (c *Connection) WritePump() {
	defer c.Ws.Close()

	for msg := range c.Send {
		if err := c.Ws.WriteJSON(msg); err != nil {
			c.Logger.Errorf("write error for session %s: %v", c.SessionID, err)
			return
		}
	}
}
