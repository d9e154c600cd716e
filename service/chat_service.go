package service

import (
	"context"

	"github.com/Araaditya/WhatsEase-dev-task/internal/auth"
	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
	"github.com/Araaditya/WhatsEase-dev-task/internal/registry"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

// ChatService is the surface the transport layer talks to. It stitches the
// identity gate, the room registry, the message router and presence
// tracking together; all room and message state changes go through it.
type ChatService interface {
	Authenticate(token string) (domain.Identity, error)
	Connect(ctx context.Context, sessionID string, identity domain.Identity)
	Disconnect(ctx context.Context, sessionID string)

	JoinRoom(ctx context.Context, sessionID, room string) ([]domain.ChatMessage, error)
	LeaveRoom(sessionID string)
	SendMessage(ctx context.Context, sessionID, body string) error

	ListActiveUsers(ctx context.Context) ([]string, error)
	ListRoomMembers(room string) []string
}

type chatService struct {
	auth     *auth.Authenticator
	registry *registry.Registry
	router   port.Ingestor
	presence port.Presence
	logger   logger.Logger
}

func NewChatService(authenticator *auth.Authenticator, reg *registry.Registry, ingestor port.Ingestor, presence port.Presence, logg logger.Logger) ChatService {
	return &chatService{
		auth:     authenticator,
		registry: reg,
		router:   ingestor,
		presence: presence,
		logger:   logg,
	}
}

// Authenticate resolves a bearer token to an identity. Failures mean the
// connection attempt is rejected before any session state exists.
func (c *chatService) Authenticate(token string) (domain.Identity, error) {
	return c.auth.Authenticate(token)
}

// Connect registers an authenticated session with no room yet.
func (c *chatService) Connect(ctx context.Context, sessionID string, identity domain.Identity) {
	c.registry.Register(sessionID, identity)
	if err := c.presence.AddActiveUser(ctx, identity.Name); err != nil {
		c.logger.Errorf("failed to track presence for %s: %v", identity.Name, err)
	}
	c.logger.Infof("session %s connected as %s", sessionID, identity.UserID)
}

// Disconnect tears a session down. Any room membership is released; a
// message already accepted by the router still completes persistence.
func (c *chatService) Disconnect(ctx context.Context, sessionID string) {
	identity, _, ok := c.registry.Lookup(sessionID)
	c.registry.Deregister(sessionID)
	if ok {
		if err := c.presence.RemoveActiveUser(ctx, identity.Name); err != nil {
			c.logger.Errorf("failed to clear presence for %s: %v", identity.Name, err)
		}
	}
	c.logger.Infof("session %s disconnected", sessionID)
}

func (c *chatService) JoinRoom(ctx context.Context, sessionID, room string) ([]domain.ChatMessage, error) {
	history, err := c.registry.Join(ctx, sessionID, room)
	if err != nil {
		c.logger.Errorf("join failed for session %s room %s: %v", sessionID, room, err)
		return nil, err
	}
	return history, nil
}

func (c *chatService) LeaveRoom(sessionID string) {
	c.registry.Leave(sessionID)
}

func (c *chatService) SendMessage(ctx context.Context, sessionID, body string) error {
	return c.router.Ingest(ctx, sessionID, body)
}

func (c *chatService) ListActiveUsers(ctx context.Context) ([]string, error) {
	return c.presence.ListActiveUsers(ctx)
}

func (c *chatService) ListRoomMembers(room string) []string {
	return c.registry.Members(room)
}
