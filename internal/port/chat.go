package port

import (
	"context"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
)

// HistoryStore is the durable, ordered message log per room.
type HistoryStore interface {
	// Append persists a message and returns it with its canonical id and
	// timestamp assigned. Failures wrap domain.ErrStorageUnavailable.
	Append(ctx context.Context, room string, author domain.Identity, bot bool, body string) (domain.ChatMessage, error)
	// Read returns up to limit messages for the room, oldest first.
	// limit <= 0 means no bound.
	Read(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error)
}

// Responder generates a reply for a prompt. Long-latency and unreliable;
// callers must never block room traffic on it.
type Responder interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Publisher delivers an event to a single connected session. The transport
// layer (or a fake in tests) provides the implementation.
type Publisher interface {
	Publish(sessionID string, event domain.Event)
}

// Presence tracks which users are currently connected, process-wide.
type Presence interface {
	AddActiveUser(ctx context.Context, username string) error
	RemoveActiveUser(ctx context.Context, username string) error
	ListActiveUsers(ctx context.Context) ([]string, error)
	IsUserActive(ctx context.Context, username string) (bool, error)
}

// Ingestor is the single entry point for "a message arrived". The responder
// callback re-enters through the same path as human traffic.
type Ingestor interface {
	Ingest(ctx context.Context, sessionID string, body string) error
}
