package nats

import (
	"encoding/json"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

const sessionSubjectPrefix = "chat.session."

// SessionPublisher routes events to per-session inbox subjects. NATS keeps
// publish order per connection, so per-room FIFO established by the router
// survives the hop to each subscriber.
type SessionPublisher struct {
	client *NATSClient
	log    logger.Logger
}

func NewSessionPublisher(client *NATSClient, log logger.Logger) *SessionPublisher {
	return &SessionPublisher{client: client, log: log}
}

func (p *SessionPublisher) Publish(sessionID string, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Errorf("failed to serialize event for session %s: %v", sessionID, err)
		return
	}
	if err := p.client.Conn.Publish(sessionSubjectPrefix+sessionID, data); err != nil {
		p.log.Errorf("failed to publish event for session %s: %v", sessionID, err)
	}
}

var _ port.Publisher = (*SessionPublisher)(nil)
