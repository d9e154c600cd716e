package nats

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

// StartSessionRelay subscribes to every session inbox subject and hands the
// events to the local delivery sink (the in-process hub). The sink drops
// events for sessions that are not connected here, which is exactly what we
// want: each process delivers only to its own sockets.
func (c *NATSClient) StartSessionRelay(sink port.Publisher, log logger.Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const key = "session_relay"
	if _, exists := c.subMapping[key]; exists {
		return nil
	}

	sub, err := c.Conn.Subscribe(sessionSubjectPrefix+"*", func(msg *nats.Msg) {
		sessionID := strings.TrimPrefix(msg.Subject, sessionSubjectPrefix)

		var event domain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Errorf("dropping malformed event for session %s: %v", sessionID, err)
			return
		}
		sink.Publish(sessionID, event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to session inboxes: %w", err)
	}

	c.subMapping[key] = sub
	return nil
}
