package nats

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

type NATSClient struct {
	Conn *nats.Conn

	mu         sync.Mutex
	subMapping map[string]*nats.Subscription
}

func NewNATSClient(url string) (*NATSClient, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSClient{
		Conn:       nc,
		subMapping: make(map[string]*nats.Subscription),
	}, nil
}

func (c *NATSClient) Close() {
	c.CleanupSubscriptions()
	c.Conn.Close()
}

// CleanupSubscriptions removes all active subscriptions for this client.
// Unsubscribe errors are ignored so cleanup always completes.
func (c *NATSClient) CleanupSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.subMapping {
		_ = sub.Unsubscribe()
		delete(c.subMapping, key)
	}
}
