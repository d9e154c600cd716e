package redis

import (
	"context"
	"sort"
	"sync"
)

// MemoryPresence is the in-process fallback used when no Redis URL is
// configured. Same contract as RedisClient's presence methods.
type MemoryPresence struct {
	mu    sync.RWMutex
	users map[string]int
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{users: make(map[string]int)}
}

func (p *MemoryPresence) AddActiveUser(_ context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[username]++
	return nil
}

func (p *MemoryPresence) RemoveActiveUser(_ context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.users[username] <= 1 {
		delete(p.users, username)
	} else {
		p.users[username]--
	}
	return nil
}

func (p *MemoryPresence) ListActiveUsers(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	users := make([]string, 0, len(p.users))
	for u := range p.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

func (p *MemoryPresence) IsUserActive(_ context.Context, username string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[username]
	return ok, nil
}
