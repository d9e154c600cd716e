package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

// Session is a live authenticated connection. A session belongs to at most
// one room at any instant; the current room is guarded by the registry.
type Session struct {
	ID       string
	Identity domain.Identity

	room string
}

// Registry owns room membership and fan-out. Membership changes and
// broadcasts for the same room are mutually exclusive through a per-room
// lock; distinct rooms proceed independently. Rooms are pure grouping keys:
// they come into existence on first join and need no teardown, their history
// lives in the history store regardless of membership.
type Registry struct {
	pub     port.Publisher
	history port.HistoryStore
	limit   int
	log     logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewRegistry(pub port.Publisher, history port.HistoryStore, historyLimit int, log logger.Logger) *Registry {
	return &Registry{
		pub:      pub,
		history:  history,
		limit:    historyLimit,
		log:      log,
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Register makes a session known to the registry. It starts with no room.
func (r *Registry) Register(sessionID string, identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = &Session{ID: sessionID, Identity: identity}
}

// Deregister removes a session entirely, leaving its room first if needed.
// Safe to call for unknown sessions.
func (r *Registry) Deregister(sessionID string) {
	r.Leave(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Lookup returns the session's identity and current room.
func (r *Registry) Lookup(sessionID string) (identity domain.Identity, room string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return domain.Identity{}, "", false
	}
	return sess.Identity, sess.room, true
}

// roomLock returns the ordering lock for a room, creating it on first use.
// Locks are never reclaimed; a room key is a handful of bytes.
func (r *Registry) roomLock(room string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[room]
	if !ok {
		l = &sync.Mutex{}
		r.locks[room] = l
	}
	return l
}

// Sequence runs fn while holding room's ordering lock. The message router
// wraps each persist-then-broadcast in it so per-room FIFO holds, and Join
// uses the same lock, which makes a join's history read atomic with respect
// to in-flight messages: a late joiner sees each message exactly once,
// either in history or as a broadcast.
func (r *Registry) Sequence(room string, fn func()) {
	l := r.roomLock(room)
	l.Lock()
	defer l.Unlock()
	fn()
}

// lockRooms acquires the ordering locks for the given rooms in a stable
// order. Duplicate and empty names are skipped.
func (r *Registry) lockRooms(names ...string) (unlock func()) {
	uniq := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		uniq = append(uniq, n)
	}
	sort.Strings(uniq)

	locks := make([]*sync.Mutex, len(uniq))
	for i, n := range uniq {
		locks[i] = r.roomLock(n)
		locks[i].Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// Join moves a session into room, leaving any previous room first. There is
// never a window where the session is in two rooms; the old-room removal and
// new-room insertion are distinct membership events, each announced to the
// affected room. The returned history is the room's persisted log (bounded
// by the configured limit), loaded before the join is announced.
func (r *Registry) Join(ctx context.Context, sessionID, room string) ([]domain.ChatMessage, error) {
	if room == "" {
		return nil, fmt.Errorf("room name cannot be empty")
	}

	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}

	for {
		r.mu.RLock()
		oldRoom := sess.room
		r.mu.RUnlock()

		if oldRoom == room {
			// Re-join of the current room just refreshes history.
			var history []domain.ChatMessage
			var err error
			stale := false
			r.Sequence(room, func() {
				r.mu.RLock()
				stale = sess.room != room
				r.mu.RUnlock()
				if stale {
					return
				}
				history, err = r.history.Read(ctx, room, r.limit)
			})
			if stale {
				continue
			}
			return history, err
		}

		unlock := r.lockRooms(oldRoom, room)

		// Re-check under the room locks; a concurrent Join or Leave may have
		// moved the session since oldRoom was read. Without this, two racing
		// joins could both remove the same old membership and insert two new
		// ones, leaving the session in two rooms at once.
		r.mu.RLock()
		current := sess.room
		r.mu.RUnlock()
		if current != oldRoom {
			unlock()
			continue
		}

		if oldRoom != "" {
			r.removeMember(oldRoom, sess)
			r.announce(oldRoom, fmt.Sprintf("%s left the room", sess.Identity.Name), "")
		}

		history, err := r.history.Read(ctx, room, r.limit)
		if err != nil {
			// The session already left its old room; it simply has no room now.
			unlock()
			return nil, err
		}

		r.addMember(room, sess)
		r.announce(room, fmt.Sprintf("%s joined the room", sess.Identity.Name), sessionID)
		unlock()

		r.log.Infof("session %s (%s) joined room %s", sessionID, sess.Identity.UserID, room)
		return history, nil
	}
}

// Leave removes the session from its current room, if any. Idempotent.
func (r *Registry) Leave(sessionID string) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	var room string
	if ok {
		room = sess.room
	}
	r.mu.RUnlock()
	if !ok || room == "" {
		return
	}

	unlock := r.lockRooms(room)
	defer unlock()

	// Re-check under the room lock; a concurrent Join may have moved it.
	r.mu.RLock()
	current := sess.room
	r.mu.RUnlock()
	if current != room {
		return
	}

	r.removeMember(room, sess)
	r.announce(room, fmt.Sprintf("%s left the room", sess.Identity.Name), "")
	r.log.Infof("session %s left room %s", sessionID, room)
}

// Broadcast delivers event to every member of room except exclude (empty
// string excludes nobody: the sender receives its own message, clients rely
// on the echo to render it). Callers that need FIFO run it inside Sequence.
// Returns the recipient count.
func (r *Registry) Broadcast(room string, event domain.Event, exclude string) int {
	r.mu.RLock()
	members := make([]*Session, 0, len(r.rooms[room]))
	for _, s := range r.rooms[room] {
		members = append(members, s)
	}
	r.mu.RUnlock()

	count := 0
	for _, s := range members {
		if s.ID == exclude {
			continue
		}
		r.pub.Publish(s.ID, event)
		count++
	}
	return count
}

// Members returns the user names currently in a room.
func (r *Registry) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rooms[room]))
	for _, s := range r.rooms[room] {
		names = append(names, s.Identity.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) addMember(room string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]*Session)
	}
	r.rooms[room][sess.ID] = sess
	sess.room = room
}

func (r *Registry) removeMember(room string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members := r.rooms[room]; members != nil {
		delete(members, sess.ID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	sess.room = ""
}

// announce sends a transient system notice to a room. Not persisted.
func (r *Registry) announce(room, content, exclude string) {
	r.Broadcast(room, domain.Event{Type: domain.EventSystem, Room: room, Content: content}, exclude)
}
