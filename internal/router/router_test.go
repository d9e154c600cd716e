package router

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/registry"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

const botRoom = "bot-room"

var botIdentity = domain.Identity{UserID: "gemini-bot@example.com", Name: "Gemini Bot"}

type fakePublisher struct {
	mu     sync.Mutex
	events map[string][]domain.Event
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(map[string][]domain.Event)}
}

func (p *fakePublisher) Publish(sessionID string, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[sessionID] = append(p.events[sessionID], event)
}

func (p *fakePublisher) messagesFor(sessionID string) []domain.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var msgs []domain.ChatMessage
	for _, ev := range p.events[sessionID] {
		if ev.Type == domain.EventNewMessage && ev.Message != nil {
			msgs = append(msgs, *ev.Message)
		}
	}
	return msgs
}

func (p *fakePublisher) errorsFor(sessionID string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []domain.Event
	for _, ev := range p.events[sessionID] {
		if ev.Type == domain.EventError {
			errs = append(errs, ev)
		}
	}
	return errs
}

type fakeHistory struct {
	mu       sync.Mutex
	msgs     map[string][]domain.ChatMessage
	nextID   uint
	failNext int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{msgs: make(map[string][]domain.ChatMessage)}
}

func (f *fakeHistory) Append(_ context.Context, room string, author domain.Identity, bot bool, body string) (domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return domain.ChatMessage{}, domain.ErrStorageUnavailable
	}
	f.nextID++
	msg := domain.ChatMessage{ID: f.nextID, Room: room, SenderID: author.UserID, Sender: author.Name, Bot: bot, Content: body, Timestamp: time.Now()}
	f.msgs[room] = append(f.msgs[room], msg)
	return msg, nil
}

func (f *fakeHistory) Read(_ context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.msgs[room]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeHistory) stored(room string) []domain.ChatMessage {
	out, _ := f.Read(context.Background(), room, 0)
	return out
}

type fakeResponder struct {
	mu      sync.Mutex
	calls   []string
	reply   string
	err     error
	release chan struct{} // when set, Generate blocks until closed
}

func (f *fakeResponder) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeResponder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	reg       *registry.Registry
	router    *Router
	pub       *fakePublisher
	hist      *fakeHistory
	responder *fakeResponder
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	pub := newFakePublisher()
	hist := newFakeHistory()
	resp := &fakeResponder{reply: "hi there"}
	log := logger.NewLogger("error", "")

	reg := registry.NewRegistry(pub, hist, 50, log)
	ro := NewRouter(reg, hist, resp, Options{
		BotRoom:     botRoom,
		BotIdentity: botIdentity,
		BotTimeout:  time.Second,
	}, log)

	return &fixture{reg: reg, router: ro, pub: pub, hist: hist, responder: resp}
}

func (fx *fixture) join(t *testing.T, sessionID, userID, room string) {
	t.Helper()
	fx.reg.Register(sessionID, domain.Identity{UserID: userID, Name: userID})
	_, err := fx.reg.Join(context.Background(), sessionID, room)
	require.NoError(t, err)
}

func TestIngestWithoutRoom(t *testing.T) {
	fx := setupRouter(t)
	fx.reg.Register("s1", domain.Identity{UserID: "u1", Name: "alice"})

	err := fx.router.Ingest(context.Background(), "s1", "hello")
	require.ErrorIs(t, err, domain.ErrNotInRoom)
	assert.Empty(t, fx.hist.stored("roomA"), "nothing may be persisted")
	assert.Empty(t, fx.pub.messagesFor("s1"), "nothing may be broadcast")
}

func TestIngestUnknownSession(t *testing.T) {
	fx := setupRouter(t)
	err := fx.router.Ingest(context.Background(), "ghost", "hello")
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestIngestPersistsThenBroadcasts(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", "roomA")
	fx.join(t, "s2", "bob", "roomA")

	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "hi"))

	stored := fx.hist.stored("roomA")
	require.Len(t, stored, 1)
	assert.Equal(t, "alice", stored[0].SenderID)
	assert.Equal(t, "hi", stored[0].Content)
	assert.False(t, stored[0].Bot)

	// Both sender and the other member receive the persisted record,
	// canonical id included.
	for _, sid := range []string{"s1", "s2"} {
		msgs := fx.pub.messagesFor(sid)
		require.Len(t, msgs, 1, "session %s", sid)
		assert.Equal(t, stored[0].ID, msgs[0].ID)
		assert.Equal(t, "hi", msgs[0].Content)
	}
}

func TestIngestTrimsAndDropsEmpty(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", "roomA")

	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "   "))
	assert.Empty(t, fx.hist.stored("roomA"))
}

func TestPersistFailureIsNotBroadcast(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", "roomA")
	fx.join(t, "s2", "bob", "roomA")

	fx.hist.failNext = 1
	err := fx.router.Ingest(context.Background(), "s1", "doomed")
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)

	assert.Empty(t, fx.hist.stored("roomA"))
	assert.Empty(t, fx.pub.messagesFor("s1"))
	assert.Empty(t, fx.pub.messagesFor("s2"))

	// The next send succeeds normally.
	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "recovered"))
	require.Len(t, fx.hist.stored("roomA"), 1)
	require.Len(t, fx.pub.messagesFor("s2"), 1)
	assert.Equal(t, "recovered", fx.pub.messagesFor("s2")[0].Content)
}

func TestBotReplyRoundTrip(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", botRoom)

	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "hello"))
	fx.router.Wait()

	require.Equal(t, 1, fx.responder.callCount())
	assert.Equal(t, "hello", fx.responder.calls[0])

	stored := fx.hist.stored(botRoom)
	require.Len(t, stored, 2)
	assert.False(t, stored[0].Bot)
	assert.True(t, stored[1].Bot)
	assert.Equal(t, botIdentity.UserID, stored[1].SenderID)
	assert.Equal(t, "hi there", stored[1].Content)

	msgs := fx.pub.messagesFor("s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi there", msgs[1].Content)
}

// Bot-authored messages must never re-trigger the responder, even across a
// long chain of replies.
func TestBotNeverAnswersItself(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", botRoom)

	const humanMessages = 10
	for i := 0; i < humanMessages; i++ {
		require.NoError(t, fx.router.Ingest(context.Background(), "s1", fmt.Sprintf("question %d", i)))
		fx.router.Wait()
	}

	assert.Equal(t, humanMessages, fx.responder.callCount(),
		"responder must be invoked once per human message and never for bot replies")
	assert.Len(t, fx.hist.stored(botRoom), humanMessages*2)
}

func TestNoBotDispatchOutsideBotRoom(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", "plain-room")

	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "hello"))
	fx.router.Wait()

	assert.Zero(t, fx.responder.callCount())
	assert.Len(t, fx.hist.stored("plain-room"), 1)
}

func TestResponderFailureIsSilent(t *testing.T) {
	fx := setupRouter(t)
	fx.responder.err = fmt.Errorf("model overloaded")
	fx.join(t, "s1", "alice", botRoom)

	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "hello"))
	fx.router.Wait()

	require.Equal(t, 1, fx.responder.callCount())
	assert.Len(t, fx.hist.stored(botRoom), 1, "no reply is persisted")
	assert.Empty(t, fx.pub.errorsFor("s1"), "responder failures never reach users")
	require.Len(t, fx.pub.messagesFor("s1"), 1)
}

func TestResponderTimeout(t *testing.T) {
	fx := setupRouter(t)
	fx.responder.release = make(chan struct{}) // never closed: Generate blocks
	fx.router.botTimeout = 50 * time.Millisecond
	fx.join(t, "s1", "alice", botRoom)

	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "hello"))
	fx.router.Wait()

	assert.Len(t, fx.hist.stored(botRoom), 1)
	assert.Empty(t, fx.pub.errorsFor("s1"))
}

// A slow responder must not delay later human messages.
func TestHumanTrafficNotBlockedByBot(t *testing.T) {
	fx := setupRouter(t)
	release := make(chan struct{})
	fx.responder.release = release
	fx.join(t, "s1", "alice", botRoom)

	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "first"))

	// While the responder hangs, more human messages flow through.
	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "second"))
	require.NoError(t, fx.router.Ingest(context.Background(), "s1", "third"))
	assert.Len(t, fx.hist.stored(botRoom), 3)

	close(release)
	fx.router.Wait()

	// Replies for all three prompts arrive after, interleaved freely.
	stored := fx.hist.stored(botRoom)
	assert.Len(t, stored, 6)
	botCount := 0
	for _, m := range stored {
		if m.Bot {
			botCount++
		}
	}
	assert.Equal(t, 3, botCount)
}

// Two sessions sending near-simultaneously: every message is persisted and
// broadcast exactly once, and every member observes broadcasts in history
// order.
func TestConcurrentSendersKeepRoomOrder(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", "roomA")
	fx.join(t, "s2", "bob", "roomA")

	const perSender = 25
	var wg sync.WaitGroup
	for _, sid := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				assert.NoError(t, fx.router.Ingest(context.Background(), sid, fmt.Sprintf("%s-%d", sid, i)))
			}
		}(sid)
	}
	wg.Wait()

	stored := fx.hist.stored("roomA")
	require.Len(t, stored, 2*perSender)

	for _, sid := range []string{"s1", "s2"} {
		msgs := fx.pub.messagesFor(sid)
		require.Len(t, msgs, 2*perSender, "session %s", sid)
		for i, m := range msgs {
			assert.Equal(t, stored[i].ID, m.ID, "session %s observed out-of-order delivery at %d", sid, i)
		}
	}
}

func TestDisconnectDoesNotCancelPersist(t *testing.T) {
	fx := setupRouter(t)
	fx.join(t, "s1", "alice", "roomA")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // sender gone before the router even starts

	require.NoError(t, fx.router.Ingest(ctx, "s1", "parting words"))
	require.Len(t, fx.hist.stored("roomA"), 1)
}
