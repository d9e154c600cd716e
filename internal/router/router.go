package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
	"github.com/Araaditya/WhatsEase-dev-task/internal/registry"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

// Router is the single entry point for inbound messages. Each message runs
// validate -> persist -> broadcast under its room's ordering lock, so a room
// observes messages in exactly history-store insertion order. Replies from
// the responder re-enter the same path authored by the bot identity.
type Router struct {
	registry  *registry.Registry
	history   port.HistoryStore
	responder port.Responder
	log       logger.Logger

	botRoom     string
	botIdentity domain.Identity
	botTimeout  time.Duration

	pending sync.WaitGroup
}

type Options struct {
	BotRoom     string
	BotIdentity domain.Identity
	BotTimeout  time.Duration
}

func NewRouter(reg *registry.Registry, history port.HistoryStore, responder port.Responder, opts Options, log logger.Logger) *Router {
	return &Router{
		registry:    reg,
		history:     history,
		responder:   responder,
		log:         log,
		botRoom:     opts.BotRoom,
		botIdentity: opts.BotIdentity,
		botTimeout:  opts.BotTimeout,
	}
}

// Ingest handles a message arriving from a connected session. The sender
// must currently be in a room; otherwise nothing is persisted or broadcast
// and the error goes back to the sender alone.
func (ro *Router) Ingest(ctx context.Context, sessionID string, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	identity, room, ok := ro.registry.Lookup(sessionID)
	if !ok || room == "" {
		return domain.ErrNotInRoom
	}
	return ro.ingest(ctx, room, identity, false, body)
}

// ingest persists and broadcasts one message. Shared by human traffic and
// bot replies; bot=true marks the reserved bot author and suppresses any
// further responder dispatch.
func (ro *Router) ingest(ctx context.Context, room string, author domain.Identity, bot bool, body string) error {
	// A message accepted here is carried through persistence even if the
	// sender disconnects right after; drop only the cancellation, keep values.
	ctx = context.WithoutCancel(ctx)

	var (
		msg domain.ChatMessage
		err error
	)
	ro.registry.Sequence(room, func() {
		msg, err = ro.history.Append(ctx, room, author, bot, body)
		if err != nil {
			return
		}
		ro.registry.Broadcast(room, domain.Event{
			Type:    domain.EventNewMessage,
			Room:    room,
			Message: &msg,
		}, "")
	})
	if err != nil {
		// Persist failed: nobody saw this message.
		ro.log.Errorf("persist failed in room %s: %v", room, err)
		return err
	}

	if ro.shouldDispatchBot(room, author, bot) {
		ro.dispatchBot(room, body)
	}
	return nil
}

func (ro *Router) shouldDispatchBot(room string, author domain.Identity, bot bool) bool {
	if ro.responder == nil || room != ro.botRoom {
		return false
	}
	// The bot never answers itself.
	return !bot && author.UserID != ro.botIdentity.UserID
}

// dispatchBot asks the responder for a reply without blocking the room's
// ordering path. The reply, if any, re-enters ingest as a bot-authored
// message and may interleave with human messages that arrived meanwhile.
// Responder failures are logged and never surfaced to users.
func (ro *Router) dispatchBot(room, prompt string) {
	ro.pending.Add(1)
	go func() {
		defer ro.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), ro.botTimeout)
		defer cancel()

		reply, err := ro.responder.Generate(ctx, prompt)
		if err != nil {
			ro.log.Warnf("%v: %v", domain.ErrResponderFailed, err)
			return
		}

		if err := ro.ingest(context.Background(), room, ro.botIdentity, true, reply); err != nil {
			ro.log.Errorf("failed to deliver bot reply in room %s: %v", room, err)
		}
	}()
}

// Wait blocks until all in-flight responder calls have finished. Used on
// shutdown and by tests.
func (ro *Router) Wait() {
	ro.pending.Wait()
}

var _ port.Ingestor = (*Router)(nil)
