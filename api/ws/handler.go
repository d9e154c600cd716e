package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/websocket"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
	"github.com/Araaditya/WhatsEase-dev-task/service"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for testing; restrict in production.
	},
}

// bearerToken pulls the credential from the token query parameter or an
// Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func HandleWebSocket(
	rootCtx context.Context,
	hub *websocket.Hub,
	chatService service.ChatService,
	logg logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Reject bad credentials before the upgrade; no session is created.
		identity, err := chatService.Authenticate(bearerToken(r))
		if err != nil {
			logg.Warnf("rejected connection from %s: %v", r.RemoteAddr, err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Errorf("upgrade error: %v", err)
			return
		}

		sessionID := uuid.NewString()
		client := &websocket.Connection{
			Ws:          conn,
			Send:        make(chan domain.Event, 256),
			Hub:         hub,
			SessionID:   sessionID,
			Identity:    identity,
			ChatService: chatService,
			Logger:      logg,
			Ctx:         rootCtx,
		}

		chatService.Connect(r.Context(), sessionID, identity)
		hub.Register <- client
		logg.Infof("new connection from %s (user=%s session=%s)", conn.RemoteAddr(), identity.UserID, sessionID)

		go client.ReadPump()
		go client.WritePump()
	}
}
