package ws

import (
	"context"
	"net/http"

	"github.com/Araaditya/WhatsEase-dev-task/internal/websocket"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
	"github.com/Araaditya/WhatsEase-dev-task/service"
)

type WSConfig struct {
	Hub         *websocket.Hub
	ChatService service.ChatService
	RootCtx     context.Context
}

// RegisterRoutes mounts the /ws endpoint on the given mux.
func RegisterRoutes(mux *http.ServeMux, cfg WSConfig) {
	log := logger.FromContext(cfg.RootCtx).WithModule("websocket")
	mux.HandleFunc("/ws", HandleWebSocket(cfg.RootCtx, cfg.Hub, cfg.ChatService, log))
}

// SetupWebSocketRoutes returns a handler serving only the /ws endpoint.
// Convenience for tests that don't need the REST surface.
func SetupWebSocketRoutes(cfg WSConfig) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, cfg)
	return mux
}
