package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Araaditya/WhatsEase-dev-task/internal/auth"
	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRoutes mounts the login endpoint. Credential verification against
// a user database is out of scope here; the endpoint turns an email/name
// pair into a signed access token the WebSocket handshake accepts.
func RegisterRoutes(mux *http.ServeMux, authenticator *auth.Authenticator, rootCtx context.Context) {
	log := logger.FromContext(rootCtx).WithModule("rest")

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" {
			http.Error(w, "email is required", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			req.Name = req.Email
		}

		token, err := authenticator.CreateToken(domain.Identity{UserID: req.Email, Name: req.Name})
		if err != nil {
			log.Errorf("failed to issue token for %s: %v", req.Email, err)
			http.Error(w, "could not issue token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(loginResponse{AccessToken: token, TokenType: "bearer"}); err != nil {
			log.Errorf("failed to write login response: %v", err)
		}
	})
}
