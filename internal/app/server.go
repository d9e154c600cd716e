package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Araaditya/WhatsEase-dev-task/api/rest"
	"github.com/Araaditya/WhatsEase-dev-task/api/ws"
	"github.com/Araaditya/WhatsEase-dev-task/config"
	"github.com/Araaditya/WhatsEase-dev-task/internal/auth"
	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/history"
	"github.com/Araaditya/WhatsEase-dev-task/internal/nats"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
	"github.com/Araaditya/WhatsEase-dev-task/internal/redis"
	"github.com/Araaditya/WhatsEase-dev-task/internal/registry"
	"github.com/Araaditya/WhatsEase-dev-task/internal/responder"
	"github.com/Araaditya/WhatsEase-dev-task/internal/router"
	"github.com/Araaditya/WhatsEase-dev-task/internal/websocket"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
	"github.com/Araaditya/WhatsEase-dev-task/service"
)

// App holds every wired dependency of the chat backend.
type App struct {
	cfg         config.Config
	logger      logger.Logger
	natsClient  *nats.NATSClient
	redisClient *redis.RedisClient
	store       *history.Store
	hub         *websocket.Hub
	router      *router.Router
	chatService service.ChatService
	httpServer  *http.Server
	rootCtx     context.Context
	cancel      context.CancelFunc
}

// NewApp initializes and connects all application dependencies. Redis, NATS
// and Postgres are optional collaborators: with empty URLs the app runs
// self-contained on in-memory presence, direct hub delivery and SQLite.
func NewApp(cfg config.Config) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, rootCancel := context.WithCancel(rootCtx)

	log := logger.FromContext(rootCtx).WithModule("app")
	log.Infof("Initializing application components...")

	app := &App{cfg: cfg, logger: log, rootCtx: rootCtx, cancel: rootCancel}

	store, err := newStore(cfg)
	if err != nil {
		rootCancel()
		return nil, err
	}
	app.store = store

	var historyStore port.HistoryStore = store
	var presence port.Presence

	if cfg.RedisURL != "" {
		redisClient, err := redis.NewRedisClient(rootCtx, cfg.RedisURL)
		if err != nil {
			rootCancel()
			app.closePartial()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.redisClient = redisClient
		presence = redisClient
		if cfg.HistoryLimit > 0 {
			historyStore = history.NewCachedStore(store, redisClient, cfg.HistoryLimit, baseLogger.WithModule("history"))
		}
	} else {
		presence = redis.NewMemoryPresence()
	}

	app.hub = websocket.NewHub()

	var publisher port.Publisher = app.hub
	if cfg.NATSURL != "" {
		natsClient, err := nats.NewNATSClient(cfg.NATSURL)
		if err != nil {
			rootCancel()
			app.closePartial()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		app.natsClient = natsClient
		if err := natsClient.StartSessionRelay(app.hub, baseLogger.WithModule("nats")); err != nil {
			rootCancel()
			app.closePartial()
			return nil, err
		}
		publisher = nats.NewSessionPublisher(natsClient, baseLogger.WithModule("nats"))
	}

	reg := registry.NewRegistry(publisher, historyStore, cfg.HistoryLimit, baseLogger.WithModule("registry"))

	var gen port.Responder
	if cfg.GeminiAPIKey != "" {
		gen = responder.NewGeminiResponder(cfg.GeminiAPIKey, cfg.GeminiAPIBase, cfg.GeminiModel, cfg.ResponderTimeout())
	} else {
		log.Warnf("no Gemini API key configured; bot room %q will stay silent", cfg.BotRoom)
	}

	app.router = router.NewRouter(reg, historyStore, gen, router.Options{
		BotRoom:     cfg.BotRoom,
		BotIdentity: domain.Identity{UserID: cfg.BotUserID, Name: cfg.BotName},
		BotTimeout:  cfg.ResponderTimeout(),
	}, baseLogger.WithModule("router"))

	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL())
	app.chatService = service.NewChatService(authenticator, reg, app.router, presence, baseLogger.WithModule("service"))

	mux := http.NewServeMux()
	ws.RegisterRoutes(mux, ws.WSConfig{Hub: app.hub, ChatService: app.chatService, RootCtx: rootCtx})
	rest.RegisterRoutes(mux, authenticator, rootCtx)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	log.Infof("Application initialized successfully")
	return app, nil
}

func newStore(cfg config.Config) (*history.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := history.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return history.NewSQLiteStore(":memory:")
}

// Start runs the application until a shutdown signal arrives.
func (a *App) Start() error {
	log := a.logger.WithFields(map[string]interface{}{"port": a.cfg.Port})
	log.Infof("Starting application server")

	go a.hub.Run()

	g, ctx := errgroup.WithContext(a.rootCtx)

	g.Go(func() error {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			log.Warnf("Received shutdown signal: %s", sig)
		case <-ctx.Done():
		}
		return a.Stop()
	})

	return g.Wait()
}

// Stop gracefully shuts down the server and closes all connections.
func (a *App) Stop() error {
	a.logger.Infof("Initiating graceful shutdown")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Errorf("HTTP server shutdown error: %v", err)
	}

	a.hub.Close()

	a.logger.Infof("Draining in-flight responder calls")
	a.router.Wait()

	a.closePartial()

	a.logger.Infof("Shutdown completed successfully")
	return nil
}

// closePartial releases whichever external connections are open. Safe to
// call with a half-built App.
func (a *App) closePartial() {
	if a.natsClient != nil {
		a.natsClient.Close()
		a.natsClient = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Errorf("Redis close error: %v", err)
		}
		a.redisClient = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Errorf("history store close error: %v", err)
		}
		a.store = nil
	}
}
