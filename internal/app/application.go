package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"chessclub/internal/api"
	"chessclub/internal/broadcast"
	"chessclub/internal/config"
	"chessclub/internal/database"
	"chessclub/internal/room"
	"chessclub/internal/rules"
	"chessclub/internal/websocket"
)

// Application wires every component together in dependency order:
// Archive → Rules → Registry → Gateway → Engine → WebSocket → API → HTTP.
type Application struct {
	config     *config.Config
	store      *database.Store
	engine     *room.Engine
	gateway    *broadcast.Gateway
	httpServer *http.Server
}

func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := database.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive store: %w", err)
	}

	gateway := broadcast.NewGateway()
	engine := room.NewEngine(room.NewRegistry(), gateway, rules.NewEngine(), store, room.Config{
		TimerLength:   cfg.Timer.DefaultLength,
		TimerRevealAt: cfg.Timer.DefaultRevealAt,
		TickInterval:  time.Second,
	})

	wsHandler := websocket.NewHandler(engine, gateway, cfg.WebSocket, cfg.AllowedOrigins)
	apiServer := api.NewServer(engine, gateway, store, wsHandler, cfg.AllowedOrigins)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      store,
		engine:     engine,
		gateway:    gateway,
		httpServer: httpServer,
	}, nil
}

// Start launches the HTTP server and confirms it came up before returning.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting chessclub server on %s", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		app.engine.Close()
		app.store.Close()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Chessclub server started successfully")
		return nil
	case <-ctx.Done():
		app.engine.Close()
		app.store.Close()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse dependency order:
// HTTP → Engine timers → Archive.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down chessclub server")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	app.engine.Close()

	if err := app.store.Close(); err != nil {
		log.Printf("Archive shutdown error: %v", err)
	}

	log.Printf("Chessclub server shutdown complete")
	return nil
}

// GetAddr returns the bound server address.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
