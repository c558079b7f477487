package gateway

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/reflex/go/internal/reaction/config"
	"github.com/mcdev12/reflex/go/internal/reaction/engine"
	"github.com/rs/zerolog/log"
)

// Service is the game gateway: WebSocket sessions plus their HTTP routes
type Service struct {
	sessions  *SessionManager
	wsHandler *WebSocketHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	Settings         config.Settings

	// Sink receives every event of every session, in addition to the
	// session's own connection. Optional.
	Sink          engine.Notifier
	EngineOptions []engine.Option
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Settings:         config.Default(),
	}
}

// NewService creates a new gateway service
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	sessions := NewSessionManager(cfg.ConnectionConfig, cfg.Settings, cfg.Sink, cfg.EngineOptions...)
	return &Service{
		sessions:  sessions,
		wsHandler: NewWebSocketHandler(sessions),
	}, nil
}

// Start blocks until ctx is done, then closes every session.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")
	<-ctx.Done()
	log.Info().Msg("game gateway service shutting down")
	s.Stop()
	return nil
}

// Stop closes every open session
func (s *Service) Stop() {
	s.sessions.CloseAll()
	log.Info().Msg("game gateway service stopped")
}

// RegisterRoutes registers the gateway's routes
func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	log.Info().Msg("game gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats(ctx context.Context) SessionStats {
	return s.sessions.GetSessionStats(ctx)
}
