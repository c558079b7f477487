package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/reflex/go/internal/reaction/config"
	"github.com/mcdev12/reflex/go/internal/reaction/engine"
	"github.com/mcdev12/reflex/go/internal/reaction/events"
	"github.com/rs/zerolog/log"
)

var (
	errSessionClosed  = errors.New("session closed")
	errSendBufferFull = errors.New("send buffer full")
)

// SessionManager owns one game session per WebSocket connection
type SessionManager struct {
	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	settings   config.Settings
	sink       engine.Notifier
	engineOpts []engine.Option
}

// Session is one player's connection and the engine that serves it
type Session struct {
	ID     uuid.UUID
	Conn   *websocket.Conn
	Engine *engine.Engine

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
	manager   *SessionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewSessionManager creates a session manager. Every session's engine emits
// to its own connection and to sink, which may be nil.
func NewSessionManager(cfg ConnectionConfig, settings config.Settings, sink engine.Notifier, engineOpts ...engine.Option) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		config:     cfg,
		settings:   settings,
		sink:       sink,
		engineOpts: engineOpts,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts a
// game session on it.
func (m *SessionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Session, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:          uuid.New(),
		Conn:        conn,
		send:        make(chan []byte, m.config.SendBufferSize),
		done:        make(chan struct{}),
		cancel:      cancel,
		manager:     m,
		ConnectedAt: time.Now(),
	}

	notifier := engine.MultiNotifier{s, m.sink}
	eng, err := engine.New(m.settings, notifier, m.engineOpts...)
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	s.Engine = eng

	m.register(s)
	s.sendEvent(events.EventTypeSessionOpened, events.SessionOpenedPayload{
		SessionID:   s.ID.String(),
		TotalRounds: m.settings.TotalRounds,
	})

	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error().Err(err).Str("session_id", s.ID.String()).Msg("engine stopped with error")
		}
	}()
	go s.writePump()
	go s.readPump(ctx)

	log.Info().
		Str("session_id", s.ID.String()).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket session established")

	return s, nil
}

func (m *SessionManager) register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s

	log.Debug().
		Str("session_id", s.ID.String()).
		Int("total_sessions", len(m.sessions)).
		Msg("session registered")
}

func (m *SessionManager) unregister(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		delete(m.sessions, s.ID)
		log.Info().Str("session_id", s.ID.String()).Msg("session unregistered")
	}
}

// Get returns the session with the given ID.
func (m *SessionManager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// CloseAll closes every open session.
func (m *SessionManager) CloseAll() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}

// GetSessionStats returns statistics about active sessions
func (m *SessionManager) GetSessionStats(ctx context.Context) SessionStats {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	stats := SessionStats{
		TotalSessions: len(sessions),
		Phases:        make(map[string]int),
	}
	for _, s := range sessions {
		snap, err := s.Engine.Snapshot(ctx)
		if err != nil {
			continue
		}
		stats.Phases[snap.Phase.String()]++
	}
	return stats
}

// SessionStats summarizes the gateway's sessions
type SessionStats struct {
	TotalSessions int            `json:"total_sessions"`
	Phases        map[string]int `json:"phases"`
}

// Notify queues an engine event for the client. A client that cannot keep
// up is disconnected.
func (s *Session) Notify(_ context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	select {
	case <-s.done:
		return errSessionClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	default:
		log.Warn().Str("session_id", s.ID.String()).Msg("session send buffer full, closing session")
		s.Close()
		return errSendBufferFull
	}
}

// Close stops the session's engine and connection. It is safe to call more
// than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.manager.unregister(s)
	})
}

func (s *Session) sendEvent(eventType events.EventType, payload any) {
	ev, err := events.New(uuid.Nil, eventType, 0, "", time.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	if err := s.Notify(context.Background(), ev); err != nil {
		log.Debug().Err(err).Str("session_id", s.ID.String()).Msg("failed to queue event")
	}
}

// writePump handles sending messages to the WebSocket connection
func (s *Session) writePump() {
	cfg := s.manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.Conn.Close()
		s.Close()
	}()

	for {
		select {
		case message := <-s.send:
			s.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("session_id", s.ID.String()).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("session_id", s.ID.String()).
					Msg("failed to send ping")
				return
			}

		case <-s.done:
			s.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump handles reading client commands from the WebSocket connection
func (s *Session) readPump(ctx context.Context) {
	cfg := s.manager.config
	defer s.Close()

	s.Conn.SetReadLimit(cfg.MaxMessageSize)
	s.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("session_id", s.ID.String()).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		s.handleClientMessage(ctx, message)
		s.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
