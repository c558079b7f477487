package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/reflex/go/internal/reaction/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher mirrors game events onto NATS subjects named
// <prefix>.<event type>.
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Connect dials NATS and returns a publisher on it.
func Connect(url, prefix string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("reflex"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSPublisher(nc, prefix), nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType events.EventType) string {
	return fmt.Sprintf("%s.%s", p.prefix, eventType)
}

// Notify publishes the event.
func (p *NATSPublisher) Notify(_ context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(ev.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("game_id", ev.GameID).
		Int("size", len(data)).
		Msg("published event")
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
