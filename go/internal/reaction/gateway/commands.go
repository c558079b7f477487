package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/reflex/go/internal/reaction/engine"
	"github.com/mcdev12/reflex/go/internal/reaction/events"
	"github.com/rs/zerolog/log"
)

// CommandType is a client request sent over the WebSocket
type CommandType string

const (
	CommandActivate  CommandType = "activate"
	CommandStart     CommandType = "start"
	CommandRestart   CommandType = "restart"
	CommandQuit      CommandType = "quit"
	CommandPlayAgain CommandType = "play_again"
)

// ClientCommand is the JSON message a view sends
type ClientCommand struct {
	Type CommandType `json:"type"`
}

// dispatch runs a client command against the engine.
func dispatch(ctx context.Context, eng *engine.Engine, cmd CommandType) (engine.Outcome, error) {
	switch cmd {
	case CommandActivate:
		return eng.Activate(ctx)
	case CommandStart:
		return eng.Start(ctx)
	case CommandRestart:
		return eng.Restart(ctx)
	case CommandQuit:
		return eng.QuitToStart(ctx)
	case CommandPlayAgain:
		return eng.PlayAgain(ctx)
	default:
		return engine.Outcome{}, fmt.Errorf("unknown command %q", cmd)
	}
}

// handleClientMessage decodes and applies one client command. Failures are
// reported to the client as Error events; the connection stays open.
func (s *Session) handleClientMessage(ctx context.Context, message []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Debug().Err(err).Str("session_id", s.ID.String()).Msg("malformed client message")
		s.sendEvent(events.EventTypeError, events.ErrorPayload{Message: "malformed command"})
		return
	}

	out, err := dispatch(ctx, s.Engine, cmd.Type)
	if err != nil {
		log.Debug().
			Err(err).
			Str("session_id", s.ID.String()).
			Str("command", string(cmd.Type)).
			Msg("client command failed")
		s.sendEvent(events.EventTypeError, events.ErrorPayload{Message: err.Error()})
		return
	}

	log.Debug().
		Str("session_id", s.ID.String()).
		Str("command", string(cmd.Type)).
		Str("outcome", string(out.Kind)).
		Str("phase", out.State.Phase.String()).
		Int("round", out.State.Round).
		Msg("client command handled")
}
