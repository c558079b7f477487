package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of game event
type EventType string

const (
	EventTypeGameStarted      EventType = "GameStarted"
	EventTypeRoundWaiting     EventType = "RoundWaiting"
	EventTypeCueShown         EventType = "CueShown"
	EventTypeEarlyClick       EventType = "EarlyClick"
	EventTypeReactionRecorded EventType = "ReactionRecorded"
	EventTypeGameFinished     EventType = "GameFinished"
	EventTypeGameQuit         EventType = "GameQuit"
	EventTypeSessionOpened    EventType = "SessionOpened"
	EventTypeError            EventType = "Error"
)

// Event is the envelope sent to views and message sinks.
type Event struct {
	ID        string          `json:"id"`
	GameID    string          `json:"game_id"`
	Type      EventType       `json:"type"`
	Round     int             `json:"round"`
	Label     string          `json:"label,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an Event, marshalling payload into Data when it is non-nil.
func New(gameID uuid.UUID, eventType EventType, round int, label string, at time.Time, payload any) (Event, error) {
	ev := Event{
		ID:        uuid.New().String(),
		GameID:    gameID.String(),
		Type:      eventType,
		Round:     round,
		Label:     label,
		Timestamp: at,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
		}
		ev.Data = data
	}
	return ev, nil
}

// ParsePayload decodes event data into the payload struct for its type.
func ParsePayload(ev Event) (any, error) {
	switch ev.Type {
	case EventTypeGameStarted:
		var payload GameStartedPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundWaiting:
		var payload RoundWaitingPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeCueShown:
		var payload CueShownPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeEarlyClick:
		var payload EarlyClickPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeReactionRecorded:
		var payload ReactionRecordedPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGameFinished:
		var payload GameFinishedPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionOpened:
		var payload SessionOpenedPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeError:
		var payload ErrorPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil
	}
}
