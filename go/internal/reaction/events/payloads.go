package events

import (
	"fmt"
	"time"
)

// Event payload types shared between the engine, gateway and publisher

// GameStartedPayload is the payload for a GameStarted event
type GameStartedPayload struct {
	TotalRounds int       `json:"total_rounds"`
	StartedAt   time.Time `json:"started_at"`
}

// RoundWaitingPayload is the payload for a RoundWaiting event
type RoundWaitingPayload struct {
	CueDelayMs int64 `json:"cue_delay_ms"`
}

// CueShownPayload is the payload for a CueShown event
type CueShownPayload struct {
	ShownAt time.Time `json:"shown_at"`
}

// EarlyClickPayload is the payload for an EarlyClick event
type EarlyClickPayload struct {
	Penalty    int `json:"penalty"`
	EarlyCount int `json:"early_count"`
	Score      int `json:"score"`
}

// ReactionRecordedPayload is the payload for a ReactionRecorded event
type ReactionRecordedPayload struct {
	ReactionMs float64 `json:"reaction_ms"`
	Points     int     `json:"points"`
	Score      int     `json:"score"`
}

// GameFinishedPayload is the payload for a GameFinished event. NoData is
// set when no valid reaction was recorded; the timing fields are then zero
// and must be ignored.
type GameFinishedPayload struct {
	NoData     bool    `json:"no_data"`
	FastestMs  float64 `json:"fastest_ms"`
	SlowestMs  float64 `json:"slowest_ms"`
	AverageMs  float64 `json:"average_ms"`
	EarlyCount int     `json:"early_count"`
	Score      int     `json:"score"`
}

// SessionOpenedPayload is sent once when a view connects
type SessionOpenedPayload struct {
	SessionID   string `json:"session_id"`
	TotalRounds int    `json:"total_rounds"`
}

// ErrorPayload is sent to a client whose command could not be handled
type ErrorPayload struct {
	Message string `json:"message"`
}

// Display labels rendered by the view.
const (
	LabelGetReady = "Get Ready..."
	LabelClickNow = "Click now!"
)

// TooSoonLabel is shown after an early click.
func TooSoonLabel(penalty int) string {
	return fmt.Sprintf("Too soon! -%d pts", penalty)
}

// ReactionLabel is shown after a valid click.
func ReactionLabel(reaction time.Duration, points int) string {
	return fmt.Sprintf("Time: %d ms (+%d pts)", reaction.Round(time.Millisecond).Milliseconds(), points)
}
