package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/reaction/config"
	"github.com/mcdev12/reflex/go/internal/reaction/events"
	"github.com/rs/zerolog/log"
)

// ErrEngineStopped is returned when a command reaches an engine whose run
// loop has exited.
var ErrEngineStopped = errors.New("engine stopped")

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Rand picks cue delays. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Int64N(n int64) int64
}

type globalRand struct{}

func (globalRand) Int64N(n int64) int64 { return rand.Int64N(n) }

// OutcomeKind classifies how the engine handled a command.
type OutcomeKind string

const (
	OutcomeIgnored  OutcomeKind = "ignored"
	OutcomeEarly    OutcomeKind = "early"
	OutcomeReaction OutcomeKind = "reaction"
	OutcomeApplied  OutcomeKind = "applied"
)

// Outcome is the result of a command together with the state it left behind.
type Outcome struct {
	Kind     OutcomeKind
	Points   int
	Reaction time.Duration
	State    Snapshot
}

// Snapshot is a read-only copy of a game's state.
type Snapshot struct {
	GameID          string                      `json:"game_id,omitempty"`
	Phase           Phase                       `json:"phase"`
	Round           int                         `json:"round"`
	TotalRounds     int                         `json:"total_rounds"`
	Score           int                         `json:"score"`
	EarlyCount      int                         `json:"early_count"`
	ReactionTimesMs []float64                   `json:"reaction_times_ms"`
	RoundStartedAt  *time.Time                  `json:"round_started_at,omitempty"`
	PendingTimer    bool                        `json:"pending_timer"`
	Summary         *events.GameFinishedPayload `json:"summary,omitempty"`
}

// gameState is owned by the run loop and never shared.
type gameState struct {
	GameID         uuid.UUID
	Round          int
	Phase          Phase
	RoundStartedAt time.Time
	ReactionTimes  []time.Duration
	EarlyCount     int
	Score          int
	Summary        *Summary
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdRestart
	cmdQuit
	cmdActivate
	cmdSnapshot
	cmdTimerFired
)

type command struct {
	kind   commandKind
	seq    uint64
	action timerAction
	reply  chan Outcome
}

// Engine sequences the rounds of one player's reaction game. All state is
// mutated by the goroutine running Run; the exported methods submit commands
// to it and wait for the result.
type Engine struct {
	settings config.Settings
	clock    Clock
	rand     Rand
	notifier Notifier

	cmdCh   chan command
	stopped chan struct{}

	// owned by the run loop
	state   gameState
	pending *scheduledTask
	seq     uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand replaces the source used to pick cue delays.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// New creates an idle engine. notifier may be nil.
func New(settings config.Settings, notifier Notifier, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	e := &Engine{
		settings: settings,
		clock:    clockwork.NewRealClock(),
		rand:     globalRand{},
		notifier: notifier,
		cmdCh:    make(chan command),
		stopped:  make(chan struct{}),
		state:    gameState{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Settings returns the constants the engine was built with.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// Run processes commands and timer expiries until ctx is done. It must be
// called exactly once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)
	defer e.cancelPending()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("game_id", e.state.GameID.String()).Msg("engine run loop stopped")
			return nil
		case cmd := <-e.cmdCh:
			out := e.apply(ctx, cmd)
			if cmd.reply != nil {
				cmd.reply <- out
			}
		}
	}
}

// Start begins a new game, discarding any game in progress.
func (e *Engine) Start(ctx context.Context) (Outcome, error) {
	return e.submit(ctx, cmdStart)
}

// PlayAgain starts a new game from the summary screen.
func (e *Engine) PlayAgain(ctx context.Context) (Outcome, error) {
	return e.submit(ctx, cmdStart)
}

// Restart cancels the current game and immediately starts a new one.
func (e *Engine) Restart(ctx context.Context) (Outcome, error) {
	return e.submit(ctx, cmdRestart)
}

// QuitToStart cancels the current game and returns to idle.
func (e *Engine) QuitToStart(ctx context.Context) (Outcome, error) {
	return e.submit(ctx, cmdQuit)
}

// Activate delivers a click or keypress.
func (e *Engine) Activate(ctx context.Context) (Outcome, error) {
	return e.submit(ctx, cmdActivate)
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	out, err := e.submit(ctx, cmdSnapshot)
	if err != nil {
		return Snapshot{}, err
	}
	return out.State, nil
}

func (e *Engine) submit(ctx context.Context, kind commandKind) (Outcome, error) {
	cmd := command{kind: kind, reply: make(chan Outcome, 1)}

	select {
	case e.cmdCh <- cmd:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-e.stopped:
		return Outcome{}, ErrEngineStopped
	}

	select {
	case out := <-cmd.reply:
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-e.stopped:
		select {
		case out := <-cmd.reply:
			return out, nil
		default:
			return Outcome{}, ErrEngineStopped
		}
	}
}

func (e *Engine) apply(ctx context.Context, cmd command) Outcome {
	out := Outcome{Kind: OutcomeApplied}

	switch cmd.kind {
	case cmdStart, cmdRestart:
		e.startGame(ctx)
	case cmdQuit:
		if !e.quitToStart(ctx) {
			out.Kind = OutcomeIgnored
		}
	case cmdActivate:
		out = e.handleInput(ctx)
	case cmdSnapshot:
	case cmdTimerFired:
		if !e.claimFired(cmd.seq) {
			log.Debug().
				Str("game_id", e.state.GameID.String()).
				Uint64("seq", cmd.seq).
				Msg("discarding stale timer")
			out.Kind = OutcomeIgnored
			break
		}
		e.fire(ctx, cmd.action)
	}

	out.State = e.snapshot()
	return out
}

func (e *Engine) startGame(ctx context.Context) {
	e.cancelPending()

	now := e.clock.Now()
	e.state = gameState{
		GameID: uuid.New(),
		Round:  1,
		Phase:  PhaseWaiting,
	}

	log.Info().
		Str("game_id", e.state.GameID.String()).
		Int("total_rounds", e.settings.TotalRounds).
		Msg("game started")

	e.emit(ctx, events.EventTypeGameStarted, "", events.GameStartedPayload{
		TotalRounds: e.settings.TotalRounds,
		StartedAt:   now,
	})
	e.scheduleCue(ctx)
}

// scheduleCue enters Waiting for the current round and arms the cue timer.
func (e *Engine) scheduleCue(ctx context.Context) {
	delay := e.cueDelay()
	e.state.Phase = PhaseWaiting
	e.schedule(ctx, delay, actionShowCue)

	e.emit(ctx, events.EventTypeRoundWaiting, events.LabelGetReady, events.RoundWaitingPayload{
		CueDelayMs: delay.Milliseconds(),
	})
}

func (e *Engine) cueDelay() time.Duration {
	span := e.settings.CueDelayMax - e.settings.CueDelayMin
	if span <= 0 {
		return e.settings.CueDelayMin
	}
	return e.settings.CueDelayMin + time.Duration(e.rand.Int64N(int64(span)+1))
}

func (e *Engine) fire(ctx context.Context, action timerAction) {
	switch action {
	case actionShowCue:
		if e.state.Phase != PhaseWaiting {
			return
		}
		e.state.Phase = PhaseClickable
		e.state.RoundStartedAt = e.clock.Now()
		e.emit(ctx, events.EventTypeCueShown, events.LabelClickNow, events.CueShownPayload{
			ShownAt: e.state.RoundStartedAt,
		})
	case actionNextRound:
		e.scheduleCue(ctx)
	case actionFinish:
		e.finishGame(ctx)
	}
}

func (e *Engine) handleInput(ctx context.Context) Outcome {
	if !e.state.Phase.acceptsInput() {
		log.Debug().Str("phase", e.state.Phase.String()).Msg("input ignored")
		return Outcome{Kind: OutcomeIgnored}
	}

	switch e.state.Phase {
	case PhaseWaiting:
		e.cancelPending()
		e.state.EarlyCount++
		e.state.Score -= e.settings.EarlyPenalty
		e.advance(ctx, e.settings.EarlyCooldown)
		e.logCurrent()

		e.emit(ctx, events.EventTypeEarlyClick, events.TooSoonLabel(e.settings.EarlyPenalty), events.EarlyClickPayload{
			Penalty:    e.settings.EarlyPenalty,
			EarlyCount: e.state.EarlyCount,
			Score:      e.state.Score,
		})
		return Outcome{Kind: OutcomeEarly, Points: -e.settings.EarlyPenalty}

	case PhaseClickable:
		// measured in whole milliseconds
		reaction := e.clock.Now().Sub(e.state.RoundStartedAt).Truncate(time.Millisecond)
		points := ScoreReaction(e.settings, reaction)
		e.state.ReactionTimes = append(e.state.ReactionTimes, reaction)
		e.state.Score += points
		e.advance(ctx, e.settings.ValidCooldown)
		e.logCurrent()

		e.emit(ctx, events.EventTypeReactionRecorded, events.ReactionLabel(reaction, points), events.ReactionRecordedPayload{
			ReactionMs: millis(reaction),
			Points:     points,
			Score:      e.state.Score,
		})
		return Outcome{Kind: OutcomeReaction, Points: points, Reaction: reaction}

	default:
		return Outcome{Kind: OutcomeIgnored}
	}
}

// advance moves past a judged round: to the next round's Waiting after the
// cooldown, or to the summary when the last round was just played.
func (e *Engine) advance(ctx context.Context, cooldown time.Duration) {
	e.state.Phase = PhaseCooldown
	if e.state.Round >= e.settings.TotalRounds {
		e.schedule(ctx, cooldown, actionFinish)
		return
	}
	e.state.Round++
	e.schedule(ctx, cooldown, actionNextRound)
}

func (e *Engine) finishGame(ctx context.Context) {
	e.cancelPending()
	e.state.Phase = PhaseResolved
	summary := Summarize(e.state.ReactionTimes, e.state.EarlyCount, e.state.Score)
	e.state.Summary = &summary

	log.Info().
		Str("game_id", e.state.GameID.String()).
		Int("score", summary.Score).
		Int("early_count", summary.EarlyCount).
		Bool("no_data", summary.NoData).
		Dur("average", summary.Average).
		Msg("game finished")

	e.emit(ctx, events.EventTypeGameFinished, "", summary.Payload())
}

func (e *Engine) quitToStart(ctx context.Context) bool {
	e.cancelPending()
	if e.state.Phase == PhaseIdle {
		return false
	}
	e.state.Phase = PhaseIdle

	log.Info().Str("game_id", e.state.GameID.String()).Int("round", e.state.Round).Msg("game quit")
	e.emit(ctx, events.EventTypeGameQuit, "", nil)
	return true
}

func (e *Engine) logCurrent() {
	times := make([]float64, len(e.state.ReactionTimes))
	for i, t := range e.state.ReactionTimes {
		times[i] = millis(t)
	}
	log.Debug().
		Str("game_id", e.state.GameID.String()).
		Int("round", e.state.Round).
		Int("score", e.state.Score).
		Floats64("times_ms", times).
		Msg("round judged")
}

func (e *Engine) emit(ctx context.Context, eventType events.EventType, label string, payload any) {
	ev, err := events.New(e.state.GameID, eventType, e.state.Round, label, e.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		log.Warn().
			Err(err).
			Str("game_id", ev.GameID).
			Str("event_type", string(eventType)).
			Msg("notifier failed")
	}
}

func (e *Engine) snapshot() Snapshot {
	s := Snapshot{
		Phase:           e.state.Phase,
		Round:           e.state.Round,
		TotalRounds:     e.settings.TotalRounds,
		Score:           e.state.Score,
		EarlyCount:      e.state.EarlyCount,
		ReactionTimesMs: make([]float64, len(e.state.ReactionTimes)),
		PendingTimer:    e.pending != nil,
	}
	if e.state.GameID != uuid.Nil {
		s.GameID = e.state.GameID.String()
	}
	for i, t := range e.state.ReactionTimes {
		s.ReactionTimesMs[i] = millis(t)
	}
	if e.state.Phase == PhaseClickable {
		started := e.state.RoundStartedAt
		s.RoundStartedAt = &started
	}
	if e.state.Summary != nil {
		p := e.state.Summary.Payload()
		s.Summary = &p
	}
	return s
}
