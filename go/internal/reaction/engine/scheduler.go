package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// timerAction is the transition a scheduled task performs when it fires.
type timerAction int

const (
	actionShowCue timerAction = iota
	actionNextRound
	actionFinish
)

func (a timerAction) String() string {
	switch a {
	case actionShowCue:
		return "show_cue"
	case actionNextRound:
		return "next_round"
	case actionFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// scheduledTask is the engine's single outstanding timer. seq identifies it;
// a fired task whose seq no longer matches the pending one is stale.
type scheduledTask struct {
	seq    uint64
	action timerAction
	timer  clockwork.Timer
	stop   chan struct{}
}

// schedule cancels any pending task and arms a new one-shot timer. When the
// timer fires the task is delivered to the run loop as a command.
func (e *Engine) schedule(ctx context.Context, d time.Duration, action timerAction) {
	e.cancelPending()

	e.seq++
	task := &scheduledTask{
		seq:    e.seq,
		action: action,
		timer:  e.clock.NewTimer(d),
		stop:   make(chan struct{}),
	}
	e.pending = task

	go func(t *scheduledTask) {
		select {
		case <-t.timer.Chan():
			select {
			case e.cmdCh <- command{kind: cmdTimerFired, seq: t.seq, action: t.action}:
			case <-t.stop:
			case <-ctx.Done():
			}
		case <-t.stop:
		case <-ctx.Done():
			stopAndDrainTimer(t.timer)
		}
	}(task)

	log.Debug().
		Str("game_id", e.state.GameID.String()).
		Uint64("seq", task.seq).
		Str("action", action.String()).
		Dur("delay", d).
		Msg("scheduled transition")
}

// cancelPending stops the outstanding task, if any, and invalidates it.
func (e *Engine) cancelPending() {
	if e.pending == nil {
		return
	}
	stopAndDrainTimer(e.pending.timer)
	close(e.pending.stop)

	log.Debug().
		Str("game_id", e.state.GameID.String()).
		Uint64("seq", e.pending.seq).
		Str("action", e.pending.action.String()).
		Msg("cancelled pending transition")
	e.pending = nil
}

// claimFired consumes the pending task if seq identifies it. A false return
// means the task was superseded and its firing must be ignored.
func (e *Engine) claimFired(seq uint64) bool {
	if e.pending == nil || e.pending.seq != seq {
		return false
	}
	e.pending = nil
	return true
}

// stopAndDrainTimer stops a timer and drains its channel so a fired value
// is not left behind.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
