package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestScheduleSupersedesPendingTask(t *testing.T) {
	clk := clockwork.NewFakeClock()
	e, err := New(testSettings(), nil, WithClock(clk))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.schedule(ctx, time.Second, actionShowCue)
	first := e.pending
	e.schedule(ctx, time.Second, actionNextRound)
	second := e.pending

	select {
	case <-first.stop:
	default:
		t.Fatalf("expected superseded task to be stopped")
	}
	if first.seq == second.seq {
		t.Fatalf("expected distinct sequence numbers")
	}

	if e.claimFired(first.seq) {
		t.Fatalf("stale task must not be claimed")
	}
	if e.pending != second {
		t.Fatalf("stale claim must leave the pending task in place")
	}
	if !e.claimFired(second.seq) {
		t.Fatalf("expected current task to be claimed")
	}
	if e.pending != nil {
		t.Fatalf("expected no pending task after claim")
	}
}

func TestCancelPendingWithoutTask(t *testing.T) {
	e, err := New(testSettings(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.cancelPending()
	if e.pending != nil {
		t.Fatalf("expected no pending task")
	}
}

func TestStaleFiringIsDiscarded(t *testing.T) {
	clk := clockwork.NewFakeClock()
	e, err := New(testSettings(), nil, WithClock(clk))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.startGame(ctx)
	stale := e.pending.seq
	e.startGame(ctx)

	out := e.apply(ctx, command{kind: cmdTimerFired, seq: stale, action: actionShowCue})
	if out.Kind != OutcomeIgnored {
		t.Fatalf("expected stale firing to be ignored got %s", out.Kind)
	}
	if out.State.Phase != PhaseWaiting || !out.State.PendingTimer {
		t.Fatalf("stale firing changed state %+v", out.State)
	}
}
