package engine

// Phase is the engine's position within a game.
type Phase string

const (
	PhaseIdle      Phase = "idle"      // before a game starts or after quitting
	PhaseWaiting   Phase = "waiting"   // cue hidden, cue timer running
	PhaseClickable Phase = "clickable" // cue shown, awaiting input
	PhaseCooldown  Phase = "cooldown"  // input judged, next round pending
	PhaseResolved  Phase = "resolved"  // summary ready
)

func (p Phase) String() string {
	return string(p)
}

// acceptsInput reports whether an activate signal is judged in this phase.
func (p Phase) acceptsInput() bool {
	return p == PhaseWaiting || p == PhaseClickable
}
