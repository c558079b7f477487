package engine

import (
	"slices"
	"time"

	"github.com/mcdev12/reflex/go/internal/reaction/events"
)

// Summary is the end-of-game report. NoData is set when the player never
// produced a valid reaction.
type Summary struct {
	NoData     bool
	Fastest    time.Duration
	Slowest    time.Duration
	Average    time.Duration
	EarlyCount int
	Score      int
}

// Summarize computes the fastest, slowest and mean reaction.
func Summarize(times []time.Duration, earlyCount, score int) Summary {
	s := Summary{EarlyCount: earlyCount, Score: score}
	if len(times) == 0 {
		s.NoData = true
		return s
	}

	var total time.Duration
	for _, t := range times {
		total += t
	}
	s.Fastest = slices.Min(times)
	s.Slowest = slices.Max(times)
	s.Average = total / time.Duration(len(times))
	return s
}

// Payload converts the summary into its wire form.
func (s Summary) Payload() events.GameFinishedPayload {
	p := events.GameFinishedPayload{
		NoData:     s.NoData,
		EarlyCount: s.EarlyCount,
		Score:      s.Score,
	}
	if !s.NoData {
		p.FastestMs = millis(s.Fastest)
		p.SlowestMs = millis(s.Slowest)
		p.AverageMs = millis(s.Average)
	}
	return p
}
