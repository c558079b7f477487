package engine

import (
	"math"
	"time"

	"github.com/mcdev12/reflex/go/internal/reaction/config"
)

// ScoreReaction returns the points awarded for a valid click. Reactions at
// or under the threshold earn BaseBonus plus the unused threshold
// milliseconds; slower reactions earn nothing. The engine measures
// reactions in whole milliseconds.
func ScoreReaction(s config.Settings, reaction time.Duration) int {
	if reaction < 0 {
		reaction = 0
	}
	if reaction > s.Threshold {
		return 0
	}
	return int(math.Round(float64(s.BaseBonus) + millis(s.Threshold-reaction)))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
