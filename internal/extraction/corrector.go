package extraction

import (
	"fmt"
	"math"

	"github.com/akaramanis/signalbridge/internal/config"
)

// directionPenalty is subtracted from the confidence when the corrector
// flips a stated direction that the price levels contradict.
const directionPenalty = 0.30

// Corrector cross-checks the stated direction against the geometry of the
// take-profit ladder and stop-loss around entry. Channels frequently write
// "BUY" while quoting a short setup; when every target sits on the wrong
// side of entry the direction is flipped with a confidence penalty, and
// when the levels are internally inconsistent the configured contradiction
// policy decides the outcome.
type Corrector struct {
	policy config.ContradictionPolicy
}

// NewCorrector builds a Corrector with the given contradiction policy.
func NewCorrector(policy config.ContradictionPolicy) *Corrector {
	return &Corrector{policy: policy}
}

// Correct returns the possibly-flipped direction, the possibly-reduced
// confidence, and a human-readable note when anything changed. It never
// mutates its inputs.
func (c *Corrector) Correct(f Fields, confidence float64) (Direction, float64, string) {
	dir := f.Direction
	entry, ok := f.EntryReference()
	if !dir.Valid() || !ok {
		return dir, confidence, ""
	}

	var above, below int
	for _, tp := range f.TakeProfits {
		if tp <= 0 {
			continue
		}
		if tp > entry {
			above++
		} else if tp < entry {
			below++
		}
	}
	if above+below == 0 {
		return dir, confidence, ""
	}

	// Targets in the favorable direction outnumbering the rest means the
	// stated direction agrees with the ladder.
	favorable, contrary := above, below
	if dir == DirectionSell {
		favorable, contrary = below, above
	}
	if favorable > contrary {
		return dir, confidence, ""
	}

	if contrary > 0 && favorable == 0 {
		// Every target sits on the wrong side. The stop-loss is the
		// tie-breaker: a stop placed where the flipped direction would put
		// it confirms the flip, a stop placed for the stated direction
		// contradicts the targets outright.
		if f.StopLoss != nil && stopFits(*f.StopLoss, entry, dir) {
			return c.contradiction(dir, confidence, fmt.Sprintf(
				"Contradictory setup: %s with take-profits %s entry but stop-loss placed for %s",
				dir, sideVerb(dir.Opposite()), dir))
		}
		flipped := dir.Opposite()
		note := fmt.Sprintf("Direction corrected %s -> %s (take-profits %s entry), confidence reduced by %.0f%%",
			dir, flipped, sideVerb(flipped), directionPenalty*100)
		return flipped, round2(math.Max(0, confidence-directionPenalty)), note
	}

	// Targets on both sides of entry.
	return c.contradiction(dir, confidence,
		"Contradictory setup: take-profits on both sides of entry")
}

func (c *Corrector) contradiction(dir Direction, confidence float64, note string) (Direction, float64, string) {
	if c.policy == config.ContradictionKeep {
		return dir, confidence, note + " (kept)"
	}
	return dir, 0, note
}

// stopFits reports whether a stop-loss sits where the given direction
// would place it: below entry for BUY, above entry for SELL.
func stopFits(stop, entry float64, dir Direction) bool {
	if dir == DirectionBuy {
		return stop < entry
	}
	return stop > entry
}

// sideVerb names the favorable take-profit side of entry for a direction.
func sideVerb(dir Direction) string {
	if dir == DirectionBuy {
		return "above"
	}
	return "below"
}
