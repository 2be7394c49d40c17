package extraction

import "github.com/akaramanis/signalbridge/internal/config"

// Scorer computes the weighted completeness score of an extraction. Each
// field contributes its configured weight when present; the take-profit
// weight is earned in full only with two or more targets, a single target
// earns half. Pure function of its inputs.
type Scorer struct {
	weights config.Weights
	trust   map[string]float64
}

// NewScorer builds a Scorer from the configured weights and per-channel
// trust multipliers.
func NewScorer(weights config.Weights, trust map[string]float64) *Scorer {
	return &Scorer{weights: weights, trust: trust}
}

// Score returns the confidence in [0, sum-of-weights], rounded to 2
// decimals. Channels without a configured trust multiplier count as 1.0.
func (s *Scorer) Score(f Fields, channel string) float64 {
	score := 0.0
	if f.Symbol != "" {
		score += s.weights.Symbol
	}
	if f.Direction.Valid() {
		score += s.weights.Direction
	}
	if f.HasEntry() {
		score += s.weights.Entry
	}
	if f.StopLoss != nil {
		score += s.weights.StopLoss
	}
	switch {
	case len(f.TakeProfits) >= 2:
		score += s.weights.TakeProfit
	case len(f.TakeProfits) == 1:
		score += s.weights.TakeProfit / 2
	}
	// The channel bonus applies only to messages with a known origin;
	// replayed or anonymous messages earn the field weights alone.
	if channel != "" && s.weights.Channel > 0 {
		trust := 1.0
		if t, ok := s.trust[channel]; ok {
			trust = t
		}
		score += s.weights.Channel * trust
	}
	return round2(score)
}
