package extraction

import "math"

// PipTarget is a take-profit expressed as a pip offset from entry rather
// than an absolute price, e.g. "TP 30-100pips" or "TP 50pips".
type PipTarget struct {
	MinPips int
	MaxPips *int // nil for a single offset
}

// PipSize returns the price increment of one pip for the given normalized
// symbol: 0.1 for gold, 0.01 for JPY crosses, 0.0001 otherwise.
func PipSize(symbol string) float64 {
	switch {
	case symbol == "XAUUSD" || symbol == "GOLD":
		return 0.1
	case len(symbol) >= 3 && symbol[len(symbol)-3:] == "JPY":
		return 0.01
	default:
		return 0.0001
	}
}

// Resolve converts the pip offsets into absolute take-profit prices in the
// trade's favorable direction from entry: above for BUY, below for SELL.
// Prices are rounded to 2 decimals.
func (t *PipTarget) Resolve(symbol string, direction Direction, entry float64) []float64 {
	pip := PipSize(symbol)
	sign := 1.0
	if direction == DirectionSell {
		sign = -1.0
	}

	tps := []float64{round2(entry + sign*float64(t.MinPips)*pip)}
	if t.MaxPips != nil {
		tps = append(tps, round2(entry+sign*float64(*t.MaxPips)*pip))
	}
	return tps
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
