package extraction

import "fmt"

// MissingFieldError reports a required field the pattern table could not
// extract. Always fatal to the message.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// MalformedRangeError reports an entry range whose bounds are inverted or
// collapsed. Fatal: a midpoint computed from it would be meaningless.
type MalformedRangeError struct {
	Min, Max float64
}

func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("malformed entry range: min %v >= max %v", e.Min, e.Max)
}

// Validator checks extracted fields for structural problems (fatal) and
// economically implausible level placement (advisory warnings).
type Validator struct {
	allowed map[string]bool
}

// NewValidator builds a Validator. Symbols outside allowedSymbols draw a
// warning, not a rejection; an empty list disables the check.
func NewValidator(allowedSymbols []string) *Validator {
	allowed := make(map[string]bool, len(allowedSymbols))
	for _, s := range allowedSymbols {
		allowed[s] = true
	}
	return &Validator{allowed: allowed}
}

// Validate returns a fatal error for missing required fields or a
// malformed range, and a list of advisory warnings for suspicious but
// tradeable setups. Warnings never block acceptance; they end up in the
// signal's extraction notes.
func (v *Validator) Validate(f Fields) ([]string, error) {
	if f.Symbol == "" {
		return nil, &MissingFieldError{Field: "symbol"}
	}
	if !f.Direction.Valid() {
		return nil, &MissingFieldError{Field: "direction"}
	}
	if !f.HasEntry() {
		return nil, &MissingFieldError{Field: "entry"}
	}
	if f.EntryMin != nil && f.EntryMax != nil && *f.EntryMin >= *f.EntryMax {
		return nil, &MalformedRangeError{Min: *f.EntryMin, Max: *f.EntryMax}
	}

	var warnings []string
	if len(v.allowed) > 0 && !v.allowed[f.Symbol] {
		warnings = append(warnings, fmt.Sprintf("symbol %s is not in the allowed list", f.Symbol))
	}

	entry, _ := f.EntryReference()
	if f.StopLoss != nil && !stopFits(*f.StopLoss, entry, f.Direction) {
		warnings = append(warnings, fmt.Sprintf(
			"stop-loss %v on the wrong side of entry %v for %s", *f.StopLoss, entry, f.Direction))
	}

	prev := entry
	for i, tp := range f.TakeProfits {
		if tp <= 0 {
			continue
		}
		wrongSide := (f.Direction == DirectionBuy && tp < entry) ||
			(f.Direction == DirectionSell && tp > entry)
		if wrongSide {
			warnings = append(warnings, fmt.Sprintf(
				"take-profit %d (%v) on the wrong side of entry %v for %s", i+1, tp, entry, f.Direction))
			continue
		}
		// The ladder should step away from entry monotonically.
		receding := (f.Direction == DirectionBuy && tp < prev) ||
			(f.Direction == DirectionSell && tp > prev)
		if receding {
			warnings = append(warnings, fmt.Sprintf(
				"take-profit %d (%v) is closer to entry than take-profit %d", i+1, tp, i))
		}
		prev = tp
	}

	return warnings, nil
}
