// Package extraction turns free-form chat messages into structured trading
// signals: an ordered pattern table pulls typed fields out of the text, a
// weighted confidence model scores how complete the extraction is, and a
// setup corrector reconciles the stated direction with the numeric levels.
package extraction

import "time"

// Direction is the trade direction of a signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Opposite returns the mirrored direction.
func (d Direction) Opposite() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// Signal is an extracted trading instruction. It is constructed once per
// accepted message by the Extractor and immutable thereafter.
//
// Entry is either a single price or a (min,max) range, never both. The
// take-profit ladder is ordered away from entry in the trade's favorable
// direction.
type Signal struct {
	MessageID int64     // unique per source channel
	Channel   string    // source channel identifier
	Timestamp time.Time // message timestamp

	Symbol    string // normalized, e.g. "XAUUSD"
	Direction Direction

	EntryPrice    *float64
	EntryPriceMin *float64
	EntryPriceMax *float64

	StopLoss    *float64
	TakeProfits []float64

	ConfidenceScore float64 // 0.0 to 1.0
	RawMessage      string
	ExtractionNotes string

	ExtractedAt time.Time
}

// HasEntry reports whether the signal carries any usable entry information.
func (s *Signal) HasEntry() bool {
	return s.EntryPrice != nil || (s.EntryPriceMin != nil && s.EntryPriceMax != nil)
}

// EntryReference returns the single entry price, or the range midpoint for
// range entries. The second return is false when no entry is known.
func (s *Signal) EntryReference() (float64, bool) {
	if s.EntryPrice != nil {
		return *s.EntryPrice, true
	}
	if s.EntryPriceMin != nil && s.EntryPriceMax != nil {
		return (*s.EntryPriceMin + *s.EntryPriceMax) / 2, true
	}
	return 0, false
}

// Record is the flat field set handed to sinks and persisted in snapshots.
// The ladder is flattened into take_profit_1..4 like the original CSV layout.
type Record struct {
	MessageID       int64     `json:"message_id"`
	Channel         string    `json:"channel"`
	Timestamp       time.Time `json:"timestamp"`
	Symbol          string    `json:"symbol"`
	Direction       string    `json:"direction"`
	EntryPrice      *float64  `json:"entry_price"`
	EntryPriceMin   *float64  `json:"entry_price_min"`
	EntryPriceMax   *float64  `json:"entry_price_max"`
	StopLoss        *float64  `json:"stop_loss"`
	TakeProfit1     *float64  `json:"take_profit_1"`
	TakeProfit2     *float64  `json:"take_profit_2"`
	TakeProfit3     *float64  `json:"take_profit_3"`
	TakeProfit4     *float64  `json:"take_profit_4"`
	ConfidenceScore float64   `json:"confidence_score"`
	RawMessage      string    `json:"raw_message"`
	ExtractionNotes string    `json:"extraction_notes"`
	ExtractedAt     time.Time `json:"extracted_at"`
}

// Record flattens the signal into its sink/persistence shape.
func (s *Signal) Record() Record {
	rec := Record{
		MessageID:       s.MessageID,
		Channel:         s.Channel,
		Timestamp:       s.Timestamp,
		Symbol:          s.Symbol,
		Direction:       string(s.Direction),
		EntryPrice:      s.EntryPrice,
		EntryPriceMin:   s.EntryPriceMin,
		EntryPriceMax:   s.EntryPriceMax,
		StopLoss:        s.StopLoss,
		ConfidenceScore: s.ConfidenceScore,
		RawMessage:      s.RawMessage,
		ExtractionNotes: s.ExtractionNotes,
		ExtractedAt:     s.ExtractedAt,
	}
	slots := []**float64{&rec.TakeProfit1, &rec.TakeProfit2, &rec.TakeProfit3, &rec.TakeProfit4}
	for i, tp := range s.TakeProfits {
		if i >= len(slots) {
			break
		}
		v := tp
		*slots[i] = &v
	}
	return rec
}

// SignalFromRecord rebuilds a Signal from its flattened record form, used
// when loading a persisted snapshot.
func SignalFromRecord(rec Record) *Signal {
	sig := &Signal{
		MessageID:       rec.MessageID,
		Channel:         rec.Channel,
		Timestamp:       rec.Timestamp,
		Symbol:          rec.Symbol,
		Direction:       Direction(rec.Direction),
		EntryPrice:      rec.EntryPrice,
		EntryPriceMin:   rec.EntryPriceMin,
		EntryPriceMax:   rec.EntryPriceMax,
		StopLoss:        rec.StopLoss,
		ConfidenceScore: rec.ConfidenceScore,
		RawMessage:      rec.RawMessage,
		ExtractionNotes: rec.ExtractionNotes,
		ExtractedAt:     rec.ExtractedAt,
	}
	for _, tp := range []*float64{rec.TakeProfit1, rec.TakeProfit2, rec.TakeProfit3, rec.TakeProfit4} {
		if tp != nil {
			sig.TakeProfits = append(sig.TakeProfits, *tp)
		}
	}
	return sig
}

// Fields is the raw output of the field extractor, before confidence
// scoring and setup correction.
type Fields struct {
	Symbol      string
	Direction   Direction
	EntryPrice  *float64
	EntryMin    *float64
	EntryMax    *float64
	StopLoss    *float64
	TakeProfits []float64
	PipTarget   *PipTarget // unresolved pip-offset take-profits, if any
}

// HasEntry reports whether any entry information was extracted.
func (f *Fields) HasEntry() bool {
	return f.EntryPrice != nil || (f.EntryMin != nil && f.EntryMax != nil)
}

// EntryReference mirrors Signal.EntryReference for raw fields.
func (f *Fields) EntryReference() (float64, bool) {
	if f.EntryPrice != nil {
		return *f.EntryPrice, true
	}
	if f.EntryMin != nil && f.EntryMax != nil {
		return (*f.EntryMin + *f.EntryMax) / 2, true
	}
	return 0, false
}

// ExtractionError records a rejected message together with whatever partial
// fields could still be extracted for diagnostics. It is never retried.
type ExtractionError struct {
	MessageID   int64
	Channel     string
	Timestamp   time.Time
	RawMessage  string
	ErrorReason string
	Fields      Fields
	OccurredAt  time.Time
}

// ErrorRecord is the flat sink shape of an ExtractionError.
type ErrorRecord struct {
	MessageID       int64          `json:"message_id"`
	Channel         string         `json:"channel"`
	Timestamp       time.Time      `json:"timestamp"`
	RawMessage      string         `json:"raw_message"`
	ErrorReason     string         `json:"error_reason"`
	ExtractedFields map[string]any `json:"extracted_fields"`
	OccurredAt      time.Time      `json:"occurred_at"`
}

// Record flattens the error for the JSONL sink and the archive.
func (e *ExtractionError) Record() ErrorRecord {
	fields := map[string]any{}
	if e.Fields.Symbol != "" {
		fields["symbol"] = e.Fields.Symbol
	}
	if e.Fields.Direction != "" {
		fields["direction"] = string(e.Fields.Direction)
	}
	if e.Fields.EntryPrice != nil {
		fields["entry_price"] = *e.Fields.EntryPrice
	}
	if e.Fields.EntryMin != nil {
		fields["entry_price_min"] = *e.Fields.EntryMin
	}
	if e.Fields.EntryMax != nil {
		fields["entry_price_max"] = *e.Fields.EntryMax
	}
	if e.Fields.StopLoss != nil {
		fields["stop_loss"] = *e.Fields.StopLoss
	}
	if len(e.Fields.TakeProfits) > 0 {
		fields["take_profits"] = e.Fields.TakeProfits
	}
	return ErrorRecord{
		MessageID:       e.MessageID,
		Channel:         e.Channel,
		Timestamp:       e.Timestamp,
		RawMessage:      e.RawMessage,
		ErrorReason:     e.ErrorReason,
		ExtractedFields: fields,
		OccurredAt:      e.OccurredAt,
	}
}
