package extraction

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/config"
)

// RejectionError reports an extraction whose confidence fell below the
// configured threshold. The message is structurally fine, just too
// incomplete (or too contradictory) to trade on.
type RejectionError struct {
	Confidence float64
	Threshold  float64
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("confidence %.2f below threshold %.2f", e.Confidence, e.Threshold)
}

// Extractor is the full extraction pipeline for one message: pattern
// matching, pip resolution, confidence scoring, setup correction,
// validation, and the threshold gate. Stateless and safe for concurrent
// use once constructed.
type Extractor struct {
	matcher       *Matcher
	scorer        *Scorer
	corrector     *Corrector
	validator     *Validator
	minConfidence float64
	log           zerolog.Logger
}

// New builds an Extractor from the extraction policy.
func New(cfg config.Extraction, log zerolog.Logger) *Extractor {
	return &Extractor{
		matcher:       NewMatcher(cfg.SymbolAliases),
		scorer:        NewScorer(cfg.Weights, cfg.ChannelTrust),
		corrector:     NewCorrector(cfg.ContradictionPolicy),
		validator:     NewValidator(cfg.AllowedSymbols),
		minConfidence: cfg.MinConfidence,
		log:           log.With().Str("component", "extractor").Logger(),
	}
}

// IsSignal reports whether the message is worth extracting at all.
func (e *Extractor) IsSignal(text string) bool {
	return IsSignal(text)
}

// Extract runs the full pipeline over one message.
//
// On failure the error is one of *MissingFieldError or *MalformedRangeError
// (structural, the message cannot yield a signal) or *RejectionError (the
// extraction scored below the confidence threshold). Extraction is
// deterministic: the same text always yields the same result.
func (e *Extractor) Extract(text string, messageID int64, channel string, timestamp time.Time) (*Signal, error) {
	fields := e.matcher.Fields(text)

	var notes []string
	if fields.PipTarget != nil && len(fields.TakeProfits) == 0 && fields.Direction.Valid() {
		if entry, ok := fields.EntryReference(); ok {
			fields.TakeProfits = fields.PipTarget.Resolve(fields.Symbol, fields.Direction, entry)
			notes = append(notes, "take-profits resolved from pip offsets")
		}
	}

	confidence := e.scorer.Score(fields, channel)

	dir, confidence, corrNote := e.corrector.Correct(fields, confidence)
	fields.Direction = dir
	if corrNote != "" {
		notes = append(notes, corrNote)
	}

	warnings, err := e.validator.Validate(fields)
	if err != nil {
		return nil, err
	}
	notes = append(notes, warnings...)

	if confidence < e.minConfidence {
		e.log.Debug().
			Int64("message_id", messageID).
			Str("channel", channel).
			Float64("confidence", confidence).
			Msg("Extraction below confidence threshold")
		return nil, &RejectionError{Confidence: confidence, Threshold: e.minConfidence}
	}

	sig := &Signal{
		MessageID:       messageID,
		Channel:         channel,
		Timestamp:       timestamp,
		Symbol:          fields.Symbol,
		Direction:       fields.Direction,
		EntryPrice:      fields.EntryPrice,
		EntryPriceMin:   fields.EntryMin,
		EntryPriceMax:   fields.EntryMax,
		StopLoss:        fields.StopLoss,
		TakeProfits:     fields.TakeProfits,
		ConfidenceScore: confidence,
		RawMessage:      text,
		ExtractionNotes: strings.Join(notes, "; "),
		ExtractedAt:     time.Now().UTC(),
	}

	e.log.Debug().
		Int64("message_id", messageID).
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Float64("confidence", confidence).
		Msg("Signal extracted")

	return sig, nil
}

// Diagnose builds the diagnostic record for a message Extract rejected,
// re-running the pattern table to capture whatever partial fields it
// could still pull out.
func (e *Extractor) Diagnose(text string, messageID int64, channel string, timestamp time.Time, reason string) *ExtractionError {
	return &ExtractionError{
		MessageID:   messageID,
		Channel:     channel,
		Timestamp:   timestamp,
		RawMessage:  text,
		ErrorReason: reason,
		Fields:      e.matcher.Fields(text),
		OccurredAt:  time.Now().UTC(),
	}
}
