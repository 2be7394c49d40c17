// Package pipeline connects the message source to the extraction engine
// and fans accepted signals out to the delivery store, the archive ledger,
// and the CSV sink. Messages are processed strictly in arrival order by a
// single worker, so extraction results are reproducible per channel.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/extraction"
	"github.com/akaramanis/signalbridge/internal/store"
)

// Message is one raw chat message handed to the pipeline.
type Message struct {
	Text      string
	MessageID int64
	Channel   string
	Timestamp time.Time
}

// Archiver persists extraction outcomes to the ledger.
type Archiver interface {
	SaveSignal(rec extraction.Record) error
	SaveError(rec extraction.ErrorRecord) error
}

// SignalSink receives accepted signals (the CSV feed).
type SignalSink interface {
	WriteSignal(rec extraction.Record) error
}

// ErrorSink receives rejection records (the JSONL error log).
type ErrorSink interface {
	WriteError(rec extraction.ErrorRecord) error
}

// Processor is the single pipeline worker.
type Processor struct {
	extractor *extraction.Extractor
	store     *store.Store
	archive   Archiver
	signals   SignalSink
	errors    ErrorSink
	in        <-chan Message
	log       zerolog.Logger
}

// Config wires a Processor. Archive and the sinks may be nil, in which
// case that output is skipped.
type Config struct {
	Extractor *extraction.Extractor
	Store     *store.Store
	Archive   Archiver
	Signals   SignalSink
	Errors    ErrorSink
	In        <-chan Message
	Log       zerolog.Logger
}

// New creates a Processor.
func New(cfg Config) *Processor {
	return &Processor{
		extractor: cfg.Extractor,
		store:     cfg.Store,
		archive:   cfg.Archive,
		signals:   cfg.Signals,
		errors:    cfg.Errors,
		in:        cfg.In,
		log:       cfg.Log.With().Str("component", "pipeline").Logger(),
	}
}

// Run consumes messages until the context is cancelled. Sink failures are
// logged and never stop the pipeline: a full disk must not take down
// signal delivery.
func (p *Processor) Run(ctx context.Context) {
	p.log.Info().Msg("Pipeline started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Pipeline stopped")
			return
		case msg := <-p.in:
			p.Process(msg)
		}
	}
}

// Process runs one message through extraction and fan-out. Exported so
// tests and backfills can drive the pipeline synchronously.
func (p *Processor) Process(msg Message) {
	sig, err := p.extractor.Extract(msg.Text, msg.MessageID, msg.Channel, msg.Timestamp)
	if err != nil {
		p.reject(msg, err)
		return
	}

	if !p.store.Admit(sig) {
		p.log.Debug().
			Int64("message_id", msg.MessageID).
			Str("channel", msg.Channel).
			Msg("Duplicate signal ignored")
		return
	}

	rec := sig.Record()
	if p.archive != nil {
		if err := p.archive.SaveSignal(rec); err != nil {
			p.log.Error().Err(err).Int64("message_id", msg.MessageID).Msg("Failed to archive signal")
		}
	}
	if p.signals != nil {
		if err := p.signals.WriteSignal(rec); err != nil {
			p.log.Error().Err(err).Int64("message_id", msg.MessageID).Msg("Failed to write signal to CSV")
		}
	}
}

func (p *Processor) reject(msg Message, cause error) {
	var rej *extraction.RejectionError
	reason := cause.Error()
	if errors.As(cause, &rej) {
		p.log.Info().
			Int64("message_id", msg.MessageID).
			Str("channel", msg.Channel).
			Float64("confidence", rej.Confidence).
			Msg("Message rejected below confidence threshold")
	} else {
		p.log.Info().
			Int64("message_id", msg.MessageID).
			Str("channel", msg.Channel).
			Str("reason", reason).
			Msg("Message rejected")
	}

	errRec := p.extractor.Diagnose(msg.Text, msg.MessageID, msg.Channel, msg.Timestamp, reason).Record()
	if p.archive != nil {
		if err := p.archive.SaveError(errRec); err != nil {
			p.log.Error().Err(err).Int64("message_id", msg.MessageID).Msg("Failed to archive rejection")
		}
	}
	if p.errors != nil {
		if err := p.errors.WriteError(errRec); err != nil {
			p.log.Error().Err(err).Int64("message_id", msg.MessageID).Msg("Failed to write rejection to error log")
		}
	}
}
