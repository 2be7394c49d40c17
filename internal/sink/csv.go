// Package sink writes extraction outcomes to flat files: accepted signals
// to a CSV spreadsheet feed, rejections to a JSONL error log. Both sinks
// are append-only and best-effort; the archive ledger is the source of
// truth, these exist for eyeballing and spreadsheet import.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/extraction"
)

// csvHeader is the fixed column order. Existing files are appended to
// as-is, so the order must never change between versions.
var csvHeader = []string{
	"message_id", "channel", "timestamp", "symbol", "direction",
	"entry_price", "entry_price_min", "entry_price_max", "stop_loss",
	"take_profit_1", "take_profit_2", "take_profit_3", "take_profit_4",
	"confidence_score", "extraction_notes", "extracted_at",
}

// CSVWriter appends accepted signals to a CSV file, writing the header
// when it creates the file. Safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// NewCSVWriter creates the writer and the file (with header) if needed.
func NewCSVWriter(path string, log zerolog.Logger) (*CSVWriter, error) {
	w := &CSVWriter{
		path: path,
		log:  log.With().Str("component", "csv_sink").Logger(),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create CSV directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create CSV file %s: %w", path, err)
		}
		cw := csv.NewWriter(f)
		if err := cw.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write CSV header: %w", err)
		}
		cw.Flush()
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to close CSV file: %w", err)
		}
	}

	return w, nil
}

// WriteSignal appends one signal row.
func (w *CSVWriter) WriteSignal(rec extraction.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open CSV file %s: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	row := []string{
		strconv.FormatInt(rec.MessageID, 10),
		rec.Channel,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Symbol,
		rec.Direction,
		formatPrice(rec.EntryPrice),
		formatPrice(rec.EntryPriceMin),
		formatPrice(rec.EntryPriceMax),
		formatPrice(rec.StopLoss),
		formatPrice(rec.TakeProfit1),
		formatPrice(rec.TakeProfit2),
		formatPrice(rec.TakeProfit3),
		formatPrice(rec.TakeProfit4),
		strconv.FormatFloat(rec.ConfidenceScore, 'f', 2, 64),
		rec.ExtractionNotes,
		rec.ExtractedAt.UTC().Format(time.RFC3339),
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func formatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
