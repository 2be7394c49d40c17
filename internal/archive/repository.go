// Package archive persists every extraction outcome to the SQLite ledger:
// accepted signals and rejected messages alike. The delivery store forgets
// signals once they expire; the archive never does.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/database"
	"github.com/akaramanis/signalbridge/internal/extraction"
)

// InitSchema creates the archive tables if they don't exist. Tables and
// indexes are created in one transaction so a crash mid-init never leaves
// a table without its indexes.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL,
		channel TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL,
		entry_price_min REAL,
		entry_price_max REAL,
		stop_loss REAL,
		take_profit_1 REAL,
		take_profit_2 REAL,
		take_profit_3 REAL,
		take_profit_4 REAL,
		confidence_score REAL NOT NULL,
		raw_message TEXT NOT NULL,
		extraction_notes TEXT,
		extracted_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_signals_message_id ON signals(message_id);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	CREATE INDEX IF NOT EXISTS idx_signals_extracted_at ON signals(extracted_at);

	CREATE TABLE IF NOT EXISTS extraction_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL,
		channel TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		raw_message TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		extracted_fields TEXT,
		occurred_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_extraction_errors_channel ON extraction_errors(channel);
	CREATE INDEX IF NOT EXISTS idx_extraction_errors_occurred_at ON extraction_errors(occurred_at);
	`

	return database.WithTransaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(schema); err != nil {
			return fmt.Errorf("failed to create archive schema: %w", err)
		}
		return nil
	})
}

// Repository handles archive database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new archive repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "archive").Logger(),
	}
}

// SaveSignal appends an accepted signal to the ledger
func (r *Repository) SaveSignal(rec extraction.Record) error {
	query := `
		INSERT INTO signals (
			message_id, channel, timestamp, symbol, direction,
			entry_price, entry_price_min, entry_price_max, stop_loss,
			take_profit_1, take_profit_2, take_profit_3, take_profit_4,
			confidence_score, raw_message, extraction_notes, extracted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		rec.MessageID, rec.Channel, rec.Timestamp, rec.Symbol, rec.Direction,
		rec.EntryPrice, rec.EntryPriceMin, rec.EntryPriceMax, rec.StopLoss,
		rec.TakeProfit1, rec.TakeProfit2, rec.TakeProfit3, rec.TakeProfit4,
		rec.ConfidenceScore, rec.RawMessage, rec.ExtractionNotes, rec.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive signal %d: %w", rec.MessageID, err)
	}

	return nil
}

// SaveError appends a rejected message to the ledger. The partial fields
// are stored as a JSON blob since their shape varies per rejection.
func (r *Repository) SaveError(rec extraction.ErrorRecord) error {
	fields, err := json.Marshal(rec.ExtractedFields)
	if err != nil {
		return fmt.Errorf("failed to marshal extracted fields: %w", err)
	}

	query := `
		INSERT INTO extraction_errors (
			message_id, channel, timestamp, raw_message,
			error_reason, extracted_fields, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		rec.MessageID, rec.Channel, rec.Timestamp, rec.RawMessage,
		rec.ErrorReason, string(fields), rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive extraction error for %d: %w", rec.MessageID, err)
	}

	return nil
}

// RecentSignals returns the most recently archived signals, newest first
func (r *Repository) RecentSignals(limit int) ([]extraction.Record, error) {
	query := `
		SELECT message_id, channel, timestamp, symbol, direction,
		       entry_price, entry_price_min, entry_price_max, stop_loss,
		       take_profit_1, take_profit_2, take_profit_3, take_profit_4,
		       confidence_score, raw_message, extraction_notes, extracted_at
		FROM signals
		ORDER BY extracted_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent signals: %w", err)
	}
	defer rows.Close()

	var records []extraction.Record
	for rows.Next() {
		var rec extraction.Record
		var notes sql.NullString
		err := rows.Scan(
			&rec.MessageID, &rec.Channel, &rec.Timestamp, &rec.Symbol, &rec.Direction,
			&rec.EntryPrice, &rec.EntryPriceMin, &rec.EntryPriceMax, &rec.StopLoss,
			&rec.TakeProfit1, &rec.TakeProfit2, &rec.TakeProfit3, &rec.TakeProfit4,
			&rec.ConfidenceScore, &rec.RawMessage, &notes, &rec.ExtractedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}
		rec.ExtractionNotes = notes.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RecentErrors returns the most recently archived rejections, newest first
func (r *Repository) RecentErrors(limit int) ([]extraction.ErrorRecord, error) {
	query := `
		SELECT message_id, channel, timestamp, raw_message,
		       error_reason, extracted_fields, occurred_at
		FROM extraction_errors
		ORDER BY occurred_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent errors: %w", err)
	}
	defer rows.Close()

	var records []extraction.ErrorRecord
	for rows.Next() {
		var rec extraction.ErrorRecord
		var fields sql.NullString
		err := rows.Scan(
			&rec.MessageID, &rec.Channel, &rec.Timestamp, &rec.RawMessage,
			&rec.ErrorReason, &fields, &rec.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan error row: %w", err)
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &rec.ExtractedFields); err != nil {
				r.log.Warn().Err(err).Int64("message_id", rec.MessageID).Msg("Corrupt extracted_fields blob")
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountSignals returns the total number of archived signals
func (r *Repository) CountSignals() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM signals").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

// CountErrors returns the total number of archived rejections
func (r *Repository) CountErrors() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM extraction_errors").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count extraction errors: %w", err)
	}
	return count, nil
}

// SignalsSince returns signals extracted after the given time, oldest first
func (r *Repository) SignalsSince(since time.Time) ([]extraction.Record, error) {
	query := `
		SELECT message_id, channel, timestamp, symbol, direction,
		       entry_price, entry_price_min, entry_price_max, stop_loss,
		       take_profit_1, take_profit_2, take_profit_3, take_profit_4,
		       confidence_score, raw_message, extraction_notes, extracted_at
		FROM signals
		WHERE extracted_at >= ?
		ORDER BY extracted_at ASC
	`

	rows, err := r.db.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals since %s: %w", since, err)
	}
	defer rows.Close()

	var records []extraction.Record
	for rows.Next() {
		var rec extraction.Record
		var notes sql.NullString
		err := rows.Scan(
			&rec.MessageID, &rec.Channel, &rec.Timestamp, &rec.Symbol, &rec.Direction,
			&rec.EntryPrice, &rec.EntryPriceMin, &rec.EntryPriceMax, &rec.StopLoss,
			&rec.TakeProfit1, &rec.TakeProfit2, &rec.TakeProfit3, &rec.TakeProfit4,
			&rec.ConfidenceScore, &rec.RawMessage, &notes, &rec.ExtractedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}
		rec.ExtractionNotes = notes.String
		records = append(records, rec)
	}

	return records, rows.Err()
}
