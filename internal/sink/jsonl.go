package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/extraction"
)

// JSONLWriter appends extraction rejections to a JSON-lines file, one
// record per line. Safe for concurrent use.
type JSONLWriter struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// NewJSONLWriter creates the writer, ensuring the parent directory exists.
func NewJSONLWriter(path string, log zerolog.Logger) (*JSONLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}
	return &JSONLWriter{
		path: path,
		log:  log.With().Str("component", "jsonl_sink").Logger(),
	}, nil
}

// WriteError appends one rejection record.
func (w *JSONLWriter) WriteError(rec extraction.ErrorRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal error record: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log %s: %w", w.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append error record: %w", err)
	}
	return nil
}
