package sink

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akaramanis/signalbridge/internal/extraction"
)

func testRecord() extraction.Record {
	entry := 2000.0
	tp1 := 2003.0
	return extraction.Record{
		MessageID:       1,
		Channel:         "goldchannel",
		Timestamp:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Symbol:          "XAUUSD",
		Direction:       "BUY",
		EntryPrice:      &entry,
		TakeProfit1:     &tp1,
		ConfidenceScore: 0.93,
		RawMessage:      "XAUUSD buy now @2000\ntp1: 2003",
		ExtractedAt:     time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC),
	}
}

func TestCSVWriter_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log := zerolog.New(nil).Level(zerolog.Disabled)

	w, err := NewCSVWriter(path, log)
	require.NoError(t, err)
	require.NoError(t, w.WriteSignal(testRecord()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	row := rows[1]
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "goldchannel", row[1])
	assert.Equal(t, "XAUUSD", row[3])
	assert.Equal(t, "BUY", row[4])
	assert.Equal(t, "2000", row[5])
	assert.Equal(t, "", row[6], "unset prices stay empty")
	assert.Equal(t, "2003", row[9])
	assert.Equal(t, "0.93", row[13])
}

func TestCSVWriter_AppendsWithoutDuplicateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	log := zerolog.New(nil).Level(zerolog.Disabled)

	w1, err := NewCSVWriter(path, log)
	require.NoError(t, err)
	require.NoError(t, w1.WriteSignal(testRecord()))

	// A second writer on an existing file must not rewrite the header.
	w2, err := NewCSVWriter(path, log)
	require.NoError(t, err)
	require.NoError(t, w2.WriteSignal(testRecord()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "message_id"))
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(string(data)), "\n")))
}

func TestJSONLWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.jsonl")
	log := zerolog.New(nil).Level(zerolog.Disabled)

	w, err := NewJSONLWriter(path, log)
	require.NoError(t, err)

	rec := extraction.ErrorRecord{
		MessageID:       5,
		Channel:         "fxchannel",
		Timestamp:       time.Now().UTC(),
		RawMessage:      "buy now",
		ErrorReason:     "missing required field: symbol",
		ExtractedFields: map[string]any{"direction": "BUY"},
		OccurredAt:      time.Now().UTC(),
	}
	require.NoError(t, w.WriteError(rec))
	require.NoError(t, w.WriteError(rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var got extraction.ErrorRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, int64(5), got.MessageID)
	assert.Equal(t, "missing required field: symbol", got.ErrorReason)
	assert.Equal(t, "BUY", got.ExtractedFields["direction"])
}
