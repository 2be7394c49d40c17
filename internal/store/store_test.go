package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akaramanis/signalbridge/internal/extraction"
)

func testSignal(messageID int64, symbol string) *extraction.Signal {
	entry := 2000.0
	sl := 1995.0
	return &extraction.Signal{
		MessageID:       messageID,
		Channel:         "goldchannel",
		Timestamp:       time.Now().UTC(),
		Symbol:          symbol,
		Direction:       extraction.DirectionBuy,
		EntryPrice:      &entry,
		StopLoss:        &sl,
		TakeProfits:     []float64{2003, 2010},
		ConfidenceScore: 1.0,
		RawMessage:      "XAUUSD buy now @2000",
		ExtractedAt:     time.Now().UTC(),
	}
}

func testStore(t *testing.T, maxAge time.Duration) *Store {
	t.Helper()
	return New(Options{
		SnapshotPath: filepath.Join(t.TempDir(), "signals.json"),
		MaxAge:       maxAge,
		Log:          zerolog.New(nil).Level(zerolog.Disabled),
	})
}

func TestAdmit_Deduplicates(t *testing.T) {
	s := testStore(t, time.Hour)

	assert.True(t, s.Admit(testSignal(1, "XAUUSD")))
	assert.False(t, s.Admit(testSignal(1, "XAUUSD")), "same message id must be rejected")
	assert.True(t, s.Admit(testSignal(2, "XAUUSD")))
}

func TestAdmit_DedupSurvivesAcknowledge(t *testing.T) {
	s := testStore(t, time.Hour)

	require.True(t, s.Admit(testSignal(1, "XAUUSD")))
	require.True(t, s.Acknowledge("1"))

	// Re-processing the same message must not resurrect the signal.
	assert.False(t, s.Admit(testSignal(1, "XAUUSD")))
	status, ok := s.StatusOf("1")
	require.True(t, ok)
	assert.Equal(t, StatusAcknowledged, status)
}

func TestAcknowledge(t *testing.T) {
	s := testStore(t, time.Hour)

	assert.False(t, s.Acknowledge("99"), "unknown key")

	require.True(t, s.Admit(testSignal(7, "EURUSD")))
	assert.True(t, s.Acknowledge("7"))
	assert.True(t, s.Acknowledge("7"), "acknowledging twice is a no-op, not an error")

	status, ok := s.StatusOf("7")
	require.True(t, ok)
	assert.Equal(t, StatusAcknowledged, status)
}

func TestListPending(t *testing.T) {
	s := testStore(t, time.Hour)

	require.True(t, s.Admit(testSignal(1, "XAUUSD")))
	require.True(t, s.Admit(testSignal(2, "EURUSD")))
	require.True(t, s.Admit(testSignal(3, "XAUUSD")))
	require.True(t, s.Acknowledge("3"))

	all := s.ListPending("")
	assert.Len(t, all, 2)

	gold := s.ListPending("XAUUSD")
	require.Len(t, gold, 1)
	assert.Equal(t, "1", gold[0].MessageID)
	assert.Equal(t, "XAUUSD", gold[0].Symbol)
	assert.Equal(t, "BUY", gold[0].Direction)

	assert.Empty(t, s.ListPending("GBPUSD"))
}

func TestListPending_ExpiredHiddenBeforeSweep(t *testing.T) {
	s := testStore(t, 10*time.Millisecond)

	require.True(t, s.Admit(testSignal(1, "XAUUSD")))
	time.Sleep(25 * time.Millisecond)

	assert.Empty(t, s.ListPending(""), "aged-out signals must not be delivered even before the sweep runs")
}

func TestSweep(t *testing.T) {
	s := testStore(t, 10*time.Millisecond)

	require.True(t, s.Admit(testSignal(1, "XAUUSD")))
	require.True(t, s.Admit(testSignal(2, "EURUSD")))
	time.Sleep(25 * time.Millisecond)
	require.True(t, s.Admit(testSignal(3, "XAUUSD")))

	removed := s.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.Sweep(), "second sweep finds nothing")

	stats := s.Stats()
	assert.Equal(t, 1, stats.TotalSignals)
	assert.Equal(t, 2, stats.ExpiredTotal)

	_, ok := s.StatusOf("1")
	assert.False(t, ok, "swept signals are gone")
}

func TestStats(t *testing.T) {
	s := testStore(t, time.Hour)

	require.True(t, s.Admit(testSignal(1, "XAUUSD")))
	require.True(t, s.Admit(testSignal(2, "XAUUSD")))
	require.True(t, s.Admit(testSignal(3, "EURUSD")))
	require.True(t, s.Acknowledge("2"))

	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalSignals)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Acknowledged)
	assert.Equal(t, 1, stats.PendingBySymbol["XAUUSD"])
	assert.Equal(t, 1, stats.PendingBySymbol["EURUSD"])
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	log := zerolog.New(nil).Level(zerolog.Disabled)

	s1 := New(Options{SnapshotPath: path, MaxAge: time.Hour, Log: log})
	require.True(t, s1.Admit(testSignal(1, "XAUUSD")))
	require.True(t, s1.Admit(testSignal(2, "EURUSD")))
	require.True(t, s1.Acknowledge("1"))

	// A fresh store on the same snapshot sees the same state.
	s2 := New(Options{SnapshotPath: path, MaxAge: time.Hour, Log: log})

	status, ok := s2.StatusOf("1")
	require.True(t, ok)
	assert.Equal(t, StatusAcknowledged, status)

	pending := s2.ListPending("")
	require.Len(t, pending, 1)
	assert.Equal(t, "2", pending[0].MessageID)
	assert.Equal(t, "EURUSD", pending[0].Symbol)
	require.NotNil(t, pending[0].EntryPrice)
	assert.Equal(t, 2000.0, *pending[0].EntryPrice)
	assert.Equal(t, []float64{2003, 2010}, pending[0].TakeProfits)
}

func TestSnapshotLoad_DropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	log := zerolog.New(nil).Level(zerolog.Disabled)

	s1 := New(Options{SnapshotPath: path, MaxAge: 10 * time.Millisecond, Log: log})
	require.True(t, s1.Admit(testSignal(1, "XAUUSD")))
	time.Sleep(25 * time.Millisecond)

	s2 := New(Options{SnapshotPath: path, MaxAge: 10 * time.Millisecond, Log: log})
	_, ok := s2.StatusOf("1")
	assert.False(t, ok)
	assert.Equal(t, 1, s2.Stats().ExpiredTotal)
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := New(Options{
		SnapshotPath: path,
		MaxAge:       time.Hour,
		Log:          zerolog.New(nil).Level(zerolog.Disabled),
	})
	assert.Equal(t, 0, s.Stats().TotalSignals)
	assert.True(t, s.Admit(testSignal(1, "XAUUSD")), "store stays usable after a bad snapshot")
}
