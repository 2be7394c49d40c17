// Package store holds extracted signals through their delivery lifecycle:
// admitted as pending, handed out to pollers, acknowledged by consumers,
// and swept once they age out. Every mutation is persisted synchronously
// to a JSON snapshot so a restart never re-delivers an acknowledged signal.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/extraction"
)

// Status is the delivery state of a stored signal.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
)

// snapshotVersion guards the on-disk format. Snapshots with a different
// version are ignored rather than misread.
const snapshotVersion = 1

// Options configures a Store.
type Options struct {
	SnapshotPath string        // JSON snapshot file; parent dir is created on demand
	MaxAge       time.Duration // signals older than this are expired
	Log          zerolog.Logger
}

// Entry is the wire shape of a pending signal handed to pollers.
type Entry struct {
	MessageID   string    `json:"message_id"`
	Channel     string    `json:"channel"`
	Symbol      string    `json:"symbol"`
	Direction   string    `json:"direction"`
	EntryPrice  *float64  `json:"entry_price"`
	EntryMin    *float64  `json:"entry_price_min"`
	EntryMax    *float64  `json:"entry_price_max"`
	StopLoss    *float64  `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"`
	Confidence  float64   `json:"confidence_score"`
	Timestamp   time.Time `json:"timestamp"`
}

// Stats is the aggregate view served by GET /stats.
type Stats struct {
	TotalSignals    int            `json:"total"`
	Pending         int            `json:"pending"`
	Acknowledged    int            `json:"acknowledged"`
	ExpiredTotal    int            `json:"expired_total"`
	PendingBySymbol map[string]int `json:"pending_by_symbol"`
}

type stored struct {
	signal         *extraction.Signal
	status         Status
	createdAt      time.Time
	acknowledgedAt *time.Time
}

// Store is the in-memory signal registry backed by a JSON snapshot. All
// methods are safe for concurrent use; snapshot writes happen inside the
// critical section so the file always reflects a consistent state.
type Store struct {
	mu           sync.Mutex
	signals      map[string]*stored
	expiredTotal int

	snapshotPath string
	maxAge       time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

// New creates a Store and loads the snapshot at opts.SnapshotPath if one
// exists. Entries already past MaxAge are dropped during load. A corrupt
// or unreadable snapshot is logged and skipped, never fatal: losing the
// pending set is recoverable, refusing to start is not.
func New(opts Options) *Store {
	s := &Store{
		signals:      make(map[string]*stored),
		snapshotPath: opts.SnapshotPath,
		maxAge:       opts.MaxAge,
		log:          opts.Log.With().Str("component", "signal_store").Logger(),
		now:          time.Now,
	}
	s.load()
	return s
}

// Key returns the dedup/acknowledge key for a signal.
func Key(sig *extraction.Signal) string {
	return strconv.FormatInt(sig.MessageID, 10)
}

// Admit adds a signal as pending. Returns false without any side effect
// when a signal with the same key is already present in any state, so a
// re-processed message can never resurrect an acknowledged signal.
func (s *Store) Admit(sig *extraction.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(sig)
	if _, exists := s.signals[key]; exists {
		return false
	}
	s.signals[key] = &stored{
		signal:    sig,
		status:    StatusPending,
		createdAt: s.now().UTC(),
	}
	s.persistLocked()

	s.log.Info().
		Str("message_id", key).
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Float64("confidence", sig.ConfidenceScore).
		Msg("Signal admitted")
	return true
}

// Acknowledge marks a pending signal as consumed. Returns false when the
// key is unknown or already expired out of the store; acknowledging an
// already-acknowledged signal is a no-op that still returns true.
func (s *Store) Acknowledge(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.signals[key]
	if !ok {
		return false
	}
	if entry.status == StatusAcknowledged {
		return true
	}
	now := s.now().UTC()
	entry.status = StatusAcknowledged
	entry.acknowledgedAt = &now
	s.persistLocked()

	s.log.Info().Str("message_id", key).Msg("Signal acknowledged")
	return true
}

// ListPending returns pending, unexpired signals ordered by admission
// time, optionally filtered by normalized symbol. Expiry is evaluated
// against MaxAge on read, so a signal never appears in a poll response
// after its deadline even if the sweep has not run yet.
func (s *Store) ListPending(symbol string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-s.maxAge)
	type keyed struct {
		entry     Entry
		createdAt time.Time
	}
	var out []keyed
	for key, st := range s.signals {
		if st.status != StatusPending || st.createdAt.Before(cutoff) {
			continue
		}
		if symbol != "" && st.signal.Symbol != symbol {
			continue
		}
		out = append(out, keyed{entry: toEntry(key, st.signal), createdAt: st.createdAt})
	}
	// Oldest first, stable for pollers that page by count.
	sort.SliceStable(out, func(i, j int) bool { return out[i].createdAt.Before(out[j].createdAt) })
	entries := make([]Entry, 0, len(out))
	for _, k := range out {
		entries = append(entries, k.entry)
	}
	return entries
}

// StatusOf returns the current status of a key.
func (s *Store) StatusOf(key string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.signals[key]
	if !ok {
		return "", false
	}
	return entry.status, true
}

// Sweep removes every signal older than MaxAge regardless of status and
// returns how many were removed. Persists once when anything changed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-s.maxAge)
	removed := 0
	for key, st := range s.signals {
		if st.createdAt.Before(cutoff) {
			delete(s.signals, key)
			removed++
		}
	}
	if removed > 0 {
		s.expiredTotal += removed
		s.persistLocked()
		s.log.Info().Int("removed", removed).Msg("Expired signals swept")
	}
	return removed
}

// Stats returns the aggregate lifecycle counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalSignals:    len(s.signals),
		ExpiredTotal:    s.expiredTotal,
		PendingBySymbol: map[string]int{},
	}
	cutoff := s.now().UTC().Add(-s.maxAge)
	for _, st := range s.signals {
		switch st.status {
		case StatusAcknowledged:
			stats.Acknowledged++
		case StatusPending:
			if st.createdAt.Before(cutoff) {
				continue
			}
			stats.Pending++
			stats.PendingBySymbol[st.signal.Symbol]++
		}
	}
	return stats
}

func toEntry(key string, sig *extraction.Signal) Entry {
	return Entry{
		MessageID:   key,
		Channel:     sig.Channel,
		Symbol:      sig.Symbol,
		Direction:   string(sig.Direction),
		EntryPrice:  sig.EntryPrice,
		EntryMin:    sig.EntryPriceMin,
		EntryMax:    sig.EntryPriceMax,
		StopLoss:    sig.StopLoss,
		TakeProfits: sig.TakeProfits,
		Confidence:  sig.ConfidenceScore,
		Timestamp:   sig.Timestamp,
	}
}

// snapshot file format

type snapshotEntry struct {
	Signal         extraction.Record `json:"signal"`
	Status         Status            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
}

type snapshotFile struct {
	Version      int                      `json:"version"`
	UpdatedAt    time.Time                `json:"updated_at"`
	ExpiredTotal int                      `json:"expired_total"`
	Signals      map[string]snapshotEntry `json:"signals"`
}

// persistLocked writes the snapshot. Callers must hold s.mu. Failures are
// logged and swallowed: delivery keeps working from memory and the next
// mutation retries the write.
func (s *Store) persistLocked() {
	if s.snapshotPath == "" {
		return
	}
	snap := snapshotFile{
		Version:      snapshotVersion,
		UpdatedAt:    s.now().UTC(),
		ExpiredTotal: s.expiredTotal,
		Signals:      make(map[string]snapshotEntry, len(s.signals)),
	}
	for key, st := range s.signals {
		snap.Signals[key] = snapshotEntry{
			Signal:         st.signal.Record(),
			Status:         st.status,
			CreatedAt:      st.createdAt,
			AcknowledgedAt: st.acknowledgedAt,
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0755); err != nil {
		s.log.Error().Err(err).Msg("Failed to create snapshot directory")
		return
	}
	// Write-then-rename keeps a crash from truncating the previous snapshot.
	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		s.log.Error().Err(err).Msg("Failed to write snapshot")
		return
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		s.log.Error().Err(err).Msg("Failed to replace snapshot")
	}
}

func (s *Store) load() {
	if s.snapshotPath == "" {
		return
	}
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.snapshotPath).Msg("Failed to read snapshot, starting empty")
		}
		return
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn().Err(err).Str("path", s.snapshotPath).Msg("Corrupt snapshot, starting empty")
		return
	}
	if snap.Version != snapshotVersion {
		s.log.Warn().
			Int("version", snap.Version).
			Int("expected", snapshotVersion).
			Msg("Unsupported snapshot version, starting empty")
		return
	}

	cutoff := s.now().UTC().Add(-s.maxAge)
	dropped := 0
	s.expiredTotal = snap.ExpiredTotal
	for key, se := range snap.Signals {
		if se.CreatedAt.Before(cutoff) {
			dropped++
			continue
		}
		s.signals[key] = &stored{
			signal:         extraction.SignalFromRecord(se.Signal),
			status:         se.Status,
			createdAt:      se.CreatedAt,
			acknowledgedAt: se.AcknowledgedAt,
		}
	}
	s.expiredTotal += dropped
	s.log.Info().
		Int("loaded", len(s.signals)).
		Int("dropped_expired", dropped).
		Msg("Snapshot loaded")
}
