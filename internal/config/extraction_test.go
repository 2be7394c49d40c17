package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExtraction(t *testing.T) {
	cfg := DefaultExtraction()

	assert.Equal(t, 0.75, cfg.MinConfidence)
	assert.Equal(t, 0.25, cfg.Weights.Symbol)
	assert.Equal(t, 0.25, cfg.Weights.Direction)
	assert.Equal(t, 0.20, cfg.Weights.Entry)
	assert.Equal(t, 0.15, cfg.Weights.StopLoss)
	assert.Equal(t, 0.15, cfg.Weights.TakeProfit)
	assert.Equal(t, "XAUUSD", cfg.SymbolAliases["GOLD"])
	assert.Equal(t, ContradictionZero, cfg.ContradictionPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadExtraction_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadExtraction(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultExtraction().MinConfidence, cfg.MinConfidence)
}

func TestLoadExtraction_OverridesFieldByField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extraction.yaml")
	yaml := `
min_confidence: 0.6
contradiction_policy: keep
weights:
  symbol: 0.3
channel_trust:
  goldchannel: 1.0
  sketchy: 0.4
channels:
  - goldchannel
  - fxchannel
symbol_aliases:
  SILVER: XAGUSD
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadExtraction(path)
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.MinConfidence)
	assert.Equal(t, ContradictionKeep, cfg.ContradictionPolicy)
	assert.Equal(t, 0.3, cfg.Weights.Symbol)
	// Untouched weights keep their defaults.
	assert.Equal(t, 0.25, cfg.Weights.Direction)
	assert.Equal(t, 0.4, cfg.ChannelTrust["sketchy"])
	assert.Equal(t, []string{"goldchannel", "fxchannel"}, cfg.Channels)
	assert.Equal(t, "XAGUSD", cfg.SymbolAliases["SILVER"])
}

func TestLoadExtraction_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extraction.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- bad"), 0644))

	_, err := LoadExtraction(path)
	assert.Error(t, err)
}

func TestExtractionValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Extraction)
		wantErr bool
	}{
		{"defaults valid", func(e *Extraction) {}, false},
		{"threshold above one", func(e *Extraction) { e.MinConfidence = 1.5 }, true},
		{"negative weight", func(e *Extraction) { e.Weights.Entry = -0.1 }, true},
		{"negative trust", func(e *Extraction) { e.ChannelTrust = map[string]float64{"x": -1} }, true},
		{"unknown policy", func(e *Extraction) { e.ContradictionPolicy = "explode" }, true},
		{"empty policy defaults to zero", func(e *Extraction) { e.ContradictionPolicy = "" }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultExtraction()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("SIGNALBRIDGE_DATA_DIR", dataDir)
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_SIGNAL_AGE_HOURS", "48")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("TELEGRAM_CHANNELS", "goldchannel, fxsignals")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 48, cfg.MaxSignalAgeHours)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, filepath.Join(dataDir, "signals.json"), cfg.SnapshotPath)
	assert.Equal(t, []string{"goldchannel", "fxsignals"}, cfg.TelegramChannels)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Port: 4726, MaxSignalAgeHours: 24}
	assert.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Port = 4726
	cfg.MaxSignalAgeHours = 0
	assert.Error(t, cfg.Validate())
}
