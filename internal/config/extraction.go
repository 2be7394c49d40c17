package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ContradictionPolicy decides what happens when take-profits sit on both
// sides of the entry and the setup cannot be reconciled.
type ContradictionPolicy string

const (
	// ContradictionZero zeroes the confidence so the threshold gate rejects the signal.
	ContradictionZero ContradictionPolicy = "zero"
	// ContradictionKeep keeps direction and confidence untouched and only records a note.
	ContradictionKeep ContradictionPolicy = "keep"
)

// Weights holds the per-field confidence weights. The sum does not have to
// be 1.0, but the canonical configuration targets 1.0 total.
type Weights struct {
	Symbol     float64 `koanf:"symbol"`
	Direction  float64 `koanf:"direction"`
	Entry      float64 `koanf:"entry"`
	StopLoss   float64 `koanf:"stop_loss"`
	TakeProfit float64 `koanf:"take_profit"`
	Channel    float64 `koanf:"channel"`
}

// Extraction holds the extraction policy: confidence threshold and weights,
// symbol normalization aliases, per-channel trust multipliers, and the list
// of source channels to monitor. Loaded from a YAML file, validated once.
type Extraction struct {
	MinConfidence       float64             `koanf:"min_confidence"`
	Weights             Weights             `koanf:"weights"`
	SymbolAliases       map[string]string   `koanf:"symbol_aliases"`
	ChannelTrust        map[string]float64  `koanf:"channel_trust"`
	ContradictionPolicy ContradictionPolicy `koanf:"contradiction_policy"`
	AllowedSymbols      []string            `koanf:"allowed_symbols"`
	Channels            []string            `koanf:"channels"`
}

// DefaultExtraction returns the built-in extraction policy. The alias table
// and weights mirror the channel formats the pattern table was built for.
func DefaultExtraction() Extraction {
	return Extraction{
		MinConfidence: 0.75,
		Weights: Weights{
			Symbol:     0.25,
			Direction:  0.25,
			Entry:      0.20,
			StopLoss:   0.15,
			TakeProfit: 0.15,
			Channel:    0.0,
		},
		SymbolAliases: map[string]string{
			"GOLD":    "XAUUSD",
			"Gold":    "XAUUSD",
			"XAU/USD": "XAUUSD",
			"XAUUSD":  "XAUUSD",
			"EUR/USD": "EURUSD",
			"EURUSD":  "EURUSD",
			"GBP/USD": "GBPUSD",
			"GBPUSD":  "GBPUSD",
			"BTC/USD": "BTCUSD",
			"BTCUSD":  "BTCUSD",
		},
		ChannelTrust:        map[string]float64{},
		ContradictionPolicy: ContradictionZero,
		AllowedSymbols: []string{
			"XAUUSD", "EURUSD", "GBPUSD", "BTCUSD",
			"USDJPY", "AUDUSD", "USDCAD", "NZDUSD", "USDCHF",
		},
	}
}

// LoadExtraction loads the extraction policy from a YAML file, falling back
// to the built-in defaults when the file does not exist. Values present in
// the file override defaults field by field.
func LoadExtraction(path string) (Extraction, error) {
	cfg := DefaultExtraction()

	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Extraction{}, fmt.Errorf("failed to read extraction config %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return Extraction{}, fmt.Errorf("failed to parse extraction config %s: %w", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Extraction{}, fmt.Errorf("failed to unmarshal extraction config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Extraction{}, fmt.Errorf("invalid extraction config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the extraction policy once at construction so the
// extraction pipeline never has to re-check it per message.
func (e *Extraction) Validate() error {
	if e.MinConfidence < 0 || e.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %v", e.MinConfidence)
	}
	for name, w := range map[string]float64{
		"symbol":      e.Weights.Symbol,
		"direction":   e.Weights.Direction,
		"entry":       e.Weights.Entry,
		"stop_loss":   e.Weights.StopLoss,
		"take_profit": e.Weights.TakeProfit,
		"channel":     e.Weights.Channel,
	} {
		if w < 0 {
			return fmt.Errorf("weight %q must be non-negative, got %v", name, w)
		}
	}
	for channel, trust := range e.ChannelTrust {
		if trust < 0 {
			return fmt.Errorf("channel_trust[%q] must be non-negative, got %v", channel, trust)
		}
	}
	switch e.ContradictionPolicy {
	case ContradictionZero, ContradictionKeep:
	case "":
		e.ContradictionPolicy = ContradictionZero
	default:
		return fmt.Errorf("unknown contradiction_policy %q", e.ContradictionPolicy)
	}
	return nil
}
