package extraction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Channel messages arrive with Unicode punctuation variants (fullwidth
// colons from mobile keyboards, en/em dashes, minus signs, non-breaking
// spaces). Every pattern is built from these classes so a fullwidth "：" or
// "＠" matches the same as its ASCII form.
const (
	dashClass  = `[-–—−]`
	colonClass = `[:：]`
	atClass    = `[@＠]`
	spaceClass = `[\s\x{00A0}]`
)

// signalKeywords gates extraction: a message containing none of these is
// not worth running the pattern table on.
var signalKeywords = []string{"buy", "sell", "entry", "tp", "sl", "stop", "target"}

// IsSignal reports whether text looks like it might contain a trading
// signal. Cheap substring scan, deliberately permissive; the extractor and
// the confidence gate do the real filtering.
func IsSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range signalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// patternTable holds the compiled, ordered pattern lists for each field.
// Within a field the first matching pattern wins (except numbered
// take-profits, which collect across all patterns), so more specific
// patterns come first.
type patternTable struct {
	symbol      []*regexp.Regexp
	direction   []*regexp.Regexp
	entryRange  []*regexp.Regexp
	entrySingle []*regexp.Regexp
	stopLoss    []*regexp.Regexp
	slNumbered  []*regexp.Regexp
	tpNumbered  []*regexp.Regexp
	tpSingle    []*regexp.Regexp
	tpPips      []*regexp.Regexp
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func newPatternTable() *patternTable {
	// Separator between a TP/SL ordinal and its price: a colon (optionally
	// followed by space) or at least one space. Requiring a separator keeps
	// "TP 30-100pips" from parsing as a numbered take-profit.
	sep := `(?:` + colonClass + spaceClass + `*|` + spaceClass + `+)`

	return &patternTable{
		symbol: compileAll(
			`(?i)\b(gold)\b`,
			`(?i)\b(xau/?usd)\b`,
			`\b([A-Z]{3}/?[A-Z]{3})\b`, // uppercase pairs only, or every six-letter word would match
		),
		direction: compileAll(
			`(?i)\b(buy|sell)`+spaceClass+`+now\b`,
			`(?i)\b(buy|sell)`+spaceClass+`+again\b`,
			`(?i)\b(buy|sell)`+spaceClass+`+gold\b`,
			`(?i)\b(buy|sell)\b`,
		),
		entryRange: compileAll(
			atClass+spaceClass+`*(\d+\.?\d*)`+dashClass+`(\d+\.?\d*)`,
			`(?i)\b(?:buy|sell)`+spaceClass+`+(?:now`+spaceClass+`+)?(?:again`+spaceClass+`+)?(\d+)`+spaceClass+`*`+dashClass+spaceClass+`*(\d+)`,
		),
		entrySingle: compileAll(
			atClass+spaceClass+`*(\d+\.?\d*)`,
			`(?i)\b(?:buy|sell)`+spaceClass+`+(\d+\.?\d*)`,
		),
		stopLoss: compileAll(
			`(?i)sl`+spaceClass+`*`+colonClass+spaceClass+`*(\d+\.?\d*)`,
			`(?i)\bsl`+spaceClass+`+(\d+\.?\d*)`,
			`(?i)si`+spaceClass+`*`+colonClass+spaceClass+`*(\d+\.?\d*)`, // OCR/typo variant of SL
			`(?i)\bsi`+spaceClass+`+(\d+\.?\d*)`,
			`(?i)stop\W*loss`+spaceClass+`*`+colonClass+`?`+spaceClass+`*(\d+\.?\d*)`,
			`(?i)stop`+spaceClass+`*`+colonClass+spaceClass+`*(\d+\.?\d*)`,
			`(?i)\bstop`+spaceClass+`+(\d+\.?\d*)`,
		),
		slNumbered: compileAll(
			`(?i)stop`+spaceClass+`*(\d+)`+sep+`(\d+\.?\d*)`,
			`(?i)\bsl`+spaceClass+`*(\d+)`+sep+`(\d+\.?\d*)`,
		),
		tpNumbered: compileAll(
			`(?i)tp`+spaceClass+`*(\d+)`+sep+`(\d+\.?\d*)`,
			`(?i)target`+spaceClass+`*(\d+)`+sep+`(\d+\.?\d*)`,
			`(?i)\bt`+spaceClass+`*(\d+)`+sep+`(\d+\.?\d*)`,
			`(?i)take\W*profit`+spaceClass+`*(\d+)`+sep+`(\d+\.?\d*)`,
		),
		tpSingle: compileAll(
			`(?i)\btp`+colonClass+spaceClass+`*(\d+\.?\d*)`,
			`(?i)\btarget`+colonClass+spaceClass+`*(\d+\.?\d*)`,
			`(?i)\bt`+colonClass+spaceClass+`*(\d+\.?\d*)`,
			`(?i)take\W*profit`+spaceClass+`*`+colonClass+`?`+spaceClass+`*(\d+\.?\d*)`,
		),
		tpPips: compileAll(
			`(?i)\btp`+spaceClass+`+(\d+)`+spaceClass+`*`+dashClass+spaceClass+`*(\d+)`+spaceClass+`*pips`,
			`(?i)\btp`+spaceClass+`+(\d+)`+spaceClass+`*pips`,
		),
	}
}

// Matcher runs the pattern table over message text and normalizes symbols
// via the alias table. Safe for concurrent use.
type Matcher struct {
	table   *patternTable
	aliases map[string]string
}

// NewMatcher builds a Matcher with the given symbol alias table.
func NewMatcher(aliases map[string]string) *Matcher {
	return &Matcher{table: newPatternTable(), aliases: aliases}
}

// NormalizeSymbol resolves a raw symbol mention through the alias table:
// exact match first, then case-insensitive, then uppercased as-is. The
// result is a fixed point: normalizing it again returns the same value.
func (m *Matcher) NormalizeSymbol(raw string) string {
	if norm, ok := m.aliases[raw]; ok {
		return norm
	}
	for alias, norm := range m.aliases {
		if strings.EqualFold(alias, raw) {
			return norm
		}
	}
	return strings.ToUpper(raw)
}

// Symbol extracts and normalizes the instrument symbol, or "" if none.
func (m *Matcher) Symbol(text string) string {
	for _, re := range m.table.symbol {
		if match := re.FindStringSubmatch(text); match != nil {
			return m.NormalizeSymbol(match[1])
		}
	}
	return ""
}

// Direction extracts the trade direction, or "" if none.
func (m *Matcher) Direction(text string) Direction {
	for _, re := range m.table.direction {
		if match := re.FindStringSubmatch(text); match != nil {
			return Direction(strings.ToUpper(match[1]))
		}
	}
	return ""
}

// Entry extracts the entry price. Range patterns are tried before single
// price patterns so "@4746.50-4750.50" never half-matches as "@4746.50".
// A single-price match whose number is immediately followed by a dash is
// skipped for the same reason. Range bounds are reordered so min <= max;
// sell signals often quote the range high to low.
func (m *Matcher) Entry(text string) (price, min, max *float64) {
	for _, re := range m.table.entryRange {
		if match := re.FindStringSubmatch(text); match != nil {
			lo := parsePrice(match[1])
			hi := parsePrice(match[2])
			if lo > hi {
				lo, hi = hi, lo
			}
			return nil, &lo, &hi
		}
	}
	for _, re := range m.table.entrySingle {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			end := idx[3] // end of the numeric capture
			if followedByDash(text, end) {
				continue
			}
			p := parsePrice(text[idx[2]:idx[3]])
			return &p, nil, nil
		}
	}
	return nil, nil, nil
}

// StopLoss extracts the stop-loss price, trying the unqualified forms
// before the numbered "SL1:"/"Stop 1:" variants.
func (m *Matcher) StopLoss(text string) *float64 {
	for _, re := range m.table.stopLoss {
		if match := re.FindStringSubmatch(text); match != nil {
			p := parsePrice(match[1])
			return &p
		}
	}
	for _, re := range m.table.slNumbered {
		if match := re.FindStringSubmatch(text); match != nil {
			p := parsePrice(match[2])
			return &p
		}
	}
	return nil
}

// TakeProfits extracts the take-profit ladder as absolute prices.
//
// Numbered targets ("tp1: 4730", "target 2 4720") are collected across all
// numbered patterns and ordered by their ordinal. Only when no numbered
// target matches is a single unnumbered target tried.
func (m *Matcher) TakeProfits(text string) []float64 {
	type numbered struct {
		n     int
		price float64
	}
	var found []numbered
	for _, re := range m.table.tpNumbered {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			found = append(found, numbered{n: n, price: parsePrice(match[2])})
		}
	}
	if len(found) > 0 {
		sort.SliceStable(found, func(i, j int) bool { return found[i].n < found[j].n })
		out := make([]float64, 0, len(found))
		for _, f := range found {
			out = append(out, f.price)
		}
		return out
	}

	for _, re := range m.table.tpSingle {
		if match := re.FindStringSubmatch(text); match != nil {
			return []float64{parsePrice(match[1])}
		}
	}
	return nil
}

// PipTargets extracts a pip-offset take-profit spec like "TP 30-100pips"
// or "TP 50pips". Used only when no absolute take-profit was found; the
// offsets are resolved against the entry price later. Like entry ranges,
// the pair is reordered so the smaller offset comes first.
func (m *Matcher) PipTargets(text string) *PipTarget {
	if match := m.table.tpPips[0].FindStringSubmatch(text); match != nil {
		lo, err1 := strconv.Atoi(match[1])
		hi, err2 := strconv.Atoi(match[2])
		if err1 == nil && err2 == nil {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &PipTarget{MinPips: lo, MaxPips: &hi}
		}
	}
	if match := m.table.tpPips[1].FindStringSubmatch(text); match != nil {
		if pips, err := strconv.Atoi(match[1]); err == nil {
			return &PipTarget{MinPips: pips}
		}
	}
	return nil
}

// Fields runs the full pattern table over one message.
func (m *Matcher) Fields(text string) Fields {
	f := Fields{
		Symbol:    m.Symbol(text),
		Direction: m.Direction(text),
		StopLoss:  m.StopLoss(text),
	}
	f.EntryPrice, f.EntryMin, f.EntryMax = m.Entry(text)
	f.TakeProfits = m.TakeProfits(text)
	if len(f.TakeProfits) == 0 {
		f.PipTarget = m.PipTargets(text)
	}
	return f
}

func parsePrice(s string) float64 {
	// Patterns only capture \d+\.?\d* so this cannot fail on matched input.
	v, _ := strconv.ParseFloat(strings.TrimSuffix(s, "."), 64)
	return v
}

var dashRunes = map[rune]bool{'-': true, '–': true, '—': true, '−': true}

func followedByDash(text string, at int) bool {
	if at >= len(text) {
		return false
	}
	for _, r := range text[at:] {
		return dashRunes[r]
	}
	return false
}
