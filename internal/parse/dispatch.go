package parse

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"copbot/internal/domain"
)

// Dispatcher classifies raw messages and runs the matching format parser.
// It is a pure function of the message content plus the injected lexicon
// and rules; safe for unlimited concurrent use.
type Dispatcher struct {
	lex   *Lexicon
	rules Rules
	log   *slog.Logger
	now   func() time.Time
}

// NewDispatcher builds a dispatcher. A nil lexicon or logger falls back
// to the defaults.
func NewDispatcher(lex *Lexicon, rules Rules, logger *slog.Logger) *Dispatcher {
	if lex == nil {
		lex = DefaultLexicon()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(rules.FallbackRegions) == 0 && len(rules.ShiftRegions) == 0 {
		rules = DefaultRules()
	}
	return &Dispatcher{lex: lex, rules: rules, log: logger, now: time.Now}
}

// Process runs the classifier and the selected format parser over one
// message. It returns nil when the message is irrelevant or nothing could
// be extracted, a populated Result otherwise. A panicking parser is
// recovered into an error-tagged Result; Process never panics.
func (d *Dispatcher) Process(msg domain.Message) (res *domain.Result) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	kind := Classify(msg.Text)
	if kind == domain.KindUnknown {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			now := d.now()
			d.log.Error("parser recovered", "messageId", msg.ID, "kind", string(kind), "panic", fmt.Sprint(r))
			res = &domain.Result{Kind: kind, Failure: &domain.ParseFailure{
				ID:           fmt.Sprintf("erro_%s_%d", msg.ID, now.UnixMilli()),
				MessageID:    msg.ID,
				OriginalText: msg.Text,
				ErrorMessage: fmt.Sprint(r),
				ProcessedAt:  now,
			}}
		}
	}()

	switch kind {
	case domain.KindSummary:
		summary := d.parseSummary(msg)
		if summary == nil {
			d.log.Debug("summary discarded, nothing extracted", "messageId", msg.ID)
			return nil
		}
		return &domain.Result{Kind: kind, Summary: summary}

	case domain.KindAlert:
		return &domain.Result{Kind: kind, Alert: d.parseAlert(msg)}

	case domain.KindShiftDay, domain.KindShiftNight:
		alloc := d.parseShift(msg, kind)
		if alloc == nil {
			d.log.Debug("allocation discarded, nothing extracted", "messageId", msg.ID)
			return nil
		}
		return &domain.Result{Kind: kind, Allocation: alloc}
	}
	return nil
}

// mapAreas resolves raw region labels to panel areas, preserving first
// appearance order, and aggregates counts per area. Unmapped labels keep
// their counts in the raw breakdown but are skipped here.
func (d *Dispatcher) mapAreas(items map[string]int, order []string) ([]string, map[string]int) {
	var areas []string
	volume := make(map[string]int)
	for _, name := range orderedKeys(items, order) {
		area, ok := d.lex.Resolve(name)
		if !ok {
			d.log.Debug("region unmapped", "label", name)
			continue
		}
		if volume[area] == 0 {
			areas = append(areas, area)
		}
		volume[area] += items[name]
	}
	if len(volume) == 0 {
		return nil, nil
	}
	return areas, volume
}

func orderedKeys(items map[string]int, order []string) []string {
	if len(order) == len(items) {
		return order
	}
	keys := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, k := range order {
		if _, ok := items[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for k := range items {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}
