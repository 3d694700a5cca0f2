package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// Tally is a parsed "name: count" list: the items in first-appearance
// order, their sum, and the name of the section-isolation strategy that
// matched (so tests can assert on the cascade without scraping logs).
type Tally struct {
	Items    map[string]int
	Order    []string
	Total    int
	Strategy string
}

// Empty reports whether nothing was extracted.
func (t *Tally) Empty() bool {
	return t == nil || len(t.Items) == 0
}

// sectionEmojis lists the glyphs observed in front of each section header
// across message-format revisions.
var sectionEmojis = map[string][]string{
	"Totais por Cluster": {"🏢", "📍", "🗺️"},
	"Cluster":            {"🏢", "📍", "🗺️"},
	"CLUSTER":            {"🏢", "📍", "🗺️"},
	"Por Cluster":        {"🏢", "📍", "🗺️"},
	"Totais por Status":  {"📌", "📊", "✅"},
	"Status":             {"📌", "📊", "✅"},
	"Totais por Sintoma": {"🧪", "⚠️", "🔍"},
	"Sintoma":            {"🧪", "⚠️", "🔍"},
}

var (
	// Boundary between emoji-headed sections.
	nextEmojiSectionRe = regexp.MustCompile("\n[📊🏢📂🍃🔍📍🗓️🚨📌🧪⚠️✅]+\\s*[^\n:]+:")
	nextBoldSectionRe  = regexp.MustCompile(`(?i)\n\*\*[A-ZÁÉÍÓÚÂÊÎÔÛÃÕÇ][A-ZÁÉÍÓÚÂÊÎÔÛÃÕÇA-Z\s/]*:\*\*`)
	nextHeadingRe      = regexp.MustCompile(`(?i)\n(?:#+\s*[A-ZÁÉÍÓÚ]|\*\*[A-ZÁÉÍÓÚ])`)
	plainLabelRe       = regexp.MustCompile(`^[A-ZÁÉÍÓÚ]+:`)
	bareLabelRe        = regexp.MustCompile(`^[A-ZÁÉÍÓÚ]+:?$`)

	leadEmojiRe = regexp.MustCompile(`^[^\w\sÀ-ÿ]+\s*`)

	itemDashColonRe  = regexp.MustCompile(`^[-•]\s*(.+?):\s*(\d+)\s*$`)
	itemNumberedRe   = regexp.MustCompile(`^\d+\.\s*(.+?):\s*(\d+)\s*$`)
	itemDashDashRe   = regexp.MustCompile(`^[-•]\s*(.+?)\s*-\s*(\d+)\s*$`)
	itemParenRe      = regexp.MustCompile(`^[-•]\s*(.+?)\s*\((\d+)\)\s*$`)
	itemBareColonRe  = regexp.MustCompile(`^(.+?):\s*(\d+)\s*$`)
	itemBareDashRe   = regexp.MustCompile(`^(.+?)\s*-\s*(\d+)\s*$`)
	numberedPrefixRe = regexp.MustCompile(`^\d+\.`)
	colonCountTailRe = regexp.MustCompile(`:\s*\d+\s*$`)
	dashCountTailRe  = regexp.MustCompile(`-\s*\d+\s*$`)
)

// sectionStrategy isolates the text block of a named section. Strategies
// run in order until one yields content; a single mega-regex cannot cover
// the format drift observed across message revisions.
type sectionStrategy struct {
	name    string
	isolate func(text, section string) (string, bool)
}

var sectionStrategies = []sectionStrategy{
	{"emoji", isolateEmojiHeader},
	{"bold", isolateBoldHeader},
	{"heading", isolateMarkdownHeading},
	{"plain", isolatePlainHeader},
	{"line", isolateByLineEquality},
}

// ExtractSectionList locates the named section inside the message and
// parses its bulleted "name: count" lines. Returns nil when no strategy
// finds the section or when nothing parseable remains inside it.
func ExtractSectionList(text, section string) *Tally {
	if text == "" || section == "" {
		return nil
	}
	for _, strat := range sectionStrategies {
		content, ok := strat.isolate(text, section)
		if !ok {
			continue
		}
		tally := parseItemLines(content)
		if tally.Empty() {
			continue
		}
		tally.Strategy = strat.name
		return tally
	}
	return nil
}

// isolateEmojiHeader matches "🏢 Totais por Cluster:" style headers;
// content runs to the next emoji-headed section or end of text.
func isolateEmojiHeader(text, section string) (string, bool) {
	for _, emoji := range sectionEmojis[section] {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(emoji) + `\s*[^\n]*` + regexp.QuoteMeta(section) + `[^\n]*:\s*\n`)
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		rest := text[loc[1]:]
		if next := nextEmojiSectionRe.FindStringIndex(rest); next != nil {
			rest = rest[:next[0]]
		}
		return rest, true
	}
	return "", false
}

// isolateBoldHeader matches "**SECTION:**"; content runs to the next bold
// all-caps header line.
func isolateBoldHeader(text, section string) (string, bool) {
	re := regexp.MustCompile(`(?i)\*\*` + regexp.QuoteMeta(section) + `:\*\*`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if next := nextBoldSectionRe.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest, true
}

// isolateMarkdownHeading matches "## SECTION"; content runs to the next
// heading or bold header.
func isolateMarkdownHeading(text, section string) (string, bool) {
	re := regexp.MustCompile(`(?i)#+\s*` + regexp.QuoteMeta(section) + `:?\s*\n`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if next := nextHeadingRe.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest, true
}

// isolatePlainHeader matches a bare "SECTION:" line; content runs to the
// next all-caps "LABEL:" line or end of text.
func isolatePlainHeader(text, section string) (string, bool) {
	re := regexp.MustCompile(`(?im)^` + regexp.QuoteMeta(section) + `:\s*$`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := strings.TrimPrefix(text[loc[1]:], "\n")
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		if plainLabelRe.MatchString(strings.TrimSpace(line)) {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// isolateByLineEquality scans line by line (after stripping markdown
// marks) for a line exactly equal to the section name, with or without a
// trailing colon. Content is everything until another bare label line
// that is not a bullet.
func isolateByLineEquality(text, section string) (string, bool) {
	lines := strings.Split(text, "\n")
	upper := strings.ToUpper(section)
	start := -1
	for i, line := range lines {
		clean := strings.ToUpper(strings.TrimSpace(strings.NewReplacer("#", "", "*", "").Replace(line)))
		if clean == upper || clean == upper+":" {
			start = i + 1
			break
		}
	}
	if start <= 0 || start >= len(lines) {
		return "", false
	}
	var content []string
	for _, line := range lines[start:] {
		clean := strings.TrimSpace(strings.NewReplacer("#", "", "*", "").Replace(line))
		if bareLabelRe.MatchString(strings.ToUpper(clean)) && !strings.HasPrefix(strings.TrimSpace(line), "-") {
			break
		}
		content = append(content, line)
	}
	if len(content) == 0 {
		return "", false
	}
	return strings.Join(content, "\n"), true
}

// parseItemLines walks the isolated block and extracts "name: count"
// entries, tolerating several bullet glyphs, numbered lists, parenthesized
// counts and leading emoji. Entries with empty names or non-positive
// counts are discarded; duplicate names keep their first position with
// the last value.
func parseItemLines(content string) *Tally {
	tally := &Tally{Items: make(map[string]int)}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || !isCandidateItemLine(line) {
			continue
		}
		noEmoji := strings.TrimSpace(leadEmojiRe.ReplaceAllString(line, ""))

		var m []string
		for _, attempt := range []struct {
			re *regexp.Regexp
			in string
		}{
			{itemDashColonRe, line},
			{itemNumberedRe, line},
			{itemDashDashRe, line},
			{itemParenRe, line},
			{itemBareColonRe, noEmoji},
			{itemBareDashRe, noEmoji},
		} {
			if m = attempt.re.FindStringSubmatch(attempt.in); m != nil {
				break
			}
		}
		if m == nil {
			continue
		}

		name := strings.TrimSpace(leadEmojiRe.ReplaceAllString(m[1], ""))
		count, _ := strconv.Atoi(m[2])
		if name == "" || count <= 0 {
			continue
		}
		if _, seen := tally.Items[name]; !seen {
			tally.Order = append(tally.Order, name)
		}
		tally.Items[name] = count
	}

	for _, v := range tally.Items {
		tally.Total += v
	}
	return tally
}

func isCandidateItemLine(line string) bool {
	return strings.HasPrefix(line, "-") ||
		strings.HasPrefix(line, "•") ||
		numberedPrefixRe.MatchString(line) ||
		colonCountTailRe.MatchString(line) ||
		leadEmojiRe.MatchString(line) ||
		dashCountTailRe.MatchString(line)
}
