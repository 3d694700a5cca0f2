package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateFullRe   = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	dateShortRe  = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
	volumeKeepRe = regexp.MustCompile(`[^\d.,]`)
	labelLineRe  = regexp.MustCompile(`(?i)^[A-ZÁÉÍÓÚÂÊÎÔÛÃÕÇ]+\s*:`)
)

// ExtractField returns the value of the first line matching "KEY: value",
// case-insensitive, tolerating space around the colon. Empty string when
// the field is absent.
func ExtractField(text, key string) string {
	if text == "" || key == "" {
		return ""
	}
	re := regexp.MustCompile(`(?im)^\s*` + regexp.QuoteMeta(key) + `\s*:\s*(.+)$`)
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ExtractMultilineField captures a field whose value continues on the
// following lines (e.g. a free-text description), stopping at the next
// "LABEL:"-shaped line. Lines are joined with newlines and trimmed.
func ExtractMultilineField(text, key string) string {
	if text == "" || key == "" {
		return ""
	}
	start := regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(key) + `\s*:`)

	var value []string
	found := false
	for _, line := range strings.Split(text, "\n") {
		if !found {
			if start.MatchString(line) {
				found = true
				if rest := strings.TrimSpace(start.ReplaceAllString(line, "")); rest != "" {
					value = append(value, rest)
				}
			}
			continue
		}
		clean := strings.TrimSpace(leadEmojiRe.ReplaceAllString(strings.TrimSpace(line), ""))
		if labelLineRe.MatchString(clean) {
			break
		}
		value = append(value, line)
	}
	if len(value) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(value, "\n"))
}

// ExtractFieldWithEmoji extracts "📌 Label: value" style fields, trying in
// order: emoji + bold label, emoji + plain label, bold label without
// emoji, then a plain multiline "label: value". Several candidate emoji
// may mark the same semantic field across message-format revisions.
func ExtractFieldWithEmoji(text string, emojis []string, label string) string {
	if text == "" || label == "" {
		return ""
	}
	quoted := regexp.QuoteMeta(label)
	for _, emoji := range emojis {
		qe := regexp.QuoteMeta(emoji)
		if m := regexp.MustCompile(`(?i)` + qe + `\s*\*\*` + quoted + `:\*\*\s*(.+)`).FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
		if m := regexp.MustCompile(`(?i)` + qe + `\s*` + quoted + `:\s*(.+)`).FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := regexp.MustCompile(`(?im)\*\*` + quoted + `:\*\*\s*(.+)`).FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := regexp.MustCompile(`(?im)^\s*` + quoted + `:\s*(.+)`).FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ExtractDate finds a dd/mm/yyyy date (day and month zero-padded on
// output) or a bare dd/mm, completed with the year of now. Empty string
// when no date-shaped token exists.
func ExtractDate(text string, now time.Time) string {
	if text == "" {
		return ""
	}
	if m := dateFullRe.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s/%s/%s", pad2(m[1]), pad2(m[2]), m[3])
	}
	if m := dateShortRe.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s/%s/%d", pad2(m[1]), pad2(m[2]), now.Year())
	}
	return ""
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ExtractVolume parses a numeric quantity out of free text, keeping only
// digits and decimal separators and treating a single comma as the
// decimal point.
func ExtractVolume(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	clean := volumeKeepRe.ReplaceAllString(text, "")
	clean = strings.Replace(clean, ",", ".", 1)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
