package parse

import (
	"strings"

	"copbot/internal/domain"
)

// Summary format names, in sniffing order.
const (
	FormatEnterprise    = "empresarial"
	FormatStructured    = "estruturado"
	FormatEmojiSummary  = "resumo"
	FormatEmojiIncident = "incidente"
	FormatLegacy        = "legado"
)

// Classify decides which message family a raw message belongs to by
// inspecting its first line (with markdown bold stripped for a secondary
// comparison) and, for shift allocations, the whole text. Matching is
// accent- and case-insensitive. Always returns exactly one Kind; never
// fails.
func Classify(text string) domain.Kind {
	if strings.TrimSpace(text) == "" {
		return domain.KindUnknown
	}

	firstLine := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	noBold := strings.ReplaceAll(firstLine, "**", "")
	normFirst := Normalize(strings.ReplaceAll(noBold, "*", ""))

	// Incident-summary banners: "COP REDE INFORMA", "📢 COP REDE -
	// INFORMA", and the enterprise "COP REDE INF:" variant.
	if strings.Contains(normFirst, "cop rede informa") ||
		strings.Contains(normFirst, "cop rede - informa") ||
		strings.Contains(normFirst, "cop rede inf") {
		return domain.KindSummary
	}

	if strings.Contains(normFirst, "novo evento detectado") ||
		strings.Contains(firstLine, "🚨") ||
		strings.Contains(firstLine, "🚧") {
		return domain.KindAlert
	}

	norm := Normalize(text)
	if strings.Contains(norm, "alocacao") && strings.Contains(norm, "hub") {
		if strings.Contains(norm, "diurno") {
			return domain.KindShiftDay
		}
		if strings.Contains(norm, "madrugada") {
			return domain.KindShiftNight
		}
	}

	return domain.KindUnknown
}

// summaryFormat sniffs which of the summary layouts a KindSummary message
// uses. Checked newest-first: the structured 2026 layout, the emoji
// summary-with-sections layout, the emoji single-incident layout, then
// the legacy plain-section layout.
func summaryFormat(text string) string {
	firstLine := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	normFirst := Normalize(strings.ReplaceAll(firstLine, "*", ""))
	if strings.Contains(normFirst, "cop rede inf") && !strings.Contains(normFirst, "informa") {
		return FormatEnterprise
	}
	if strings.Contains(text, "📢 COP REDE - INFORMA") || strings.Contains(text, "Totais por Cluster") {
		return FormatStructured
	}
	for _, marker := range []string{"📊", "🏢", "📍", "📂", "🍃", "🔍"} {
		if strings.Contains(text, marker) {
			return FormatEmojiSummary
		}
	}
	if strings.Contains(text, "🔴") || strings.Contains(text, "📝") ||
		(strings.Contains(text, "⚠") && strings.Contains(text, "Grupo:")) {
		return FormatEmojiIncident
	}
	return FormatLegacy
}
