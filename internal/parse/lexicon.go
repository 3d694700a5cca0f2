package parse

import "strings"

// AreaMapping binds one normalized region-name variant to a canonical
// panel area code. Order matters: the substring fallback walks the table
// in insertion order and returns the first hit.
type AreaMapping struct {
	Variant string `yaml:"variant"`
	Area    string `yaml:"area"`
}

// Canonical panel areas used by the dashboard.
const (
	AreaRio    = "RIO"
	AreaMGESBA = "MG/ES/BA"
	AreaCONONE = "CO/NO/NE"
)

// Lexicon maps free-text region labels (full names, abbreviations, state
// codes, accented and garbled spellings) to panel areas. Read-only after
// construction; safe for concurrent use.
type Lexicon struct {
	entries []AreaMapping
	exact   map[string]string
	typos   map[string]string
}

// NewLexicon builds a lexicon from an ordered variant table and a table of
// known typo corrections (applied to the raw label before lookup). Variant
// keys are normalized on insertion so config files may carry accents.
func NewLexicon(table []AreaMapping, typos map[string]string) *Lexicon {
	lex := &Lexicon{
		exact: make(map[string]string, len(table)),
		typos: make(map[string]string, len(typos)),
	}
	for _, m := range table {
		key := Normalize(m.Variant)
		if key == "" || m.Area == "" {
			continue
		}
		if _, dup := lex.exact[key]; !dup {
			lex.entries = append(lex.entries, AreaMapping{Variant: key, Area: m.Area})
			lex.exact[key] = m.Area
		}
	}
	for from, to := range typos {
		lex.typos[Normalize(from)] = to
	}
	return lex
}

// CorrectLabel applies known typo corrections to a raw region label,
// returning the corrected spelling (or the trimmed input unchanged).
func (l *Lexicon) CorrectLabel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if fixed, ok := l.typos[Normalize(trimmed)]; ok {
		return fixed
	}
	return trimmed
}

// Resolve maps a raw region label to a canonical panel area. It tries an
// exact lookup on the normalized, typo-corrected label, then falls back to
// substring containment in both directions over the table in insertion
// order. Returns ("", false) when no variant matches; the caller keeps the
// raw label and its count but omits it from area aggregation.
func (l *Lexicon) Resolve(raw string) (string, bool) {
	key := Normalize(l.CorrectLabel(raw))
	if key == "" {
		return "", false
	}
	if area, ok := l.exact[key]; ok {
		return area, true
	}
	// Permissive containment fallback. Two-letter state codes are exact
	// match only, they collide with too many unrelated words; insertion
	// order keeps the result reproducible.
	for _, m := range l.entries {
		if len(m.Variant) < 3 {
			continue
		}
		if strings.Contains(key, m.Variant) || strings.Contains(m.Variant, key) {
			return m.Area, true
		}
	}
	return "", false
}

// DefaultAreaTable returns the curated variant table of the production
// deployment. Longer, more specific variants come before short state
// codes so the containment fallback prefers them.
func DefaultAreaTable() []AreaMapping {
	return []AreaMapping{
		// RIO, including the combined Rio / Espírito Santo cluster.
		{"rio capital", AreaRio},
		{"grande rio", AreaRio},
		{"rio / espirito santo", AreaRio},
		{"rio/espirito santo", AreaRio},
		{"rio de janeiro / espirito santo", AreaRio},
		{"rio de janeiro/espirito santo", AreaRio},
		{"rio de janeiro", AreaRio},
		{"rio", AreaRio},
		{"rj", AreaRio},

		// MG/ES/BA: Minas Gerais, Espírito Santo, Bahia/Sergipe.
		{"vitoria", AreaMGESBA},
		{"minas gerais", AreaMGESBA},
		{"minas", AreaMGESBA},
		{"mg", AreaMGESBA},
		{"espirito santo", AreaMGESBA},
		{"es", AreaMGESBA},
		{"bahia / sergipe", AreaMGESBA},
		{"bahia/sergipe", AreaMGESBA},
		{"bahia", AreaMGESBA},
		{"sergipe", AreaMGESBA},
		{"ba", AreaMGESBA},
		{"se", AreaMGESBA},

		// CO/NO/NE: Centro-Oeste, Norte, Nordeste.
		{"centro oeste", AreaCONONE},
		{"centro-oeste", AreaCONONE},
		{"centrooeste", AreaCONONE},
		{"co", AreaCONONE},
		{"norte", AreaCONONE},
		{"no", AreaCONONE},
		{"nordeste", AreaCONONE},
		{"ne", AreaCONONE},
		{"goias", AreaCONONE},
		{"go", AreaCONONE},
		{"mato grosso", AreaCONONE},
		{"mt", AreaCONONE},
		{"mato grosso do sul", AreaCONONE},
		{"ms", AreaCONONE},
		{"distrito federal", AreaCONONE},
		{"df", AreaCONONE},
		{"tocantins", AreaCONONE},
		{"to", AreaCONONE},
		{"amazonas", AreaCONONE},
		{"am", AreaCONONE},
		{"para", AreaCONONE},
		{"pa", AreaCONONE},
		{"acre", AreaCONONE},
		{"ac", AreaCONONE},
		{"rondonia", AreaCONONE},
		{"ro", AreaCONONE},
		{"roraima", AreaCONONE},
		{"rr", AreaCONONE},
		{"amapa", AreaCONONE},
		{"ap", AreaCONONE},
		{"pernambuco", AreaCONONE},
		{"pe", AreaCONONE},
		{"alagoas", AreaCONONE},
		{"al", AreaCONONE},
		{"paraiba", AreaCONONE},
		{"pb", AreaCONONE},
		{"rio grande do norte", AreaCONONE},
		{"rn", AreaCONONE},
		{"ceara", AreaCONONE},
		{"ce", AreaCONONE},
		{"piaui", AreaCONONE},
		{"pi", AreaCONONE},
		{"maranhao", AreaCONONE},
		{"ma", AreaCONONE},
	}
}

// DefaultTypoCorrections returns the cluster-name garbles seen in real
// messages, applied before lexicon lookup.
func DefaultTypoCorrections() map[string]string {
	return map[string]string{
		"MINAS GERAISTE": "MINAS GERAIS",
		"MINAS GERASTE":  "MINAS GERAIS",
		"MINAS GERASI":   "MINAS GERAIS",
		"BAHIA / SERGIPE": "BAHIA/SERGIPE",
		"BAHIA/ SERGIPE":  "BAHIA/SERGIPE",
		"BAHIA /SERGIPE":  "BAHIA/SERGIPE",
	}
}

// DefaultLexicon builds the lexicon of the production deployment.
func DefaultLexicon() *Lexicon {
	return NewLexicon(DefaultAreaTable(), DefaultTypoCorrections())
}
