package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"copbot/internal/domain"
)

var (
	boldSpanRe   = regexp.MustCompile(`\*([^*]+)\*`)
	italicSpanRe = regexp.MustCompile(`_([^_]+)_`)

	generatedAtRe = regexp.MustCompile(`(?i)(?:🗓\x{FE0F}?\s*)?Gerado em:\s*(\d{2}/\d{2}/\d{4})\s*às?\s*(\d{2}:\d{2})`)
	updatedAtRe   = regexp.MustCompile(`ATUALIZADO:\s*(\d{2}/\d{2}/\d{4})\s+(\d{2}:\d{2})`)

	emojiSectionHeadRe = regexp.MustCompile(`\n[📊🏢📂🍃🔍📍🗓️🚨─]+\s*[A-ZÁÉÍÓÚ]`)

	impactRecRe = regexp.MustCompile(`(?i)REC\s*(\d+)`)
	impactRalRe = regexp.MustCompile(`(?i)RAL\s*(\d+)`)

	ralTotalRe = regexp.MustCompile(`RAL:\s*(\d+)`)
	recTotalRe = regexp.MustCompile(`REC:\s*(\d+)`)

	enterpriseBulletSpacedRe = regexp.MustCompile(`^[*•\-]\s+(.+?):\s*(\d+)\s*$`)
	enterpriseBulletTightRe  = regexp.MustCompile(`^\*(.+?):\s*(\d+)\s*$`)
)

// parseSummary sniffs the concrete summary layout and delegates. Returns
// nil when the record would carry no breakdown at all.
func (d *Dispatcher) parseSummary(msg domain.Message) *domain.IncidentSummary {
	format := summaryFormat(msg.Text)
	d.log.Debug("summary format sniffed", "messageId", msg.ID, "format", format)

	var summary *domain.IncidentSummary
	switch format {
	case FormatEnterprise:
		summary = d.parseEnterpriseSummary(msg)
	case FormatStructured:
		summary = d.parseStructuredSummary(msg)
	case FormatEmojiSummary:
		summary = d.parseEmojiSummary(msg)
	case FormatEmojiIncident:
		summary = d.parseEmojiIncident(msg)
	default:
		summary = d.parseLegacySummary(msg)
	}
	if summary == nil || summaryEmpty(summary) {
		return nil
	}
	summary.Format = format
	return summary
}

func summaryEmpty(s *domain.IncidentSummary) bool {
	if len(s.Regions) > 0 || s.Detail != nil {
		return false
	}
	for _, b := range s.Breakdowns {
		if len(b) > 0 {
			return false
		}
	}
	return s.TotalEvents == 0
}

func (d *Dispatcher) newSummary(msg domain.Message) *domain.IncidentSummary {
	now := d.now()
	return &domain.IncidentSummary{
		ID:           fmt.Sprintf("cop_%s_%d", msg.ID, now.UnixMilli()),
		MessageID:    msg.ID,
		ReceivedAt:   msg.ReceivedAt,
		ProcessedAt:  now,
		Breakdowns:   make(map[string]map[string]int),
		Regions:      make(map[string]int),
		OriginalText: msg.Text,
	}
}

// parseLegacySummary handles the oldest layout: plain-text sections
// (MERCADO/TIPO/NATUREZA/SINTOMA/GRUPO) and flat "KEY: value" fields.
func (d *Dispatcher) parseLegacySummary(msg domain.Message) *domain.IncidentSummary {
	s := d.newSummary(msg)
	text := msg.Text

	sections := map[string]*Tally{
		"mercado":  ExtractSectionList(text, "MERCADO"),
		"tipo":     ExtractSectionList(text, "TIPO"),
		"natureza": ExtractSectionList(text, "NATUREZA"),
		"sintoma":  ExtractSectionList(text, "SINTOMA"),
	}
	grupo := ExtractSectionList(text, "GRUPO")

	// Flat fields of the one-incident legacy shape.
	tipoField := ExtractField(text, "TIPO")
	grupoField := ExtractField(text, "GRUPO")
	diaField := ExtractField(text, "DIA")
	responsavel := ExtractField(text, "RESPONSAVEL")
	if responsavel == "" {
		responsavel = ExtractField(text, "RESPONSÁVEL")
	}
	volume := 0
	if v, ok := ExtractVolume(ExtractField(text, "VOLUME")); ok {
		volume = int(v)
	}

	for name, tally := range sections {
		if !tally.Empty() {
			s.Breakdowns[name] = tally.Items
		}
	}

	if !grupo.Empty() {
		s.Regions = grupo.Items
		s.RegionOrder = grupo.Order
	} else if grupoField != "" {
		count := volume
		if count <= 0 {
			count = 1
		}
		s.Regions = map[string]int{grupoField: count}
		s.RegionOrder = []string{grupoField}
	}

	switch {
	case volume > 0:
		s.TotalEvents = volume
	case !sections["mercado"].Empty():
		s.TotalEvents = sections["mercado"].Total
	case !sections["tipo"].Empty():
		s.TotalEvents = sections["tipo"].Total
	default:
		for _, v := range s.Regions {
			s.TotalEvents += v
		}
	}

	tipoTally := sections["tipo"]
	if tipoTally.Empty() && tipoField != "" {
		count := s.TotalEvents
		if count <= 0 {
			count = 1
		}
		tipoTally = &Tally{
			Items: map[string]int{tipoField: count},
			Order: []string{tipoField},
			Total: count,
		}
		s.Breakdowns["tipo"] = tipoTally.Items
	}

	if diaField != "" {
		s.GeneratedAt = ExtractDate(diaField, d.now())
	}

	s.Areas, s.VolumeByArea = d.mapAreas(s.Regions, s.RegionOrder)
	s.Description = describeBreakdowns([]labeledItems{
		{label: "Tipos", tally: tipoTally},
		{label: "Sintomas", tally: sections["sintoma"]},
		{label: "Responsável", value: responsavel},
	})
	return s
}

// parseEmojiSummary handles the WhatsApp summary layout: emoji-headed
// sections with one "emoji name: count" line per entry.
func (d *Dispatcher) parseEmojiSummary(msg domain.Message) *domain.IncidentSummary {
	s := d.newSummary(msg)

	// Strip *bold* and _italic_ markers first.
	clean := italicSpanRe.ReplaceAllString(boldSpanRe.ReplaceAllString(msg.Text, "$1"), "$1")

	if m := generatedAtRe.FindStringSubmatch(clean); m != nil {
		s.GeneratedAt = m[1] + " " + m[2]
	}

	mercado := extractEmojiSection(clean, "MERCADO")
	tipo := extractEmojiSection(clean, "TIPO")
	natureza := extractEmojiSection(clean, "NATUREZA")
	sintoma := extractEmojiSection(clean, "SINTOMA")
	grupo := extractEmojiSection(clean, "GRUPO")

	for name, tally := range map[string]*Tally{
		"mercado": mercado, "tipo": tipo, "natureza": natureza, "sintoma": sintoma,
	} {
		if !tally.Empty() {
			s.Breakdowns[name] = tally.Items
		}
	}
	if !grupo.Empty() {
		s.Regions = grupo.Items
		s.RegionOrder = grupo.Order
	}

	switch {
	case !grupo.Empty():
		s.TotalEvents = grupo.Total
	case !mercado.Empty():
		s.TotalEvents = mercado.Total
	case !tipo.Empty():
		s.TotalEvents = tipo.Total
	}

	s.Areas, s.VolumeByArea = d.mapAreas(s.Regions, s.RegionOrder)
	s.Description = describeBreakdowns([]labeledItems{
		{label: "Tipos", tally: tipo},
		{label: "Sintomas", tally: sintoma},
	})
	return s
}

// extractEmojiSection isolates a "🏢 MERCADO:" style section and parses
// its "emoji name: count" lines.
func extractEmojiSection(text, section string) *Tally {
	re := regexp.MustCompile(`(?i)[📊🏢📂🍃🔍📍🗓️🚨]+\s*` + regexp.QuoteMeta(section) + `[^:\n]*:\s*\n`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	rest := text[loc[1]:]
	if next := emojiSectionHeadRe.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}

	tally := &Tally{Items: make(map[string]int), Strategy: "emoji"}
	for _, raw := range strings.Split(rest, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		noEmoji := strings.TrimSpace(leadEmojiRe.ReplaceAllString(line, ""))
		m := itemBareColonRe.FindStringSubmatch(noEmoji)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
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

// parseEmojiIncident handles the single-incident WhatsApp layout (🔴
// title plus one emoji-tagged field per line).
func (d *Dispatcher) parseEmojiIncident(msg domain.Message) *domain.IncidentSummary {
	s := d.newSummary(msg)
	text := msg.Text

	title := extractEmojiLine(text, "🔴", "")
	if title == "" {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if strings.Contains(line, "COP REDE INFORMA") && i+1 < len(lines) {
				title = strings.TrimSpace(strings.TrimLeft(lines[i+1], "🔴🟠🟡🟢⚪* \t"))
				break
			}
		}
	}

	detail := &domain.IncidentDetail{
		Title:       title,
		Reference:   extractEmojiLine(text, "📝", "REC/RAL", "RAL", "REC"),
		OpenedAt:    extractEmojiLine(text, "🕒", "Horário de Abertura", "Horario de Abertura", "Abertura"),
		City:        extractEmojiLine(text, "🌎", "Cidade", "Local"),
		ReceivedAt:  extractEmojiLine(text, "⏳", "Horário de Recebimento", "Recebimento"),
		Designation: extractEmojiLine(text, "✍", "Designação", "Designacao"),
		Impact:      extractEmojiLine(text, "💥", "Impacto"),
		Status:      extractEmojiLine(text, "📜", "Status"),
	}
	cluster := extractEmojiLine(text, "⚠", "Grupo", "Cluster")

	if detail.Impact != "" {
		if m := impactRecRe.FindStringSubmatch(detail.Impact); m != nil {
			detail.ImpactREC, _ = strconv.Atoi(m[1])
		}
		if m := impactRalRe.FindStringSubmatch(detail.Impact); m != nil {
			detail.ImpactRAL, _ = strconv.Atoi(m[1])
		}
	}

	if title == "" && cluster == "" && detail.Reference == "" && detail.Impact == "" {
		return nil
	}
	s.Detail = detail

	total := detail.ImpactREC + detail.ImpactRAL
	if total == 0 {
		total = 1
	}
	s.TotalEvents = total

	if cluster != "" {
		s.Regions = map[string]int{cluster: total}
		s.RegionOrder = []string{cluster}
	}
	if detail.City != "" {
		s.Breakdowns["mercado"] = map[string]int{detail.City: 1}
	}
	if title != "" {
		short := title
		if len(short) > 50 {
			short = short[:50]
		}
		s.Breakdowns["tipo"] = map[string]int{short: 1}
	}

	s.Areas, s.VolumeByArea = d.mapAreas(s.Regions, s.RegionOrder)

	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	if detail.Status != "" {
		parts = append(parts, "Status: "+detail.Status)
	}
	if detail.Impact != "" {
		parts = append(parts, "Impacto: "+detail.Impact)
	}
	s.Description = strings.Join(parts, " | ")
	return s
}

// extractEmojiLine extracts the value after "emoji label:" for any of the
// candidate labels, falling back to the text following the bare emoji.
func extractEmojiLine(text, emoji string, labels ...string) string {
	qe := regexp.QuoteMeta(emoji) + `\x{FE0F}?`
	for _, label := range labels {
		if label == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + qe + `\s*` + regexp.QuoteMeta(label) + `[:\s]+([^\n]+)`)
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	re := regexp.MustCompile(qe + `\s*([^\n]+)`)
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// parseStructuredSummary handles the newest layout ("📢 COP REDE -
// INFORMA") with emoji-tagged header fields and "Totais por X" sections,
// plus a whole-message region scan when no cluster section parses.
func (d *Dispatcher) parseStructuredSummary(msg domain.Message) *domain.IncidentSummary {
	s := d.newSummary(msg)
	text := msg.Text

	tipo := ExtractFieldWithEmoji(text, []string{"🏷️", "🏷"}, "TIPO")
	if tipo == "" {
		tipo = ExtractFieldWithEmoji(text, []string{"🏷️", "🏷"}, "Tipo")
	}
	for _, label := range []string{"Horário de envio", "Horario de envio", "Data"} {
		if s.GeneratedAt = ExtractFieldWithEmoji(text, []string{"🕒", "⏰", "🕐"}, label); s.GeneratedAt != "" {
			break
		}
	}
	var volumeTotal int
	for _, label := range []string{"Volume Total", "Total"} {
		if raw := ExtractFieldWithEmoji(text, []string{"📊", "📈"}, label); raw != "" {
			if v, ok := ExtractVolume(raw); ok {
				volumeTotal = int(v)
				break
			}
		}
	}

	cluster := firstSection(text, "Totais por Cluster", "Cluster", "CLUSTER", "Por Cluster")
	status := firstSection(text, "Totais por Status", "Status")
	sintoma := firstSection(text, "Totais por Sintoma", "Sintoma")
	incidentes24h := firstSection(text, "Incidentes >24h por Cluster", "Incidentes 24h")

	if cluster.Empty() {
		cluster = d.scanKnownRegions(text)
		if !cluster.Empty() {
			d.log.Debug("cluster section missing, region scan fallback used",
				"messageId", msg.ID, "regions", len(cluster.Items))
		}
	}

	if !cluster.Empty() {
		s.Regions = cluster.Items
		s.RegionOrder = cluster.Order
		s.Breakdowns["grupo"] = cluster.Items
	}
	if !status.Empty() {
		s.Breakdowns["status"] = status.Items
	}
	if !sintoma.Empty() {
		s.Breakdowns["sintoma"] = sintoma.Items
	}
	if !incidentes24h.Empty() {
		s.Breakdowns["incidentes24h"] = incidentes24h.Items
	}

	s.TotalEvents = volumeTotal
	if s.TotalEvents == 0 && !cluster.Empty() {
		s.TotalEvents = cluster.Total
	}
	if tipo != "" && s.TotalEvents > 0 {
		s.Breakdowns["tipo"] = map[string]int{tipo: s.TotalEvents}
	}

	s.Areas, s.VolumeByArea = d.mapAreas(s.Regions, s.RegionOrder)
	s.Description = describeBreakdowns([]labeledItems{
		{label: "Tipo", value: tipo},
		{label: "Sintomas", tally: sintoma},
		{label: "Status", tally: status},
	})
	return s
}

// scanKnownRegions scans the whole message for known region names
// followed by a count, accumulating duplicates.
func (d *Dispatcher) scanKnownRegions(text string) *Tally {
	tally := &Tally{Items: make(map[string]int), Strategy: "region-scan"}
	for _, region := range d.rules.FallbackRegions {
		re := regexp.MustCompile(`(?i)[^\w]?` + regexp.QuoteMeta(region) + `\s*[:\-]\s*(\d+)`)
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			count, _ := strconv.Atoi(m[1])
			if count <= 0 {
				continue
			}
			if _, seen := tally.Items[region]; !seen {
				tally.Order = append(tally.Order, region)
			}
			tally.Items[region] += count
		}
	}
	for _, v := range tally.Items {
		tally.Total += v
	}
	return tally
}

// parseEnterpriseSummary handles the "💎 COP REDE INF" monitoring layout:
// RAL and REC activity totals, each with a "POR CLUSTERS:" block. The
// region breakdown is the RAL+REC sum per cluster.
func (d *Dispatcher) parseEnterpriseSummary(msg domain.Message) *domain.IncidentSummary {
	s := d.newSummary(msg)

	var totalRAL, totalREC int
	ral := make(map[string]int)
	rec := make(map[string]int)
	var order []string

	mode := ""
	inClusters := false

	for _, raw := range strings.Split(msg.Text, "\n") {
		line := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(raw), "**", ""))
		if line == "" {
			continue
		}
		// Stop at the sections the dashboard does not consume.
		if strings.Contains(line, "🏷️") || strings.Contains(line, "🏁") ||
			strings.Contains(line, "🔗") || strings.HasPrefix(line, "#") {
			break
		}
		if m := updatedAtRe.FindStringSubmatch(line); m != nil {
			s.GeneratedAt = m[1] + " " + m[2] + ":00"
			continue
		}

		noStars := strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
		if strings.Contains(noStars, "🔴") {
			if m := ralTotalRe.FindStringSubmatch(noStars); m != nil {
				totalRAL, _ = strconv.Atoi(m[1])
				mode = "ral"
				inClusters = false
				continue
			}
		}
		if strings.Contains(noStars, "🟢") {
			if m := recTotalRe.FindStringSubmatch(noStars); m != nil {
				totalREC, _ = strconv.Atoi(m[1])
				mode = "rec"
				inClusters = false
				continue
			}
		}
		if strings.HasPrefix(strings.ToUpper(noStars), "POR CLUSTERS") {
			inClusters = true
			continue
		}

		if inClusters && mode != "" {
			m := enterpriseBulletSpacedRe.FindStringSubmatch(line)
			if m == nil {
				m = enterpriseBulletTightRe.FindStringSubmatch(line)
			}
			if m == nil {
				// Non-bullet line ends the cluster block.
				inClusters = false
				continue
			}
			name := d.lex.CorrectLabel(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(m[1]), "*", "")))
			count, _ := strconv.Atoi(m[2])
			if name == "" || strings.EqualFold(name, "unknown") || count <= 0 {
				continue
			}
			target := ral
			if mode == "rec" {
				target = rec
			}
			if ral[name] == 0 && rec[name] == 0 {
				order = append(order, name)
			}
			target[name] += count
		}
	}

	for _, name := range order {
		if total := ral[name] + rec[name]; total > 0 {
			s.Regions[name] = total
		}
	}
	if len(s.Regions) == 0 {
		return nil
	}
	s.RegionOrder = order
	s.TotalEvents = totalRAL + totalREC
	if s.TotalEvents == 0 {
		for _, v := range s.Regions {
			s.TotalEvents += v
		}
	}
	s.Breakdowns["grupo"] = s.Regions
	if totalRAL > 0 {
		s.Breakdowns["ral"] = map[string]int{"RAL": totalRAL}
	}
	if totalREC > 0 {
		s.Breakdowns["rec"] = map[string]int{"REC": totalREC}
	}
	if s.GeneratedAt == "" {
		s.GeneratedAt = d.now().Format("02/01/2006 15:04:05")
	}

	s.Areas, s.VolumeByArea = d.mapAreas(s.Regions, s.RegionOrder)
	return s
}

func firstSection(text string, names ...string) *Tally {
	for _, name := range names {
		if tally := ExtractSectionList(text, name); !tally.Empty() {
			return tally
		}
	}
	return nil
}

// labeledItems pairs a display label with either a section tally or a
// single literal value for the human-readable description line.
type labeledItems struct {
	label string
	tally *Tally
	value string
}

// describeBreakdowns joins tallies in extraction order so two parses of
// the same message yield identical descriptions.
func describeBreakdowns(parts []labeledItems) string {
	var out []string
	for _, p := range parts {
		if p.value != "" {
			out = append(out, p.label+": "+p.value)
			continue
		}
		if p.tally.Empty() {
			continue
		}
		var entries []string
		for _, name := range orderedKeys(p.tally.Items, p.tally.Order) {
			entries = append(entries, fmt.Sprintf("%s (%d)", name, p.tally.Items[name]))
		}
		out = append(out, p.label+": "+strings.Join(entries, ", "))
	}
	return strings.Join(out, "\n")
}
