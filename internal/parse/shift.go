package parse

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"copbot/internal/domain"
)

// Allocation texts are kept verbatim for the audit trail but capped so a
// pathological paste cannot bloat the store.
const maxAllocationText = 5000

var (
	shiftSectionSplitRe = regexp.MustCompile(`_{3,}`)
	markdownMarksRe     = regexp.MustCompile(`[*_~]`)

	shiftDateHeaderRe = regexp.MustCompile(`(?i)(?:DIURNO|MADRUGADA)\s+(\d{1,2}/\d{1,2})`)
	shiftDateBareRe   = regexp.MustCompile(`(\d{1,2}/\d{1,2})`)
	shiftDateYearRe   = regexp.MustCompile(`(\d{1,2}/\d{1,2})/\d{2,4}`)

	dayOffEntryRe = regexp.MustCompile(`^-\s*(.+)$`)

	// "06:00 às 15:48 - Diego (99333-2574)", with às/as/a/- between the
	// window bounds and the phone optionally parenthesized.
	dayTechRe = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*(?:às|as|a|-)\s*\d{1,2}:\d{2})\s*[-–]?\s*([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]*?)\s*\(?([\d\-\s]+)\)?$`)
	// "Diego - 06:00 às 15:48 (99333-2574)".
	dayTechAltRe = regexp.MustCompile(`(?i)([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]*?)\s*[-–]\s*(\d{1,2}:\d{2}\s*(?:às|as|a|-)\s*\d{1,2}:\d{2})\s*\(?([\d\-\s]+)\)?$`)
	// "- sobreaviso: Leri (99179-2193)".
	onCallRe = regexp.MustCompile(`(?i)[-–]?\s*sobreaviso\s*:?\s*([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]*?)\s*\(?([\d\-\s]+)\)?$`)

	nightLeadRe      = regexp.MustCompile(`(?i)Respons[aá]vel\s*:\s*(.+?)\.?\s*$`)
	nightLeadPhoneRe = regexp.MustCompile(`(?i)Tel(?:/Whatsapp)?\s*:\s*([\d\-]+)`)
	nightTechRe      = regexp.MustCompile(`^[-*•]?\s*\*?([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]*?)\s*:\s*([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s/]+)$`)
	nightHeadendRe   = regexp.MustCompile(`(?i)^\*?\s*\*?Headend\s*[-–]\s*([A-Za-zÀ-ÿ\s]+)$`)
	nightActivityRe  = regexp.MustCompile(`^[°•]\s*[A-Za-zÀ-ÿ\s]+\s*:\s*\((.+?)\)\.?\s*$`)
	nightPhoneRe     = regexp.MustCompile(`(?i)^Tel\s*:\s*([\d\-]+)`)
	nightNoteRe      = regexp.MustCompile(`(?i)^\[Obs\s*:\s*(.+?)\]\.?\s*$`)

	phoneSpaceRe = regexp.MustCompile(`\s`)
)

// parseShift extracts a HUB technician-allocation roster, DAY or NIGHT
// layout. Returns nil when no roster entry and no day-off survived.
func (d *Dispatcher) parseShift(msg domain.Message, kind domain.Kind) *domain.ShiftAllocation {
	now := d.now()
	variant := domain.VariantDay
	if kind == domain.KindShiftNight {
		variant = domain.VariantNight
	}

	alloc := &domain.ShiftAllocation{
		ID:           fmt.Sprintf("hub_%s_%d", msg.ID, now.UnixMilli()),
		MessageID:    msg.ID,
		Variant:      variant,
		Date:         extractShiftDate(msg.Text),
		ReceivedAt:   msg.ReceivedAt,
		ProcessedAt:  now,
		OriginalText: truncateRunes(msg.Text, maxAllocationText),
	}

	if variant == domain.VariantDay {
		d.parseDayRoster(msg.Text, alloc)
	} else {
		parseNightRoster(msg.Text, alloc)
	}

	entries := len(alloc.Technicians)
	for _, roster := range alloc.Regions {
		entries += len(roster)
	}
	if entries == 0 && len(alloc.DayOffs) == 0 && alloc.Lead == nil {
		return nil
	}
	return alloc
}

func extractShiftDate(text string) string {
	if m := shiftDateHeaderRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	firstLine := strings.SplitN(text, "\n", 2)[0]
	if m := shiftDateBareRe.FindStringSubmatch(firstLine); m != nil {
		return m[1]
	}
	if m := shiftDateYearRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// parseDayRoster walks the "____"-separated sections of a DAY message:
// a region header line opens a roster, technician lines fill it, and a
// "Folgas:" header switches to day-off collection.
func (d *Dispatcher) parseDayRoster(text string, alloc *domain.ShiftAllocation) {
	regionRe := d.shiftRegionRe()
	regions := make(map[string][]domain.ShiftEntry)
	var order []string
	current := ""
	inDayOffs := false

	for _, section := range shiftSectionSplitRe.Split(text, -1) {
		for _, raw := range strings.Split(section, "\n") {
			line := strings.TrimSpace(markdownMarksRe.ReplaceAllString(strings.TrimSpace(raw), ""))
			if line == "" {
				continue
			}
			if strings.Contains(Normalize(line), "alocacao tecnica") {
				continue
			}

			if m := regionRe.FindStringSubmatch(line); m != nil {
				current = strings.Join(strings.Fields(strings.ToUpper(m[1])), " ")
				inDayOffs = false
				if _, ok := regions[current]; !ok {
					regions[current] = nil
					order = append(order, current)
				}
				continue
			}

			lower := strings.ToLower(line)
			if strings.HasPrefix(lower, "folgas:") || lower == "folgas" {
				inDayOffs = true
				continue
			}
			if inDayOffs {
				if m := dayOffEntryRe.FindStringSubmatch(line); m != nil {
					alloc.DayOffs = append(alloc.DayOffs, strings.TrimSpace(m[1]))
				}
				continue
			}
			if current == "" {
				continue
			}

			if m := dayTechRe.FindStringSubmatch(line); m != nil {
				regions[current] = append(regions[current], domain.ShiftEntry{
					Window:     strings.TrimSpace(m[1]),
					Technician: strings.TrimSpace(m[2]),
					Phone:      phoneSpaceRe.ReplaceAllString(m[3], ""),
				})
				continue
			}
			if m := dayTechAltRe.FindStringSubmatch(line); m != nil {
				regions[current] = append(regions[current], domain.ShiftEntry{
					Window:     strings.TrimSpace(m[2]),
					Technician: strings.TrimSpace(m[1]),
					Phone:      phoneSpaceRe.ReplaceAllString(m[3], ""),
				})
				continue
			}
			if m := onCallRe.FindStringSubmatch(line); m != nil {
				regions[current] = append(regions[current], domain.ShiftEntry{
					Window:     "Sobreaviso",
					Technician: strings.TrimSpace(m[1]),
					Phone:      phoneSpaceRe.ReplaceAllString(m[2], ""),
					OnCall:     true,
				})
			}
		}
	}

	if len(order) > 0 {
		alloc.Regions = regions
		alloc.RegionOrder = order
	}
}

// shiftRegionRe builds the region-header matcher from the configured
// vocabulary. Spaces inside a region name match loosely, the trailing
// colon is optional.
func (d *Dispatcher) shiftRegionRe() *regexp.Regexp {
	alts := make([]string, 0, len(d.rules.ShiftRegions))
	for _, region := range d.rules.ShiftRegions {
		alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(region), " ", `\s*`))
	}
	return regexp.MustCompile(`(?i)^(` + strings.Join(alts, "|") + `)\s*:?\s*$`)
}

// parseNightRoster walks a NIGHT message: "Name: Location" lines open a
// technician block; activity, phone and note lines attach to the open
// block until the next one starts.
func parseNightRoster(text string, alloc *domain.ShiftAllocation) {
	inDayOffs := false

	for _, section := range shiftSectionSplitRe.Split(text, -1) {
		lines := strings.Split(section, "\n")
		header := false
		for _, raw := range lines {
			if strings.Contains(Normalize(raw), "alocacao tecnica") {
				header = true
				break
			}
		}
		if header {
			continue
		}

		var open *domain.NightAssignment
		flush := func() {
			if open != nil {
				alloc.Technicians = append(alloc.Technicians, *open)
				open = nil
			}
		}

		for _, raw := range lines {
			line := strings.TrimSpace(markdownMarksRe.ReplaceAllString(strings.TrimSpace(raw), ""))
			if line == "" {
				continue
			}

			lower := strings.ToLower(line)
			if strings.HasPrefix(lower, "folgas:") || lower == "folgas" {
				inDayOffs = true
				continue
			}
			if inDayOffs {
				if m := dayOffEntryRe.FindStringSubmatch(line); m != nil {
					alloc.DayOffs = append(alloc.DayOffs, strings.TrimSpace(m[1]))
				}
				continue
			}

			if m := nightLeadRe.FindStringSubmatch(line); m != nil {
				alloc.Lead = &domain.Contact{Name: strings.TrimSpace(m[1])}
				continue
			}
			if alloc.Lead != nil && alloc.Lead.Phone == "" {
				if m := nightLeadPhoneRe.FindStringSubmatch(line); m != nil {
					alloc.Lead.Phone = strings.TrimSpace(m[1])
					continue
				}
			}

			if m := nightTechRe.FindStringSubmatch(line); m != nil &&
				!strings.Contains(lower, "tel") &&
				!strings.Contains(Normalize(line), "headend") &&
				!strings.Contains(Normalize(line), "responsavel") {
				flush()
				open = &domain.NightAssignment{
					Name:     strings.TrimSpace(m[1]),
					Location: strings.TrimSpace(m[2]),
				}
				continue
			}
			if m := nightHeadendRe.FindStringSubmatch(line); m != nil {
				flush()
				open = &domain.NightAssignment{
					Name:     "Headend",
					Location: strings.TrimSpace(m[1]),
				}
				continue
			}
			if open != nil {
				if m := nightActivityRe.FindStringSubmatch(line); m != nil {
					open.Activity = strings.TrimSpace(m[1])
					continue
				}
				if m := nightPhoneRe.FindStringSubmatch(line); m != nil {
					open.Phone = strings.TrimSpace(m[1])
					continue
				}
				if m := nightNoteRe.FindStringSubmatch(line); m != nil {
					open.Note = strings.TrimSpace(m[1])
					continue
				}
			}
		}
		flush()
	}
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
