package parse

import (
	"fmt"
	"strings"

	"copbot/internal/domain"
)

// alertFieldEmojis lists, per field, the glyphs observed in front of the
// label across alert-format revisions. Order is the try order.
var alertFieldEmojis = map[string][]string{
	"Ticket":   {"📌", "🎫"},
	"Data":     {"📅", "🗓️", "🗓", "📆"},
	"Tipo":     {"🔍", "🔎"},
	"Mercado":  {"🌍", "🟢", "🟡", "🔴", "⚪", "🏢"},
	"Sintoma":  {"⚠️", "⚠", "⚡", "🔔"},
	"Cluster":  {"📡", "📍", "🗺️", "🗺", "📌"},
	"Natureza": {"📑", "📄", "📋", "📝"},
}

// parseAlert extracts a network alert ("Novo Evento Detectado"). Every
// field is optional: an alert with only its siren line still yields a
// record, because the panel wants to show that something fired even when
// the body is free text.
func (d *Dispatcher) parseAlert(msg domain.Message) *domain.Alert {
	now := d.now()
	text := msg.Text

	alert := &domain.Alert{
		ID:          fmt.Sprintf("alerta_%s_%d", msg.ID, now.UnixMilli()),
		MessageID:   msg.ID,
		ReceivedAt:  msg.ReceivedAt,
		ProcessedAt: now,
		Ticket:      alertField(text, "Ticket"),
		Type:        alertField(text, "Tipo"),
		Market:      alertField(text, "Mercado"),
		Symptom:     alertField(text, "Sintoma"),
		Nature:      alertField(text, "Natureza"),
		Cluster:     alertField(text, "Cluster"),
		Status:      domain.StatusNew,
		StatusHistory: []domain.StatusChange{
			{Status: domain.StatusNew, At: now},
		},
		OriginalText: text,
	}

	// Kept as written; no normalization and no whole-text scan, which
	// would latch onto unrelated dd/mm tokens in phones or references.
	for _, label := range []string{"Data do Evento", "Data"} {
		if v := ExtractFieldWithEmoji(text, alertFieldEmojis["Data"], label); v != "" {
			alert.EventDate = v
			break
		}
	}

	for _, label := range []string{"Descrição", "Descricao", "Detalhes"} {
		if v := ExtractMultilineField(text, label); v != "" {
			alert.Description = v
			break
		}
	}
	if alert.Description == "" {
		alert.Description = alertHeadline(text)
	}

	if alert.Cluster != "" {
		if area, ok := d.lex.Resolve(alert.Cluster); ok {
			alert.Area = area
		} else {
			d.log.Debug("alert cluster unmapped", "messageId", msg.ID, "cluster", alert.Cluster)
		}
	}
	return alert
}

func alertField(text, field string) string {
	return ExtractFieldWithEmoji(text, alertFieldEmojis[field], field)
}

// alertHeadline falls back to the first non-banner line of the message so
// a free-text alert still carries something readable.
func alertHeadline(text string) string {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "*_"))
		if line == "" {
			continue
		}
		norm := Normalize(line)
		if strings.Contains(norm, "novo evento detectado") {
			continue
		}
		if stripped := strings.TrimSpace(leadEmojiRe.ReplaceAllString(line, "")); stripped != "" {
			return stripped
		}
	}
	return ""
}
