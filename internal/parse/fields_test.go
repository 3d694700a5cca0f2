package parse

import (
	"testing"
	"time"
)

func TestExtractField(t *testing.T) {
	text := "COP REDE INFORMA\nTIPO: Incidente\nGRUPO: Bahia / Sergipe\nVOLUME: 5"

	tests := []struct {
		key  string
		want string
	}{
		{"TIPO", "Incidente"},
		{"GRUPO", "Bahia / Sergipe"},
		{"VOLUME", "5"},
		{"RESPONSAVEL", ""},
	}
	for _, tt := range tests {
		if got := ExtractField(text, tt.key); got != tt.want {
			t.Errorf("ExtractField(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestExtractFieldCaseAndSpacing(t *testing.T) {
	if got := ExtractField("tipo: Incidente\ngrupo: Norte", "TIPO"); got != "Incidente" {
		t.Fatalf("case-insensitive lookup failed: %q", got)
	}
	if got := ExtractField("TIPO :   Incidente   ", "TIPO"); got != "Incidente" {
		t.Fatalf("spacing tolerance failed: %q", got)
	}
}

func TestExtractMultilineField(t *testing.T) {
	text := "TIPO: Incidente\nDESCRICAO: linha um\nlinha dois\nlinha tres\nVOLUME: 3"
	want := "linha um\nlinha dois\nlinha tres"
	if got := ExtractMultilineField(text, "DESCRICAO"); got != want {
		t.Fatalf("ExtractMultilineField = %q, want %q", got, want)
	}
	if got := ExtractMultilineField(text, "OBS"); got != "" {
		t.Fatalf("missing field should be empty, got %q", got)
	}
}

func TestExtractFieldWithEmoji(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		emojis []string
		label  string
		want   string
	}{
		{"emoji plain", "📌 Ticket: ABC-123", []string{"📌", "🎫"}, "Ticket", "ABC-123"},
		{"emoji alternate", "🎫 Ticket: XYZ-9", []string{"📌", "🎫"}, "Ticket", "XYZ-9"},
		{"emoji bold", "📊 **Volume Total:** 45", []string{"📊", "📈"}, "Volume Total", "45"},
		{"bold no emoji", "**Tipo:** OTG", []string{"🏷️"}, "Tipo", "OTG"},
		{"plain no emoji", "Cluster: Norte", []string{"📡"}, "Cluster", "Norte"},
		{"absent", "nada aqui", []string{"📌"}, "Ticket", ""},
	}
	for _, tt := range tests {
		if got := ExtractFieldWithEmoji(tt.text, tt.emojis, tt.label); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExtractDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"DIA: 15/12/2024", "15/12/2024"},
		{"5/1/2024", "05/01/2024"},
		{"amanhã 26/01", "26/01/2026"},
		{"sem data", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractDate(tt.in, now); got != tt.want {
			t.Errorf("ExtractDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractVolume(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"5", 5, true},
		{"12 eventos", 12, true},
		{"3,5", 3.5, true},
		{"  47  ", 47, true},
		{"sem numero", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractVolume(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ExtractVolume(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
