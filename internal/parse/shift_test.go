package parse

import (
	"strings"
	"testing"

	"copbot/internal/domain"
)

const dayShiftText = "*ALOCAÇÃO TÉCNICA HUBS/RJO DIURNO 26/01:*\n" +
	"___________\n" +
	"NORTE:\n" +
	"06:00 às 15:48 - Diego (99333-2574)\n" +
	"- sobreaviso: Leri (99179-2193)\n" +
	"___________\n" +
	"SUL:\n" +
	"Paulo Alexandre - 08:00 às 17:48 (99888-1122)\n" +
	"___________\n" +
	"Folgas:\n" +
	"- Carlos\n" +
	"- Marcos (férias)"

func TestParseShiftDay(t *testing.T) {
	d := testDispatcher()
	alloc := d.parseShift(testMessage(dayShiftText), domain.KindShiftDay)
	if alloc == nil {
		t.Fatal("parseShift returned nil")
	}
	if alloc.Variant != domain.VariantDay {
		t.Errorf("Variant = %q, want %q", alloc.Variant, domain.VariantDay)
	}
	if alloc.Date != "26/01" {
		t.Errorf("Date = %q, want 26/01", alloc.Date)
	}
	if !strings.HasPrefix(alloc.ID, "hub_msg1_") {
		t.Errorf("ID = %q, want hub_msg1_ prefix", alloc.ID)
	}

	wantOrder := []string{"NORTE", "SUL"}
	if len(alloc.RegionOrder) != 2 || alloc.RegionOrder[0] != wantOrder[0] || alloc.RegionOrder[1] != wantOrder[1] {
		t.Fatalf("RegionOrder = %v, want %v", alloc.RegionOrder, wantOrder)
	}

	norte := alloc.Regions["NORTE"]
	if len(norte) != 2 {
		t.Fatalf("NORTE roster = %+v, want 2 entries", norte)
	}
	if norte[0].Window != "06:00 às 15:48" || norte[0].Technician != "Diego" || norte[0].Phone != "99333-2574" {
		t.Errorf("NORTE[0] = %+v", norte[0])
	}
	if !norte[1].OnCall || norte[1].Technician != "Leri" || norte[1].Window != "Sobreaviso" {
		t.Errorf("NORTE[1] = %+v, want on-call Leri", norte[1])
	}

	sul := alloc.Regions["SUL"]
	if len(sul) != 1 {
		t.Fatalf("SUL roster = %+v, want 1 entry", sul)
	}
	if sul[0].Technician != "Paulo Alexandre" || sul[0].Window != "08:00 às 17:48" || sul[0].Phone != "99888-1122" {
		t.Errorf("SUL[0] = %+v", sul[0])
	}

	wantOffs := []string{"Carlos", "Marcos (férias)"}
	if len(alloc.DayOffs) != 2 || alloc.DayOffs[0] != wantOffs[0] || alloc.DayOffs[1] != wantOffs[1] {
		t.Errorf("DayOffs = %v, want %v", alloc.DayOffs, wantOffs)
	}
}

func TestParseShiftNight(t *testing.T) {
	text := "*ALOCAÇÃO TÉCNICA HUBS MADRUGADA 27/01:*\n" +
		"_____________\n" +
		"Responsável: Douglas Ignacio.\n" +
		"Tel/Whatsapp: 99357-9473\n" +
		"_____________\n" +
		"Paulo Alexandre: Tijuca\n" +
		"° Tijuca: (rebaixamento rota Grajaú [8]).\n" +
		"Tel: 96763-5440\n" +
		"[Obs: pega o carro em Niterói e vai para a Tijuca].\n" +
		"\n" +
		"Porfírio: Botafogo\n" +
		"Tel: 97777-8888\n" +
		"_____________\n" +
		"Headend - Freguesia\n" +
		"Tel: 95555-4444\n" +
		"_____________\n" +
		"Folgas:\n" +
		"- Juliana"

	d := testDispatcher()
	alloc := d.parseShift(testMessage(text), domain.KindShiftNight)
	if alloc == nil {
		t.Fatal("parseShift returned nil")
	}
	if alloc.Variant != domain.VariantNight {
		t.Errorf("Variant = %q, want %q", alloc.Variant, domain.VariantNight)
	}
	if alloc.Date != "27/01" {
		t.Errorf("Date = %q, want 27/01", alloc.Date)
	}
	if alloc.Lead == nil || alloc.Lead.Name != "Douglas Ignacio" || alloc.Lead.Phone != "99357-9473" {
		t.Fatalf("Lead = %+v, want Douglas Ignacio / 99357-9473", alloc.Lead)
	}

	if len(alloc.Technicians) != 3 {
		t.Fatalf("Technicians = %+v, want 3", alloc.Technicians)
	}
	first := alloc.Technicians[0]
	if first.Name != "Paulo Alexandre" || first.Location != "Tijuca" {
		t.Errorf("Technicians[0] = %+v", first)
	}
	if first.Activity != "rebaixamento rota Grajaú [8]" {
		t.Errorf("Activity = %q", first.Activity)
	}
	if first.Phone != "96763-5440" {
		t.Errorf("Phone = %q, want 96763-5440", first.Phone)
	}
	if !strings.Contains(first.Note, "pega o carro em Niterói") {
		t.Errorf("Note = %q", first.Note)
	}
	if alloc.Technicians[1].Name != "Porfírio" || alloc.Technicians[1].Location != "Botafogo" {
		t.Errorf("Technicians[1] = %+v", alloc.Technicians[1])
	}
	if alloc.Technicians[2].Name != "Headend" || alloc.Technicians[2].Location != "Freguesia" {
		t.Errorf("Technicians[2] = %+v", alloc.Technicians[2])
	}
	if len(alloc.DayOffs) != 1 || alloc.DayOffs[0] != "Juliana" {
		t.Errorf("DayOffs = %v, want [Juliana]", alloc.DayOffs)
	}
}

func TestParseShiftNothingExtracted(t *testing.T) {
	d := testDispatcher()
	text := "ALOCAÇÃO TÉCNICA HUBS DIURNO\nsem escala definida ainda"
	if alloc := d.parseShift(testMessage(text), domain.KindShiftDay); alloc != nil {
		t.Fatalf("parseShift = %+v, want nil", alloc)
	}
}

func TestParseShiftTruncatesOriginalText(t *testing.T) {
	text := dayShiftText + "\n" + strings.Repeat("relatório adicional ", 400)

	d := testDispatcher()
	alloc := d.parseShift(testMessage(text), domain.KindShiftDay)
	if alloc == nil {
		t.Fatal("parseShift returned nil")
	}
	if len(alloc.OriginalText) > maxAllocationText {
		t.Errorf("OriginalText length = %d, want <= %d", len(alloc.OriginalText), maxAllocationText)
	}
	if !strings.HasPrefix(alloc.OriginalText, "*ALOCAÇÃO") {
		t.Errorf("OriginalText lost its head: %q", alloc.OriginalText[:40])
	}
}
