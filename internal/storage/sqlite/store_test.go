package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"copbot/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "copbot-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSummary(id, messageID string, receivedAt time.Time) *domain.IncidentSummary {
	return &domain.IncidentSummary{
		ID:          id,
		MessageID:   messageID,
		ReceivedAt:  receivedAt,
		ProcessedAt: receivedAt,
		Format:      "legado",
		Regions:     map[string]int{"Norte": 5},
		RegionOrder: []string{"Norte"},
		TotalEvents: 5,
		Areas:       []string{"CO/NO/NE"},
		VolumeByArea: map[string]int{
			"CO/NO/NE": 5,
		},
	}
}

func testAlert(id, messageID string, receivedAt time.Time) *domain.Alert {
	return &domain.Alert{
		ID:          id,
		MessageID:   messageID,
		ReceivedAt:  receivedAt,
		ProcessedAt: receivedAt,
		Ticket:      "INC001",
		Cluster:     "Norte",
		Area:        "CO/NO/NE",
		Status:      domain.StatusNew,
		StatusHistory: []domain.StatusChange{
			{Status: domain.StatusNew, At: receivedAt},
		},
	}
}

func TestSummaryInsertQueryAndDedup(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	if err := InsertSummary(db, testSummary("cop_1", "m1", base)); err != nil {
		t.Fatalf("InsertSummary failed: %v", err)
	}
	if err := InsertSummary(db, testSummary("cop_2", "m2", base.Add(time.Minute))); err != nil {
		t.Fatalf("InsertSummary failed: %v", err)
	}

	exists, err := SummaryMessageExists(db, "m1")
	if err != nil || !exists {
		t.Fatalf("SummaryMessageExists(m1) = %v, %v; want true", exists, err)
	}
	exists, err = SummaryMessageExists(db, "m9")
	if err != nil || exists {
		t.Fatalf("SummaryMessageExists(m9) = %v, %v; want false", exists, err)
	}

	// Same message id again must be rejected by the unique index.
	if err := InsertSummary(db, testSummary("cop_3", "m1", base.Add(2*time.Minute))); err == nil {
		t.Fatal("expected duplicate message insert to fail")
	}

	summaries, err := GetSummaries(db, 10)
	if err != nil {
		t.Fatalf("GetSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("GetSummaries returned %d records, want 2", len(summaries))
	}
	if summaries[0].ID != "cop_2" {
		t.Errorf("newest first expected, got %q", summaries[0].ID)
	}
	if summaries[0].Regions["Norte"] != 5 {
		t.Errorf("payload round trip lost regions: %+v", summaries[0].Regions)
	}

	latest, err := GetLatestSummary(db)
	if err != nil {
		t.Fatalf("GetLatestSummary failed: %v", err)
	}
	if latest.ID != "cop_2" {
		t.Errorf("GetLatestSummary = %q, want cop_2", latest.ID)
	}
}

func TestAlertStatusLifecycle(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	if err := InsertAlert(db, testAlert("alerta_1", "m1", base)); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}

	if err := UpdateAlertStatus(db, "alerta_1", domain.StatusInReview, base.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateAlertStatus failed: %v", err)
	}
	if err := UpdateAlertStatus(db, "alerta_1", domain.StatusResolved, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("UpdateAlertStatus failed: %v", err)
	}

	a, err := GetAlertByID(db, "alerta_1")
	if err != nil {
		t.Fatalf("GetAlertByID failed: %v", err)
	}
	if a.Status != domain.StatusResolved {
		t.Errorf("Status = %q, want %q", a.Status, domain.StatusResolved)
	}
	if len(a.StatusHistory) != 3 {
		t.Fatalf("StatusHistory = %+v, want 3 entries", a.StatusHistory)
	}
	wantOrder := []string{domain.StatusNew, domain.StatusInReview, domain.StatusResolved}
	for i, want := range wantOrder {
		if a.StatusHistory[i].Status != want {
			t.Errorf("StatusHistory[%d] = %q, want %q", i, a.StatusHistory[i].Status, want)
		}
	}

	if err := UpdateAlertStatus(db, "alerta_1", "fechado", base); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
	if err := UpdateAlertStatus(db, "alerta_missing", domain.StatusResolved, base); err != sql.ErrNoRows {
		t.Fatalf("UpdateAlertStatus on missing alert = %v, want sql.ErrNoRows", err)
	}
}

func TestAlertFilterAndDelete(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	if err := InsertAlert(db, testAlert("alerta_1", "m1", base)); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}
	if err := InsertAlert(db, testAlert("alerta_2", "m2", base.Add(time.Minute))); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}
	if err := UpdateAlertStatus(db, "alerta_1", domain.StatusResolved, base.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateAlertStatus failed: %v", err)
	}

	open, err := GetAlerts(db, domain.StatusNew, 10)
	if err != nil {
		t.Fatalf("GetAlerts failed: %v", err)
	}
	if len(open) != 1 || open[0].ID != "alerta_2" {
		t.Fatalf("GetAlerts(novo) = %+v, want only alerta_2", open)
	}

	all, err := GetAlerts(db, "", 10)
	if err != nil {
		t.Fatalf("GetAlerts failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAlerts(all) returned %d, want 2", len(all))
	}

	if err := DeleteAlert(db, "alerta_1"); err != nil {
		t.Fatalf("DeleteAlert failed: %v", err)
	}
	if err := DeleteAlert(db, "alerta_1"); err != sql.ErrNoRows {
		t.Fatalf("second DeleteAlert = %v, want sql.ErrNoRows", err)
	}
	if _, err := GetAlertByID(db, "alerta_1"); err != sql.ErrNoRows {
		t.Fatalf("GetAlertByID after delete = %v, want sql.ErrNoRows", err)
	}

	var orphaned int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM alert_status_history WHERE alert_id = 'alerta_1'`).Scan(&orphaned); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if orphaned != 0 {
		t.Errorf("history rows left behind after delete: %d", orphaned)
	}
}

func TestCurrentAllocationPrefersVariantByHour(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 1, 26, 8, 0, 0, 0, time.UTC)

	day := &domain.ShiftAllocation{
		ID: "hub_1", MessageID: "m1", Variant: domain.VariantDay, Date: "26/01",
		ReceivedAt: base, ProcessedAt: base,
		Regions: map[string][]domain.ShiftEntry{
			"NORTE": {{Window: "06:00 às 15:48", Technician: "Diego"}},
		},
		RegionOrder: []string{"NORTE"},
	}
	night := &domain.ShiftAllocation{
		ID: "hub_2", MessageID: "m2", Variant: domain.VariantNight, Date: "27/01",
		ReceivedAt: base.Add(12 * time.Hour), ProcessedAt: base.Add(12 * time.Hour),
		Technicians: []domain.NightAssignment{{Name: "Paulo", Location: "Tijuca"}},
	}
	if err := InsertAllocation(db, day); err != nil {
		t.Fatalf("InsertAllocation failed: %v", err)
	}
	if err := InsertAllocation(db, night); err != nil {
		t.Fatalf("InsertAllocation failed: %v", err)
	}

	morning := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)
	got, err := CurrentAllocation(db, morning)
	if err != nil {
		t.Fatalf("CurrentAllocation failed: %v", err)
	}
	if got.Variant != domain.VariantDay {
		t.Errorf("at 10:00 variant = %q, want %q", got.Variant, domain.VariantDay)
	}

	lateNight := time.Date(2026, 1, 27, 2, 0, 0, 0, time.UTC)
	got, err = CurrentAllocation(db, lateNight)
	if err != nil {
		t.Fatalf("CurrentAllocation failed: %v", err)
	}
	if got.Variant != domain.VariantNight {
		t.Errorf("at 02:00 variant = %q, want %q", got.Variant, domain.VariantNight)
	}
}

func TestCurrentAllocationFallsBackToOtherVariant(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 1, 26, 23, 0, 0, 0, time.UTC)

	night := &domain.ShiftAllocation{
		ID: "hub_1", MessageID: "m1", Variant: domain.VariantNight,
		ReceivedAt: base, ProcessedAt: base,
		Technicians: []domain.NightAssignment{{Name: "Paulo", Location: "Tijuca"}},
	}
	if err := InsertAllocation(db, night); err != nil {
		t.Fatalf("InsertAllocation failed: %v", err)
	}

	// Daytime instant, but only a NIGHT roster exists.
	got, err := CurrentAllocation(db, time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CurrentAllocation failed: %v", err)
	}
	if got.Variant != domain.VariantNight {
		t.Errorf("fallback variant = %q, want %q", got.Variant, domain.VariantNight)
	}

	empty := newTestDB(t)
	if _, err := CurrentAllocation(empty, base); err != sql.ErrNoRows {
		t.Fatalf("CurrentAllocation on empty store = %v, want sql.ErrNoRows", err)
	}
}

func TestPruneKeepsNewestRecords(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("cop_%d", i)
		if err := InsertSummary(db, testSummary(id, fmt.Sprintf("ms%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("InsertSummary failed: %v", err)
		}
		if err := InsertAlert(db, testAlert(fmt.Sprintf("alerta_%d", i), fmt.Sprintf("ma%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("InsertAlert failed: %v", err)
		}
	}

	removed, err := Prune(db, 2, 3, 10)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 5 {
		t.Errorf("Prune removed %d rows, want 5", removed)
	}

	summaries, err := GetSummaries(db, 100)
	if err != nil {
		t.Fatalf("GetSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries after prune = %d, want 2", len(summaries))
	}
	if summaries[0].ID != "cop_4" || summaries[1].ID != "cop_3" {
		t.Errorf("prune kept wrong summaries: %q, %q", summaries[0].ID, summaries[1].ID)
	}

	alerts, err := GetAlerts(db, "", 100)
	if err != nil {
		t.Fatalf("GetAlerts failed: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("alerts after prune = %d, want 3", len(alerts))
	}

	var history int
	if err := db.QueryRow(`SELECT COUNT(*) FROM alert_status_history`).Scan(&history); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if history != 3 {
		t.Errorf("history rows after prune = %d, want 3", history)
	}
}

func TestInsertFailure(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	err := InsertFailure(db, &domain.ParseFailure{
		ID:           "erro_m1_1",
		MessageID:    "m1",
		OriginalText: "COP REDE INFORMA\nquebrado",
		ErrorMessage: "boom",
		ProcessedAt:  now,
	})
	if err != nil {
		t.Fatalf("InsertFailure failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM parse_failures`).Scan(&count); err != nil {
		t.Fatalf("count failures: %v", err)
	}
	if count != 1 {
		t.Errorf("parse_failures = %d, want 1", count)
	}
}
