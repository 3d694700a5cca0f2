package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"copbot/internal/domain"
	"copbot/internal/storage/sqlite"
)

// Server exposes the dashboard JSON API over the record store.
type Server struct {
	db  *sql.DB
	mux *http.ServeMux
	now func() time.Time
}

func NewServer(db *sql.DB) *Server {
	s := &Server{db: db, mux: http.NewServeMux(), now: time.Now}
	s.routes()
	return s
}

func (s *Server) Router() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/summaries", s.handleSummaries)
	s.mux.HandleFunc("/api/summaries/latest", s.handleLatestSummary)
	s.mux.HandleFunc("/api/areas", s.handleAreas)
	s.mux.HandleFunc("/api/alerts", s.handleAlerts)
	s.mux.HandleFunc("/api/alerts/", s.handleAlertItem)
	s.mux.HandleFunc("/api/allocations/current", s.handleCurrentAllocation)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("error encoding response:", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/summaries?limit=N: recent summaries, newest first.
func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	summaries, err := sqlite.GetSummaries(s.db, limit)
	if err != nil {
		log.Println("error listing summaries:", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if summaries == nil {
		summaries = []domain.IncidentSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GET /api/summaries/latest
func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := sqlite.GetLatestSummary(s.db)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no summaries recorded")
		return
	}
	if err != nil {
		log.Println("error loading latest summary:", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/areas: panel-area volumetrics of the latest summary.
func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := sqlite.GetLatestSummary(s.db)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no summaries recorded")
		return
	}
	if err != nil {
		log.Println("error loading latest summary:", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	volumes := summary.VolumeByArea
	if volumes == nil {
		volumes = map[string]int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summaryId":    summary.ID,
		"generatedAt":  summary.GeneratedAt,
		"totalEvents":  summary.TotalEvents,
		"areas":        summary.Areas,
		"volumeByArea": volumes,
	})
}

// GET /api/alerts?status=: alerts newest first, optionally filtered.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && !validStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status "+status)
		return
	}
	alerts, err := sqlite.GetAlerts(s.db, status, 200)
	if err != nil {
		log.Println("error listing alerts:", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// PUT /api/alerts/{id}/status and DELETE /api/alerts/{id}.
func (s *Server) handleAlertItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case r.Method == http.MethodPut && strings.HasSuffix(rest, "/status"):
		id := strings.TrimSuffix(rest, "/status")
		s.updateAlertStatus(w, r, id)

	case r.Method == http.MethodDelete && !strings.Contains(rest, "/"):
		err := sqlite.DeleteAlert(s.db, rest)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		if err != nil {
			log.Println("error deleting alert:", err)
			writeError(w, http.StatusInternalServerError, "storage error")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && !strings.Contains(rest, "/"):
		alert, err := sqlite.GetAlertByID(s.db, rest)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		if err != nil {
			log.Println("error loading alert:", err)
			writeError(w, http.StatusInternalServerError, "storage error")
			return
		}
		writeJSON(w, http.StatusOK, alert)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) updateAlertStatus(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validStatus(body.Status) {
		writeError(w, http.StatusBadRequest, "unknown status "+body.Status)
		return
	}

	err := sqlite.UpdateAlertStatus(s.db, id, body.Status, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		log.Println("error updating alert status:", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	alert, err := sqlite.GetAlertByID(s.db, id)
	if err != nil {
		log.Println("error reloading alert:", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// GET /api/allocations/current: roster in effect for the current hour.
func (s *Server) handleCurrentAllocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	alloc, err := sqlite.CurrentAllocation(s.db, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no allocations recorded")
		return
	}
	if err != nil {
		log.Println("error loading current allocation:", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

func validStatus(status string) bool {
	switch status {
	case domain.StatusNew, domain.StatusInReview, domain.StatusResolved:
		return true
	}
	return false
}
