package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

// AuditRecorder appends immutable action records tied to a report. Appends
// are deliberately NOT transactional with the business action they
// accompany: callers perform the action first, then log best-effort, and a
// failed append never rolls the action back (the caller reports it instead).
type AuditRecorder struct {
	db *gorm.DB
}

func NewAuditRecorder(db *gorm.DB) *AuditRecorder {
	return &AuditRecorder{db: db}
}

// Append writes one audit entry. Details may be nil; actorID may be nil for
// system actions.
func (rec *AuditRecorder) Append(obraID, reportID uuid.UUID, action string, details map[string]interface{}, actorID *uuid.UUID, actorName string) error {
	entry := models.AuditLog{
		ObraID:    obraID,
		ReportID:  reportID,
		Action:    action,
		ActorID:   actorID,
		ActorName: actorName,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		entry.Details = datatypes.JSON(raw)
	}
	return rec.db.Create(&entry).Error
}

// AuditHandler serves the read side of the audit log.
type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// ListByReport returns the audit trail of a report, newest first.
func (h *AuditHandler) ListByReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID := vars["id"]

	var entries []models.AuditLog
	if err := h.db.
		Where("report_id = ?", reportID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		http.Error(w, "Failed to fetch audit log", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetRejectedReports answers which reports of an obra, dated inside the
// given range, carry at least one "reject" entry in their history. A report
// rejected and later approved still counts: this is a historical-fact query,
// not a current-status one.
func (h *AuditHandler) GetRejectedReports(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "start must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		http.Error(w, "end must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	// Step 1: resolve the obra's report ids inside the window. Report dates
	// carry a time of day, so the end bound is exclusive of the next day
	// rather than midnight of the end date.
	var reportIDs []uuid.UUID
	if err := h.db.Model(&models.Report{}).
		Where("obra_id = ? AND report_date >= ? AND report_date < ?", obraID, start, end.AddDate(0, 0, 1)).
		Pluck("id", &reportIDs).Error; err != nil {
		http.Error(w, "Failed to resolve reports", http.StatusInternalServerError)
		return
	}

	rejected := []uuid.UUID{}
	if len(reportIDs) > 0 {
		// Step 2: of those, which ever received a reject entry.
		if err := h.db.Model(&models.AuditLog{}).
			Distinct("report_id").
			Where("report_id IN ? AND action = ?", reportIDs, models.AuditActionReject).
			Pluck("report_id", &rejected).Error; err != nil {
			http.Error(w, "Failed to query audit log", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"report_ids": rejected,
		"count":      len(rejected),
	})
}

// appendAudit is the two-phase logging helper used by report lifecycle
// handlers: the business action already committed, so a failure here is
// logged and surfaced in the response flag, never rolled back.
func appendAudit(rec *AuditRecorder, obraID, reportID uuid.UUID, action string, details map[string]interface{}, actorID *uuid.UUID, actorName string) bool {
	if err := rec.Append(obraID, reportID, action, details, actorID, actorName); err != nil {
		log.Printf("❌ Audit append failed for report %s action %s: %v", reportID, action, err)
		return false
	}
	return true
}
