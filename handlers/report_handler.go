package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/middleware"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/pkg/reconcile"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/utils"
)

// ReportHandler manages RDO reports: creation, execution-record submission,
// the approval workflow and the derived accumulated totals.
type ReportHandler struct {
	db    *gorm.DB
	audit *AuditRecorder
}

func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{db: db, audit: NewAuditRecorder(db)}
}

func actorFromRequest(r *http.Request) (*uuid.UUID, string) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		return nil, ""
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, claims.Name
	}
	return &id, claims.Name
}

type createReportReq struct {
	Number     int       `json:"number" validate:"required,min=1"`
	ReportDate time.Time `json:"report_date" validate:"required"`
}

func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	var req createReportReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var obra models.Obra
	if err := h.db.First(&obra, "id = ?", obraID).Error; err != nil {
		http.Error(w, "Obra not found", http.StatusNotFound)
		return
	}

	report := models.Report{
		ObraID:     obra.ID,
		Number:     req.Number,
		ReportDate: req.ReportDate,
		Status:     models.ReportStatusDraft,
		CreatedBy:  middleware.GetUserID(r),
	}
	if err := h.db.Create(&report).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			http.Error(w, "a report with this number already exists", http.StatusConflict)
			return
		}
		log.Printf("❌ Failed to create report: %v", err)
		http.Error(w, "Failed to create report", http.StatusInternalServerError)
		return
	}

	actorID, actorName := actorFromRequest(r)
	logged := appendAudit(h.audit, obra.ID, report.ID, models.AuditActionCreate, nil, actorID, actorName)

	log.Printf("✅ Created report #%d for obra %s", report.Number, obra.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"report":       report,
		"audit_logged": logged,
	})
}

func (h *ReportHandler) GetObraReports(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	var reports []models.Report
	if err := h.db.
		Where("obra_id = ?", obraID).
		Order("number ASC").
		Find(&reports).Error; err != nil {
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID := vars["id"]

	var report models.Report
	if err := h.db.Preload("Items").First(&report, "id = ?", reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

type reportItemInput struct {
	ItemCode    string  `json:"item_code" validate:"required"`
	PlannedQty  float64 `json:"planned_qty"`
	ExecutedQty float64 `json:"executed_qty"`
}

type submitItemsReq struct {
	Items []reportItemInput `json:"items" validate:"required,min=1,dive"`
}

// SubmitItems upserts the execution records of a report (quantity executed
// this period per item). Same batch upsert contract as session items.
func (h *ReportHandler) SubmitItems(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID := vars["id"]

	var req submitItemsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var report models.Report
	if err := h.db.First(&report, "id = ?", reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	entries := make([]models.ReportItem, len(req.Items))
	for i, it := range req.Items {
		entries[i] = models.ReportItem{
			ObraID:      report.ObraID,
			ReportID:    report.ID,
			ItemCode:    it.ItemCode,
			PlannedQty:  it.PlannedQty,
			ExecutedQty: it.ExecutedQty,
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "report_id"}, {Name: "item_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"planned_qty", "executed_qty", "updated_at"}),
		}).Create(&entries).Error
	})
	if err != nil {
		log.Printf("❌ Failed to save %d report items on %s: %v", len(entries), reportID, err)
		http.Error(w, "Failed to save items", http.StatusInternalServerError)
		return
	}

	actorID, actorName := actorFromRequest(r)
	logged := appendAudit(h.audit, report.ObraID, report.ID, models.AuditActionEdit,
		map[string]interface{}{"items": len(entries)}, actorID, actorName)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":      "Items saved successfully",
		"count":        len(entries),
		"audit_logged": logged,
	})
}

// GetAccumulated returns, per item, the executed quantity summed across all
// OTHER reports of the obra (this report's own period is excluded so the
// current view never double counts itself).
func (h *ReportHandler) GetAccumulated(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID := vars["id"]

	var report models.Report
	if err := h.db.First(&report, "id = ?", reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	var records []models.ReportItem
	if err := h.db.Where("obra_id = ?", report.ObraID).Find(&records).Error; err != nil {
		http.Error(w, "Failed to fetch execution records", http.StatusInternalServerError)
		return
	}

	acc := reconcile.AccumulatedByItem(records, report.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"report_id":   report.ID,
		"accumulated": acc,
	})
}

type rejectReq struct {
	Reason string `json:"reason"`
}

type signReq struct {
	Signer string `json:"signer" validate:"required,oneof=inspector contractor"`
}

// SubmitForApproval moves a draft report into the approval queue.
func (h *ReportHandler) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	h.workflow(w, r, models.ReportStatusDraft, models.ReportStatusPending, models.AuditActionSubmitApproval, nil)
}

// Approve finalizes a pending report.
func (h *ReportHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.workflow(w, r, models.ReportStatusPending, models.ReportStatusApproved, models.AuditActionApprove, nil)
}

// Reject sends a pending report back with a reason recorded in the audit
// trail.
func (h *ReportHandler) Reject(w http.ResponseWriter, r *http.Request) {
	// Body is optional; an empty body means no recorded reason, but a
	// malformed one must not silently drop it.
	var req rejectReq
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}
	var details map[string]interface{}
	if req.Reason != "" {
		details = map[string]interface{}{"reason": req.Reason}
	}
	h.workflow(w, r, models.ReportStatusPending, models.ReportStatusRejected, models.AuditActionReject, details)
}

// Reopen returns a rejected report to draft for correction.
func (h *ReportHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.workflow(w, r, models.ReportStatusRejected, models.ReportStatusDraft, models.AuditActionReopen, nil)
}

// workflow applies one guarded status transition and then logs it. The audit
// append happens after the status change committed: a failed append is
// reported via audit_logged but the transition stands.
func (h *ReportHandler) workflow(w http.ResponseWriter, r *http.Request, from, to, action string, details map[string]interface{}) {
	vars := mux.Vars(r)
	reportID := vars["id"]

	var report models.Report
	if err := h.db.First(&report, "id = ?", reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}
	if report.Status != from {
		http.Error(w, "report is "+report.Status+", expected "+from, http.StatusConflict)
		return
	}

	if err := h.db.Model(&report).Update("status", to).Error; err != nil {
		log.Printf("❌ Failed to transition report %s to %s: %v", reportID, to, err)
		http.Error(w, "Failed to update report", http.StatusInternalServerError)
		return
	}

	actorID, actorName := actorFromRequest(r)
	logged := appendAudit(h.audit, report.ObraID, report.ID, action, details, actorID, actorName)

	log.Printf("✅ Report %s: %s → %s", reportID, from, to)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"report":       report,
		"audit_logged": logged,
	})
}

// Sign records an inspector or contractor signature in the audit trail. A
// signature does not change report status; it is a pure audit fact.
func (h *ReportHandler) Sign(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID := vars["id"]

	var req signReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var report models.Report
	if err := h.db.First(&report, "id = ?", reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	action := models.AuditActionSignInspector
	if req.Signer == "contractor" {
		action = models.AuditActionSignContractor
	}

	actorID, actorName := actorFromRequest(r)
	if !appendAudit(h.audit, report.ObraID, report.ID, action, nil, actorID, actorName) {
		http.Error(w, "Failed to record signature", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Signature recorded"})
}
