package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/pkg/reconcile"
)

func reportAction(t *testing.T, fn http.HandlerFunc, reportID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/reports/"+reportID+"/x", rd)
	req = mux.SetURLVars(req, map[string]string{"id": reportID})
	rr := httptest.NewRecorder()
	fn(rr, req)
	return rr
}

func TestCreateReport(t *testing.T) {
	db := openTestDB(t)
	h := NewReportHandler(db)
	obra := makeObra(t, db, "OB-001")

	body := `{"number":1,"report_date":"2026-03-10T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/obras/"+obra.ID.String()+"/reports", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": obra.ID.String()})
	rr := httptest.NewRecorder()
	h.CreateReport(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Report      models.Report `json:"report"`
		AuditLogged bool          `json:"audit_logged"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Report.Status != models.ReportStatusDraft {
		t.Errorf("status = %q, expected draft", resp.Report.Status)
	}
	if !resp.AuditLogged {
		t.Error("audit_logged = false on a healthy database")
	}

	var count int64
	db.Model(&models.AuditLog{}).
		Where("report_id = ? AND action = ?", resp.Report.ID, models.AuditActionCreate).
		Count(&count)
	if count != 1 {
		t.Errorf("create audit entries = %d, expected 1", count)
	}

	// duplicate number for the same obra
	req = httptest.NewRequest(http.MethodPost, "/obras/"+obra.ID.String()+"/reports", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": obra.ID.String()})
	rr = httptest.NewRecorder()
	h.CreateReport(rr, req)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate number: status %d, expected 409", rr.Code)
	}
}

func TestReportWorkflow(t *testing.T) {
	db := openTestDB(t)
	h := NewReportHandler(db)
	obra := makeObra(t, db, "OB-001")
	report := makeReport(t, db, obra, 1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	id := report.ID.String()

	// approving a draft skips the queue and is rejected
	if rr := reportAction(t, h.Approve, id, ""); rr.Code != http.StatusConflict {
		t.Fatalf("approve draft: status %d, expected 409", rr.Code)
	}

	if rr := reportAction(t, h.SubmitForApproval, id, ""); rr.Code != http.StatusOK {
		t.Fatalf("submit: status %d", rr.Code)
	}
	if rr := reportAction(t, h.Reject, id, `{"reason":"quantidades divergentes"}`); rr.Code != http.StatusOK {
		t.Fatalf("reject: status %d", rr.Code)
	}

	var got models.Report
	db.First(&got, "id = ?", report.ID)
	if got.Status != models.ReportStatusRejected {
		t.Fatalf("status after reject = %q", got.Status)
	}

	// the rejection reason lands in the audit trail
	var entry models.AuditLog
	if err := db.Where("report_id = ? AND action = ?", report.ID, models.AuditActionReject).First(&entry).Error; err != nil {
		t.Fatalf("reject audit entry: %v", err)
	}
	var details map[string]string
	if err := json.Unmarshal(entry.Details, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details["reason"] != "quantidades divergentes" {
		t.Errorf("reason = %q", details["reason"])
	}

	// rejected → draft → pending → approved
	if rr := reportAction(t, h.Reopen, id, ""); rr.Code != http.StatusOK {
		t.Fatalf("reopen: status %d", rr.Code)
	}
	if rr := reportAction(t, h.SubmitForApproval, id, ""); rr.Code != http.StatusOK {
		t.Fatalf("resubmit: status %d", rr.Code)
	}
	if rr := reportAction(t, h.Approve, id, ""); rr.Code != http.StatusOK {
		t.Fatalf("approve: status %d", rr.Code)
	}
	db.First(&got, "id = ?", report.ID)
	if got.Status != models.ReportStatusApproved {
		t.Errorf("final status = %q", got.Status)
	}
}

func TestRejectMalformedBody(t *testing.T) {
	db := openTestDB(t)
	h := NewReportHandler(db)
	obra := makeObra(t, db, "OB-001")
	report := makeReport(t, db, obra, 1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	id := report.ID.String()

	if rr := reportAction(t, h.SubmitForApproval, id, ""); rr.Code != http.StatusOK {
		t.Fatalf("submit: status %d", rr.Code)
	}

	// a broken reason body fails instead of silently dropping the reason
	if rr := reportAction(t, h.Reject, id, `{"reason":`); rr.Code != http.StatusBadRequest {
		t.Errorf("broken body: status %d, expected 400", rr.Code)
	}

	// the report was not transitioned by the failed call
	var got models.Report
	db.First(&got, "id = ?", report.ID)
	if got.Status != models.ReportStatusPending {
		t.Errorf("status after failed reject = %q, expected pending_approval", got.Status)
	}
}

func TestSubmitItemsUpsert(t *testing.T) {
	db := openTestDB(t)
	h := NewReportHandler(db)
	obra := makeObra(t, db, "OB-001")
	report := makeReport(t, db, obra, 1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	id := report.ID.String()

	submit := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/reports/"+id+"/items", strings.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"id": id})
		rr := httptest.NewRecorder()
		h.SubmitItems(rr, req)
		return rr
	}

	if rr := submit(`{"items":[{"item_code":"1.1","planned_qty":100,"executed_qty":10}]}`); rr.Code != http.StatusOK {
		t.Fatalf("first submit: status %d, body %s", rr.Code, rr.Body.String())
	}
	if rr := submit(`{"items":[{"item_code":"1.1","planned_qty":100,"executed_qty":15}]}`); rr.Code != http.StatusOK {
		t.Fatalf("second submit: status %d", rr.Code)
	}

	var items []models.ReportItem
	db.Where("report_id = ?", report.ID).Find(&items)
	if len(items) != 1 {
		t.Fatalf("item rows = %d, expected 1", len(items))
	}
	if items[0].ExecutedQty != 15 {
		t.Errorf("executed_qty = %v, expected 15", items[0].ExecutedQty)
	}

	if rr := submit(`{"items":[]}`); rr.Code != http.StatusBadRequest {
		t.Errorf("empty batch: status %d, expected 400", rr.Code)
	}
}

func TestGetAccumulatedExcludesOwnReport(t *testing.T) {
	db := openTestDB(t)
	h := NewReportHandler(db)
	obra := makeObra(t, db, "OB-001")
	r1 := makeReport(t, db, obra, 1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	r2 := makeReport(t, db, obra, 2, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))

	db.Create(&models.ReportItem{ObraID: obra.ID, ReportID: r1.ID, ItemCode: "1.1", PlannedQty: 100, ExecutedQty: 10})
	db.Create(&models.ReportItem{ObraID: obra.ID, ReportID: r2.ID, ItemCode: "1.1", PlannedQty: 100, ExecutedQty: 5})

	req := httptest.NewRequest(http.MethodGet, "/reports/"+r2.ID.String()+"/accumulated", nil)
	req = mux.SetURLVars(req, map[string]string{"id": r2.ID.String()})
	rr := httptest.NewRecorder()
	h.GetAccumulated(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("accumulated: status %d", rr.Code)
	}

	var resp struct {
		Accumulated map[string]reconcile.Accumulated `json:"accumulated"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := resp.Accumulated["1.1"]
	if !ok {
		t.Fatalf("item 1.1 missing from %v", resp.Accumulated)
	}
	if got.Qty != 10 {
		t.Errorf("accumulated qty = %v, expected 10 (r2 excluded)", got.Qty)
	}
	if got.Pct != 10 {
		t.Errorf("accumulated pct = %v, expected 10", got.Pct)
	}
}

func TestSign(t *testing.T) {
	db := openTestDB(t)
	h := NewReportHandler(db)
	obra := makeObra(t, db, "OB-001")
	report := makeReport(t, db, obra, 1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	id := report.ID.String()

	if rr := reportAction(t, h.Sign, id, `{"signer":"inspector"}`); rr.Code != http.StatusOK {
		t.Fatalf("sign inspector: status %d", rr.Code)
	}
	if rr := reportAction(t, h.Sign, id, `{"signer":"contractor"}`); rr.Code != http.StatusOK {
		t.Fatalf("sign contractor: status %d", rr.Code)
	}
	if rr := reportAction(t, h.Sign, id, `{"signer":"witness"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown signer: status %d, expected 400", rr.Code)
	}

	// signatures are audit facts only, status is untouched
	var got models.Report
	db.First(&got, "id = ?", report.ID)
	if got.Status != models.ReportStatusDraft {
		t.Errorf("status after signing = %q, expected draft", got.Status)
	}

	var count int64
	db.Model(&models.AuditLog{}).
		Where("report_id = ? AND action IN ?", report.ID,
			[]string{models.AuditActionSignInspector, models.AuditActionSignContractor}).
		Count(&count)
	if count != 2 {
		t.Errorf("signature audit entries = %d, expected 2", count)
	}
}
