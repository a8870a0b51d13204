package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

func postSession(t *testing.T, h *SessionHandler, obraID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/obras/"+obraID+"/sessions", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": obraID})
	rr := httptest.NewRecorder()
	h.CreateSession(rr, req)
	return rr
}

func TestCreateSession(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	rr := postSession(t, h, obra.ID.String(), `{"kind":"medicao","sequence":1}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rr.Code, rr.Body.String())
	}

	var created models.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != models.SessionStatusOpen {
		t.Errorf("new session status = %q, expected open", created.Status)
	}
	if created.Sequence != 1 {
		t.Errorf("sequence = %d, expected 1", created.Sequence)
	}
}

func TestCreateSessionDuplicateSequence(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	if rr := postSession(t, h, obra.ID.String(), `{"kind":"medicao","sequence":1}`); rr.Code != http.StatusCreated {
		t.Fatalf("first create: status %d", rr.Code)
	}
	if rr := postSession(t, h, obra.ID.String(), `{"kind":"medicao","sequence":1}`); rr.Code != http.StatusConflict {
		t.Errorf("duplicate create: status %d, expected 409", rr.Code)
	}
	// Same sequence on the other kind is fine: uniqueness is per (obra, kind).
	if rr := postSession(t, h, obra.ID.String(), `{"kind":"aditivo","sequence":1}`); rr.Code != http.StatusCreated {
		t.Errorf("aditivo seq 1: status %d, expected 201", rr.Code)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	tests := []struct {
		name string
		body string
	}{
		{"unknown kind", `{"kind":"orcamento","sequence":1}`},
		{"zero sequence", `{"kind":"medicao","sequence":0}`},
		{"missing kind", `{"sequence":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := postSession(t, h, obra.ID.String(), tt.body); rr.Code != http.StatusBadRequest {
				t.Errorf("status %d, expected 400", rr.Code)
			}
		})
	}
}

func transitionReq(t *testing.T, fn http.HandlerFunc, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/x", nil)
	req = mux.SetURLVars(req, map[string]string{"id": sessionID})
	rr := httptest.NewRecorder()
	fn(rr, req)
	return rr
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	rr := postSession(t, h, obra.ID.String(), `{"kind":"medicao","sequence":1}`)
	var session models.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := session.ID.String()

	// open → blocked
	if rr := transitionReq(t, h.BlockSession, id); rr.Code != http.StatusOK {
		t.Fatalf("block: status %d", rr.Code)
	}
	var got models.Session
	db.First(&got, "id = ?", id)
	if got.Status != models.SessionStatusBlocked {
		t.Fatalf("after block status = %q", got.Status)
	}

	// blocking again is rejected by the transition guard
	if rr := transitionReq(t, h.BlockSession, id); rr.Code != http.StatusConflict {
		t.Errorf("re-block: status %d, expected 409", rr.Code)
	}

	// blocked → open
	if rr := transitionReq(t, h.ReopenSession, id); rr.Code != http.StatusOK {
		t.Fatalf("reopen: status %d", rr.Code)
	}
	db.First(&got, "id = ?", id)
	if got.Status != models.SessionStatusOpen {
		t.Fatalf("after reopen status = %q", got.Status)
	}

	// reopening an open session is rejected
	if rr := transitionReq(t, h.ReopenSession, id); rr.Code != http.StatusConflict {
		t.Errorf("re-reopen: status %d, expected 409", rr.Code)
	}

	// delete, then the obra listing no longer includes it
	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	rr2 := httptest.NewRecorder()
	h.DeleteSession(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rr2.Code)
	}

	var count int64
	db.Model(&models.Session{}).Where("obra_id = ?", obra.ID).Count(&count)
	if count != 0 {
		t.Errorf("sessions remaining after delete: %d", count)
	}
}

func TestTransitionUnknownSession(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)

	if rr := transitionReq(t, h.BlockSession, "3f0c7a1e-0000-0000-0000-000000000000"); rr.Code != http.StatusNotFound {
		t.Errorf("block unknown: status %d, expected 404", rr.Code)
	}
}

func upsertItems(t *testing.T, h *SessionHandler, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/sessions/"+sessionID+"/items", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": sessionID})
	rr := httptest.NewRecorder()
	h.UpsertItems(rr, req)
	return rr
}

func TestUpsertItemsOverwrites(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	rr := postSession(t, h, obra.ID.String(), `{"kind":"medicao","sequence":1}`)
	var session models.Session
	json.Unmarshal(rr.Body.Bytes(), &session)
	id := session.ID.String()

	if rr := upsertItems(t, h, id, `{"items":[{"item_code":"1.1","qtd":10,"pct":25,"total":100}]}`); rr.Code != http.StatusOK {
		t.Fatalf("first upsert: status %d, body %s", rr.Code, rr.Body.String())
	}
	// same key again: overwrite, not duplicate
	if rr := upsertItems(t, h, id, `{"items":[{"item_code":"1.1","qtd":20,"pct":50,"total":200}]}`); rr.Code != http.StatusOK {
		t.Fatalf("second upsert: status %d", rr.Code)
	}

	var items []models.SessionItem
	db.Where("session_id = ?", session.ID).Find(&items)
	if len(items) != 1 {
		t.Fatalf("item rows = %d, expected 1 (upsert semantics)", len(items))
	}
	if items[0].Qtd != 20 || items[0].Total != 200 {
		t.Errorf("item not overwritten: qtd=%v total=%v", items[0].Qtd, items[0].Total)
	}
}

func TestDeleteSessionRemovesItemsFirst(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	rr := postSession(t, h, obra.ID.String(), `{"kind":"medicao","sequence":1}`)
	var session models.Session
	json.Unmarshal(rr.Body.Bytes(), &session)
	id := session.ID.String()

	upsertItems(t, h, id, `{"items":[{"item_code":"1.1","qtd":10},{"item_code":"1.2","qtd":5}]}`)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	rec := httptest.NewRecorder()
	h.DeleteSession(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}

	var itemCount int64
	db.Model(&models.SessionItem{}).Where("session_id = ?", session.ID).Count(&itemCount)
	if itemCount != 0 {
		t.Errorf("item rows remaining after delete: %d", itemCount)
	}
}

func TestDeleteSessionItemFailureKeepsSession(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	rr := postSession(t, h, obra.ID.String(), `{"kind":"medicao","sequence":1}`)
	var session models.Session
	json.Unmarshal(rr.Body.Bytes(), &session)
	id := session.ID.String()

	// Make the child delete fail: the session row must survive the rollback.
	if err := db.Migrator().DropTable(&models.SessionItem{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	rec := httptest.NewRecorder()
	h.DeleteSession(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("delete with failing item cleanup: status %d, expected 500", rec.Code)
	}

	var count int64
	db.Model(&models.Session{}).Where("id = ?", session.ID).Count(&count)
	if count != 1 {
		t.Errorf("session row deleted despite item cleanup failure")
	}
}

func TestGetObraSessionsOrdering(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	// created out of order on purpose
	for _, seq := range []int{3, 1, 2} {
		s := models.Session{ObraID: obra.ID, Kind: models.SessionKindMedicao, Sequence: seq, Status: models.SessionStatusOpen}
		if err := db.Create(&s).Error; err != nil {
			t.Fatalf("create seq %d: %v", seq, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/obras/"+obra.ID.String()+"/sessions", nil)
	req = mux.SetURLVars(req, map[string]string{"id": obra.ID.String()})
	rr := httptest.NewRecorder()
	h.GetObraSessions(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: status %d", rr.Code)
	}

	var resp struct {
		Sessions []models.Session `json:"sessions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Sessions) != 3 {
		t.Fatalf("sessions = %d, expected 3", len(resp.Sessions))
	}
	for i, s := range resp.Sessions {
		if s.Sequence != i+1 {
			t.Errorf("position %d has sequence %d, expected strictly ascending", i, s.Sequence)
		}
	}
}

func TestGetAdjustedItemsBody(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	adjusted := func(body string) *httptest.ResponseRecorder {
		var rd *strings.Reader
		if body == "" {
			rd = strings.NewReader("")
		} else {
			rd = strings.NewReader(body)
		}
		req := httptest.NewRequest(http.MethodPost, "/obras/"+obra.ID.String()+"/items/adjusted", rd)
		req = mux.SetURLVars(req, map[string]string{"id": obra.ID.String()})
		rr := httptest.NewRecorder()
		h.GetAdjustedItems(rr, req)
		return rr
	}

	// empty body means no alias map
	if rr := adjusted(""); rr.Code != http.StatusOK {
		t.Errorf("empty body: status %d, expected 200", rr.Code)
	}
	// a malformed alias_map must fail loudly, not yield unaliased results
	if rr := adjusted(`{"alias_map":{`); rr.Code != http.StatusBadRequest {
		t.Errorf("broken body: status %d, expected 400", rr.Code)
	}
}

func TestGetAdjustedItems(t *testing.T) {
	db := openTestDB(t)
	h := NewSessionHandler(db)
	obra := makeObra(t, db, "OB-001")

	report := models.Report{ObraID: obra.ID, Number: 1, Status: models.ReportStatusDraft}
	if err := db.Create(&report).Error; err != nil {
		t.Fatalf("create report: %v", err)
	}
	if err := db.Create(&models.ReportItem{
		ObraID: obra.ID, ReportID: report.ID, ItemCode: "1.1", PlannedQty: 100,
	}).Error; err != nil {
		t.Fatalf("create report item: %v", err)
	}

	blocked := models.Session{ObraID: obra.ID, Kind: models.SessionKindAditivo, Sequence: 1, Status: models.SessionStatusBlocked}
	open := models.Session{ObraID: obra.ID, Kind: models.SessionKindAditivo, Sequence: 2, Status: models.SessionStatusOpen}
	db.Create(&blocked)
	db.Create(&open)
	db.Create(&models.SessionItem{SessionID: blocked.ID, ItemCode: "1.1", Qtd: 12.5})
	db.Create(&models.SessionItem{SessionID: open.ID, ItemCode: "1.1", Qtd: 99})

	req := httptest.NewRequest(http.MethodPost, "/obras/"+obra.ID.String()+"/items/adjusted", strings.NewReader(`{}`))
	req = mux.SetURLVars(req, map[string]string{"id": obra.ID.String()})
	rr := httptest.NewRecorder()
	h.GetAdjustedItems(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("adjusted: status %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Items []adjustedItem `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, expected 1", len(resp.Items))
	}
	got := resp.Items[0]
	if got.Adjustment != 12.5 {
		t.Errorf("adjustment = %v, expected 12.5 (open session excluded)", got.Adjustment)
	}
	if got.Available != 112.5 {
		t.Errorf("available = %v, expected 112.5", got.Available)
	}
}
