package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/middleware"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/pkg/reconcile"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/utils"
)

// SessionHandler manages the lifecycle of measurement and additive sessions:
// create, block, reopen, delete and the canonical ordered read.
type SessionHandler struct {
	db *gorm.DB
}

func NewSessionHandler(db *gorm.DB) *SessionHandler {
	return &SessionHandler{db: db}
}

type createSessionReq struct {
	Kind     string `json:"kind" validate:"required,oneof=medicao aditivo"`
	Sequence int    `json:"sequence" validate:"required,min=1"`
}

// CreateSession opens a new session for an obra. Sequence uniqueness is
// enforced by the database constraint, not pre-checked: a duplicate
// (obra, kind, sequence) surfaces as 409.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	var req createSessionReq
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

	session := models.Session{
		ObraID:    obra.ID,
		Kind:      req.Kind,
		Sequence:  req.Sequence,
		Status:    models.SessionStatusOpen,
		CreatedBy: middleware.GetUserID(r),
	}
	if err := h.db.Create(&session).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			http.Error(w, "a session with this sequence already exists", http.StatusConflict)
			return
		}
		log.Printf("❌ Failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created %s session seq=%d for obra %s", session.Kind, session.Sequence, obra.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// BlockSession finalizes an open session. Transitions are guarded: blocking
// a session that is not open answers 409 instead of silently re-applying.
func (h *SessionHandler) BlockSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.SessionStatusOpen, models.SessionStatusBlocked)
}

// ReopenSession returns a blocked session to the open state.
func (h *SessionHandler) ReopenSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.SessionStatusBlocked, models.SessionStatusOpen)
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, from, to string) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	var session models.Session
	if err := h.db.First(&session, "id = ?", sessionID).Error; err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if session.Status != from {
		http.Error(w, "session is "+session.Status+", expected "+from, http.StatusConflict)
		return
	}

	if err := h.db.Model(&session).Update("status", to).Error; err != nil {
		log.Printf("❌ Failed to transition session %s to %s: %v", sessionID, to, err)
		http.Error(w, "Failed to update session", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Session %s: %s → %s", sessionID, from, to)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// DeleteSession removes a session and everything it owns. No cascading
// delete is assumed at the storage layer: item entries go first, then the
// session row, inside one transaction. If item deletion fails the session
// row must survive.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	var session models.Session
	if err := h.db.First(&session, "id = ?", sessionID).Error; err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.SessionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&session).Error
	})
	if err != nil {
		log.Printf("❌ Failed to delete session %s: %v", sessionID, err)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Deleted session %s (seq=%d)", sessionID, session.Sequence)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Session deleted successfully"})
}

// GetObraSessions is the canonical read path for session history: sessions
// of an obra in ascending sequence order, each with its nested items.
func (h *SessionHandler) GetObraSessions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	query := h.db.Preload("Items").Where("obra_id = ?", obraID)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var sessions []models.Session
	if err := query.Order("sequence ASC").Find(&sessions).Error; err != nil {
		http.Error(w, "Failed to fetch sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

type upsertItemsReq struct {
	Items []sessionItemInput `json:"items" validate:"required,min=1,dive"`
}

type sessionItemInput struct {
	ItemCode string  `json:"item_code" validate:"required"`
	Qtd      float64 `json:"qtd"`
	Pct      float64 `json:"pct"`
	Total    float64 `json:"total"`
}

// UpsertItems writes a batch of item entries keyed by (session, item_code).
// Repeated codes overwrite rather than duplicate. The batch runs as a single
// statement inside a transaction, so it is all-or-nothing.
func (h *SessionHandler) UpsertItems(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	var req upsertItemsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var session models.Session
	if err := h.db.First(&session, "id = ?", sessionID).Error; err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	entries := make([]models.SessionItem, len(req.Items))
	for i, it := range req.Items {
		entries[i] = models.SessionItem{
			SessionID: session.ID,
			ItemCode:  it.ItemCode,
			Qtd:       it.Qtd,
			Pct:       it.Pct,
			Total:     it.Total,
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "item_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"qtd", "pct", "total", "updated_at"}),
		}).Create(&entries).Error
	})
	if err != nil {
		log.Printf("❌ Failed to upsert %d items on session %s: %v", len(entries), sessionID, err)
		http.Error(w, "Failed to save items", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Upserted %d items on session %s by %s", len(entries), sessionID, middleware.GetUserID(r))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Items saved successfully",
		"count":   len(entries),
	})
}

type adjustedItemsReq struct {
	AliasMap map[string]string `json:"alias_map"`
}

type adjustedItem struct {
	ItemCode   string  `json:"item_code"`
	PlannedQty float64 `json:"planned_qty"`
	Adjustment float64 `json:"adjustment"`
	Available  float64 `json:"available_qty"`
}

// GetAdjustedItems reports, per budget item of an obra, the planned quantity
// plus the signed delta contributed by blocked additive sessions. The alias
// map is optional and bridges the additive item-code namespace onto the
// budget one; an empty body means both share a namespace.
func (h *SessionHandler) GetAdjustedItems(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	// Body is optional; an empty body means no alias map. Anything else must
	// parse, otherwise a broken alias_map would silently yield unaliased
	// results.
	var req adjustedItemsReq
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}

	var obra models.Obra
	if err := h.db.First(&obra, "id = ?", obraID).Error; err != nil {
		http.Error(w, "Obra not found", http.StatusNotFound)
		return
	}

	var additiveSessions []models.Session
	if err := h.db.Preload("Items").
		Where("obra_id = ? AND kind = ?", obra.ID, models.SessionKindAditivo).
		Find(&additiveSessions).Error; err != nil {
		http.Error(w, "Failed to fetch additive sessions", http.StatusInternalServerError)
		return
	}

	// One row per item code with its planned quantity.
	var planned []struct {
		ItemCode   string
		PlannedQty float64
	}
	if err := h.db.Model(&models.ReportItem{}).
		Select("item_code, MAX(planned_qty) as planned_qty").
		Where("obra_id = ?", obra.ID).
		Group("item_code").
		Order("item_code ASC").
		Scan(&planned).Error; err != nil {
		http.Error(w, "Failed to fetch budget items", http.StatusInternalServerError)
		return
	}

	out := make([]adjustedItem, len(planned))
	for i, p := range planned {
		adj := reconcile.Adjustment(p.ItemCode, additiveSessions, req.AliasMap)
		out[i] = adjustedItem{
			ItemCode:   p.ItemCode,
			PlannedQty: p.PlannedQty,
			Adjustment: adj,
			Available:  reconcile.Round4(p.PlannedQty + adj),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"obra_id": obra.ID,
		"items":   out,
	})
}
