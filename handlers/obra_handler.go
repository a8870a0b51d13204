package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/middleware"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
	"github.com/adrianocbaa/defensoria-fogo-control-sub005/utils"
)

// ObraHandler manages construction projects, the scoping parent of every
// session, report and budget item.
type ObraHandler struct {
	db *gorm.DB
}

func NewObraHandler(db *gorm.DB) *ObraHandler {
	return &ObraHandler{db: db}
}

type createObraReq struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	City        string `json:"city"`
}

func (h *ObraHandler) CreateObra(w http.ResponseWriter, r *http.Request) {
	var req createObraReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	obra := models.Obra{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		City:        req.City,
		Status:      "active",
		CreatedBy:   middleware.GetUserID(r),
	}
	if err := h.db.Create(&obra).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			http.Error(w, "an obra with this code already exists", http.StatusConflict)
			return
		}
		log.Printf("❌ Failed to create obra: %v", err)
		http.Error(w, "Failed to create obra", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created obra %s (%s)", obra.Code, obra.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(obra)
}

func (h *ObraHandler) GetAllObras(w http.ResponseWriter, r *http.Request) {
	query := h.db.Order("code ASC")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var obras []models.Obra
	if err := query.Find(&obras).Error; err != nil {
		http.Error(w, "Failed to fetch obras", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"obras": obras,
		"count": len(obras),
	})
}

func (h *ObraHandler) GetObra(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	var obra models.Obra
	if err := h.db.First(&obra, "id = ?", obraID).Error; err != nil {
		http.Error(w, "Obra not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(obra)
}

type updateObraReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	City        string `json:"city"`
	Status      string `json:"status" validate:"omitempty,oneof=active paused finished"`
}

func (h *ObraHandler) UpdateObra(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	obraID := vars["id"]

	var req updateObraReq
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

	if req.Name != "" {
		obra.Name = req.Name
	}
	if req.Description != "" {
		obra.Description = req.Description
	}
	if req.City != "" {
		obra.City = req.City
	}
	if req.Status != "" {
		obra.Status = req.Status
	}

	if err := h.db.Save(&obra).Error; err != nil {
		log.Printf("❌ Failed to update obra %s: %v", obraID, err)
		http.Error(w, "Failed to update obra", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(obra)
}
