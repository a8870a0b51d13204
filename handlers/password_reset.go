package handlers

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

// Reset codes are exactly 6 numeric digits, valid for 15 minutes and
// single-use: the used flag is checked alongside expiry.
const resetCodeTTL = 15 * time.Minute

// PasswordResetHandler issues and verifies account recovery codes.
type PasswordResetHandler struct {
	db *gorm.DB
}

func NewPasswordResetHandler(db *gorm.DB) *PasswordResetHandler {
	return &PasswordResetHandler{db: db}
}

type requestResetReq struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestReset issues a fresh 6-digit code for the account. The success
// response carries no payload; delivery of the code (e-mail) happens outside
// this service.
func (h *PasswordResetHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		writeJSONError(w, http.StatusNotFound, "account not found")
		return
	}

	code, err := generateResetCode()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not generate code")
		return
	}

	entry := models.PasswordResetCode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(resetCodeTTL),
	}
	if err := h.db.Create(&entry).Error; err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not store code")
		return
	}

	log.Printf("✅ Issued password reset code for user %s", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

type verifyCodeReq struct {
	Code string `json:"code"`
}

// VerifyCode checks a submitted recovery code and, when valid, marks it used
// and returns the associated account identifier.
func (h *PasswordResetHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !isSixDigits(req.Code) {
		writeJSONError(w, http.StatusBadRequest, "code must be exactly 6 digits")
		return
	}

	var entry models.PasswordResetCode
	err := h.db.
		Where("code = ? AND used = ?", req.Code, false).
		Where("expires_at > ?", time.Now()).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid or expired code")
		return
	}

	if err := h.db.Model(&entry).Update("used", true).Error; err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not consume code")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"valid":   true,
		"user_id": entry.UserID,
	})
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
