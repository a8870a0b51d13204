package handlers

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

// openTestDB creates an in-memory sqlite DB with the application schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.PasswordResetCode{},
		&models.Obra{}, &models.Report{}, &models.ReportItem{},
		&models.Session{}, &models.SessionItem{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeObra(t *testing.T, db *gorm.DB, code string) models.Obra {
	t.Helper()
	obra := models.Obra{Code: code, Name: "Obra " + code, Status: "active"}
	if err := db.Create(&obra).Error; err != nil {
		t.Fatalf("create obra: %v", err)
	}
	return obra
}
