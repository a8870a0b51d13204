package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250210_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Obra{},
					&models.Report{}, &models.ReportItem{})
			},
		},
		{
			ID: "20250218_create_session_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Session{}, &models.SessionItem{})
			},
		},
		{
			ID: "20250305_create_audit_log",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.AuditLog{})
			},
		},
		{
			ID: "20250412_create_password_reset_codes",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.PasswordResetCode{})
			},
		},
	})
	return m.Migrate()
}
