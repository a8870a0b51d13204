package config

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

// SeedAdminUser creates the bootstrap admin account when the users table is
// empty. Password comes from ADMIN_PASSWORD; seeding is skipped when the
// variable is unset.
func SeedAdminUser() {
	var count int64
	if err := DB.Model(&models.User{}).Count(&count).Error; err != nil {
		log.Printf("❌ Failed to check users table: %v", err)
		return
	}
	if count > 0 {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Println("ADMIN_PASSWORD not set, skipping admin seeding")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash admin password: %v", err)
		return
	}

	admin := models.User{
		Name:         "Administrador",
		Email:        "admin@defensoria.local",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("❌ Failed to seed admin user: %v", err)
		return
	}
	log.Println("✅ Seeded default admin user")
}
