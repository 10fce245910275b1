package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meetcute/meetcute-auth/internal/domain"
	"github.com/meetcute/meetcute-auth/internal/security"
)

// SeedBootstrapAdmin creates the initial admin identity if it does not
// exist yet. Returns the one-time generated password when a new record
// was created, empty string otherwise.
func SeedBootstrapAdmin(db *gorm.DB, email string) (string, error) {
	if email == "" {
		return "", nil
	}
	var existing domain.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	password, err := security.NewRandomString(24)
	if err != nil {
		return "", err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	admin := &domain.User{
		Email:              email,
		Name:               "Bootstrap Admin",
		Role:               domain.RoleSuperAdmin,
		PasswordHash:       hash,
		IsActive:           true,
		VerificationStatus: domain.VerificationVerified,
		VerifiedAt:         &now,
	}
	if err := db.Create(admin).Error; err != nil {
		return "", fmt.Errorf("seed bootstrap admin: %w", err)
	}
	return password, nil
}
