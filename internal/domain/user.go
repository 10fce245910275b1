package domain

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser       Role = "user"
	RolePartner    Role = "partner"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// User is the identity record backing the auth core. Token and secret
// columns are hashed at rest and never serialized.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string `gorm:"size:255;not null" json:"name"`
	Role         Role   `gorm:"size:32;not null;default:user" json:"role"`
	PasswordHash string `gorm:"size:1024;not null" json:"-"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`

	VerificationStatus    VerificationStatus `gorm:"size:32;not null;default:pending;index:idx_users_verification_status" json:"verification_status"`
	VerificationTokenHash *string            `gorm:"size:128;uniqueIndex" json:"-"`
	VerifiedAt            *time.Time         `json:"verified_at,omitempty"`

	ResetTokenHash   *string    `gorm:"size:128;uniqueIndex" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	TOTPSecret  *string `gorm:"size:255" json:"-"`
	TOTPEnabled bool    `gorm:"not null;default:false" json:"totp_enabled"`

	// TokenVersion fences previously issued tokens: every password reset
	// bumps it and all older access/refresh tokens stop validating.
	TokenVersion int `gorm:"not null;default:0" json:"-"`

	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Verified() bool {
	return u.VerificationStatus == VerificationVerified
}
