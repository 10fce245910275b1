package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/meetcute/meetcute-auth/internal/domain"
)

// ErrNotFound is returned for any lookup that matches no live record.
var ErrNotFound = errors.New("record not found")

// UserRepository is the credential store adapter. Mutations are
// allow-listed per operation: each method updates exactly the columns
// its lifecycle step owns, in a single UPDATE.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByVerificationToken(ctx context.Context, tokenHash string) (*domain.User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error

	MarkVerified(ctx context.Context, id uint, at time.Time) error
	SetResetToken(ctx context.Context, id uint, tokenHash string, expiry time.Time) error
	ResetPassword(ctx context.Context, id uint, passwordHash string) error
	SetTOTPSecret(ctx context.Context, id uint, secret string) error
	EnableTOTP(ctx context.Context, id uint) error
	DisableTOTP(ctx context.Context, id uint) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	IncrementTokenVersion(ctx context.Context, id uint) error
	SoftDelete(ctx context.Context, id uint) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByVerificationToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("verification_token_hash = ?", tokenHash).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("reset_token_hash = ?", tokenHash).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) MarkVerified(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"verification_status":     domain.VerificationVerified,
		"verified_at":             at,
		"verification_token_hash": nil,
	})
}

func (r *GormUserRepository) SetResetToken(ctx context.Context, id uint, tokenHash string, expiry time.Time) error {
	return r.update(ctx, id, map[string]any{
		"reset_token_hash":   tokenHash,
		"reset_token_expiry": expiry,
	})
}

func (r *GormUserRepository) ResetPassword(ctx context.Context, id uint, passwordHash string) error {
	return r.update(ctx, id, map[string]any{
		"password_hash":      passwordHash,
		"reset_token_hash":   nil,
		"reset_token_expiry": nil,
	})
}

func (r *GormUserRepository) SetTOTPSecret(ctx context.Context, id uint, secret string) error {
	return r.update(ctx, id, map[string]any{
		"totp_secret":  secret,
		"totp_enabled": false,
	})
}

func (r *GormUserRepository) EnableTOTP(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]any{"totp_enabled": true})
}

func (r *GormUserRepository) DisableTOTP(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]any{
		"totp_secret":  nil,
		"totp_enabled": false,
	})
}

func (r *GormUserRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_login_at": at})
}

// IncrementTokenVersion bumps the fencing counter in the database, not
// in application code, so concurrent resets cannot lose an update.
func (r *GormUserRepository) IncrementTokenVersion(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) update(ctx context.Context, id uint, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
