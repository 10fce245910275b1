package service

import (
	"context"

	"github.com/meetcute/meetcute-auth/internal/domain"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, email, name, password string, role domain.Role) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	VerifyTwoFactor(ctx context.Context, email, password, code string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	VerifyEmail(ctx context.Context, token string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error)
	Logout(ctx context.Context, userID uint) error
	EnableTwoFactor(ctx context.Context, userID uint) (*TwoFactorSetup, error)
	ConfirmTwoFactor(ctx context.Context, userID uint, code string) error
	DisableTwoFactor(ctx context.Context, userID uint, code string) error
}
