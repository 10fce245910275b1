package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/meetcute/meetcute-auth/internal/autherr"
	"github.com/meetcute/meetcute-auth/internal/domain"
	"github.com/meetcute/meetcute-auth/internal/registry"
	"github.com/meetcute/meetcute-auth/internal/repository"
	"github.com/meetcute/meetcute-auth/internal/security"
)

// TokenService mints access/refresh pairs and enforces the two refresh
// validation factors: the token-version fence on the identity record
// and the exact-match check against the refresh registry.
type TokenService struct {
	jwtMgr     *security.JWTManager
	sessions   registry.RefreshTokenRegistry
	userRepo   repository.UserRepository
	pepper     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, sessions registry.RefreshTokenRegistry, userRepo repository.UserRepository, pepper string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		jwtMgr:     jwtMgr,
		sessions:   sessions,
		userRepo:   userRepo,
		pepper:     pepper,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (s *TokenService) IssueAccess(user *domain.User) (string, error) {
	return s.jwtMgr.SignAccessToken(user, s.accessTTL)
}

// IssuePair signs a fresh access+refresh pair and stores the refresh
// token hash in the registry, displacing any previous session.
func (s *TokenService) IssuePair(ctx context.Context, user *domain.User) (access, refresh string, err error) {
	access, err = s.jwtMgr.SignAccessToken(user, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.jwtMgr.SignRefreshToken(user, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	hash := security.HashRefreshToken(refresh, s.pepper)
	if err := s.sessions.Store(ctx, user.ID, hash, s.refreshTTL); err != nil {
		return "", "", autherr.Infrastructure("refresh registry", err)
	}
	return access, refresh, nil
}

// Rotate validates a refresh token and exchanges it for a new pair.
// Validation order: signature/expiry, identity active, token-version
// fence, registry match. The registry entry is overwritten on success,
// which revokes the presented token.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (access, newRefresh string, user *domain.User, err error) {
	claims, err := s.jwtMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", "", nil, autherr.ErrInvalidRefreshToken
	}
	userID, err := security.SubjectID(claims.Subject)
	if err != nil {
		return "", "", nil, autherr.ErrInvalidRefreshToken
	}

	user, err = s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", nil, autherr.ErrInvalidRefreshToken
		}
		return "", "", nil, autherr.Infrastructure("credential store", err)
	}
	if !user.IsActive {
		return "", "", nil, autherr.ErrAccountDisabled
	}
	if claims.TokenVersion != user.TokenVersion {
		return "", "", nil, autherr.ErrTokenVersionMismatch
	}

	current, err := s.sessions.Fetch(ctx, userID)
	if err != nil {
		if errors.Is(err, registry.ErrNoSession) {
			return "", "", nil, autherr.ErrInvalidRefreshToken
		}
		return "", "", nil, autherr.Infrastructure("refresh registry", err)
	}
	presented := security.HashRefreshToken(refreshToken, s.pepper)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(current)) != 1 {
		return "", "", nil, autherr.ErrInvalidRefreshToken
	}

	access, newRefresh, err = s.IssuePair(ctx, user)
	if err != nil {
		return "", "", nil, err
	}
	return access, newRefresh, user, nil
}

// RevokeSession drops the registry entry. Idempotent.
func (s *TokenService) RevokeSession(ctx context.Context, userID uint) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return autherr.Infrastructure("refresh registry", err)
	}
	return nil
}
