package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/meetcute/meetcute-auth/internal/autherr"
	"github.com/meetcute/meetcute-auth/internal/config"
	"github.com/meetcute/meetcute-auth/internal/domain"
	"github.com/meetcute/meetcute-auth/internal/repository"
	"github.com/meetcute/meetcute-auth/internal/security"
)

const (
	verificationTokenBytes = 32
	resetTokenBytes        = 32
	minPasswordLen         = 8
)

// AuthService is the auth lifecycle state machine. All mutable state
// lives in the credential store and the refresh registry; the service
// itself is stateless between calls.
type AuthService struct {
	cfg        *config.Config
	userRepo   repository.UserRepository
	tokenSvc   *TokenService
	totp       *security.TOTPEngine
	dispatcher *AsyncDispatcher
	now        func() time.Time
}

// AuthResult is the success payload for register, login, 2FA login and
// refresh. Register carries no refresh token.
type AuthResult struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

// TwoFactorSetup is returned from EnableTwoFactor. The secret is shown
// exactly once; it is never readable again through the API.
type TwoFactorSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, tokenSvc *TokenService, totp *security.TOTPEngine, dispatcher *AsyncDispatcher) *AuthService {
	return &AuthService{
		cfg:        cfg,
		userRepo:   userRepo,
		tokenSvc:   tokenSvc,
		totp:       totp,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Register creates a pending-verification identity and returns it with
// an access token. Login stays gated on verification; the immediate
// access token allows limited pre-verification use of the product.
func (s *AuthService) Register(ctx context.Context, email, name, password string, role domain.Role) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	role, err := signupRole(role)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, autherr.ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, autherr.Infrastructure("credential store", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	rawToken, err := security.NewRandomString(verificationTokenBytes)
	if err != nil {
		return nil, err
	}
	tokenHash := security.HashToken(rawToken)

	user := &domain.User{
		Email:                 email,
		Name:                  name,
		Role:                  role,
		PasswordHash:          hash,
		IsActive:              true,
		VerificationStatus:    domain.VerificationPending,
		VerificationTokenHash: &tokenHash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, autherr.Infrastructure("credential store", err)
	}

	s.dispatcher.Dispatch(ctx, Message{
		To:       email,
		Subject:  "Verify your MeetCute account",
		Template: "verify-email",
		Data: map[string]any{
			"name": name,
			"link": tokenLink(s.cfg.EmailVerifyBaseURL, rawToken),
		},
	})

	access, err := s.tokenSvc.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access}, nil
}

// Login authenticates email+password and issues an access/refresh pair.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, autherr.ErrTwoFactorRequired
	}
	return s.issueSession(ctx, user)
}

// VerifyTwoFactor is the second leg of a 2FA login: it repeats the full
// credential checks and additionally requires a valid TOTP code.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, email, password, code string) (*AuthResult, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		return nil, autherr.ErrTwoFactorNotEnabled
	}
	if !s.totp.VerifyCode(*user.TOTPSecret, code, s.now()) {
		return nil, autherr.ErrInvalidTwoFactorCode
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token; the presented token is spent whether
// or not its claims are otherwise valid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	access, newRefresh, user, err := s.tokenSvc.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: newRefresh}, nil
}

// VerifyEmail consumes a verification token: status flips to verified
// and the token is cleared in the same persisted update.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, autherr.ErrInvalidToken
	}
	user, err := s.userRepo.FindByVerificationToken(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.ErrInvalidToken
		}
		return nil, autherr.Infrastructure("credential store", err)
	}
	verifiedAt := s.now().UTC()
	if err := s.userRepo.MarkVerified(ctx, user.ID, verifiedAt); err != nil {
		return nil, autherr.Infrastructure("credential store", err)
	}
	user.VerificationStatus = domain.VerificationVerified
	user.VerificationTokenHash = nil
	user.VerifiedAt = &verifiedAt
	return user, nil
}

// RequestPasswordReset always reports success. Unknown emails are
// silently ignored so the endpoint cannot be used for enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return autherr.Infrastructure("credential store", err)
	}

	rawToken, err := security.NewRandomString(resetTokenBytes)
	if err != nil {
		return err
	}
	expiry := s.now().UTC().Add(s.cfg.PasswordResetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, security.HashToken(rawToken), expiry); err != nil {
		return autherr.Infrastructure("credential store", err)
	}

	s.dispatcher.Dispatch(ctx, Message{
		To:       user.Email,
		Subject:  "Reset your MeetCute password",
		Template: "password-reset",
		Data: map[string]any{
			"name":       user.Name,
			"link":       tokenLink(s.cfg.PasswordResetBaseURL, rawToken),
			"expires_at": expiry,
		},
	})
	return nil
}

// ResetPassword consumes a reset token, rehashes the password and bumps
// the token-version fence, revoking every previously issued token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error) {
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, autherr.ErrInvalidToken
	}
	user, err := s.userRepo.FindByResetToken(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.ErrInvalidToken
		}
		return nil, autherr.Infrastructure("credential store", err)
	}
	if user.ResetTokenExpiry == nil || s.now().After(*user.ResetTokenExpiry) {
		return nil, autherr.ErrTokenExpired
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.ResetPassword(ctx, user.ID, hash); err != nil {
		return nil, autherr.Infrastructure("credential store", err)
	}
	if err := s.userRepo.IncrementTokenVersion(ctx, user.ID); err != nil {
		return nil, autherr.Infrastructure("credential store", err)
	}

	user.PasswordHash = hash
	user.ResetTokenHash = nil
	user.ResetTokenExpiry = nil
	user.TokenVersion++
	return user, nil
}

// Logout drops the live refresh session. Safe to call repeatedly.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	return s.tokenSvc.RevokeSession(ctx, userID)
}

// EnableTwoFactor provisions a TOTP secret. The flag stays false until
// ConfirmTwoFactor sees a first valid code, so a half-finished
// enrollment can never lock the user out.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID uint) (*TwoFactorSetup, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Re-provisioning would overwrite the active secret with the flag
	// off; an active enrollment only comes off through DisableTwoFactor,
	// which demands a valid code.
	if user.TOTPEnabled {
		return nil, autherr.ErrTwoFactorEnabled
	}
	secret, uri, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetTOTPSecret(ctx, user.ID, secret); err != nil {
		return nil, autherr.Infrastructure("credential store", err)
	}
	return &TwoFactorSetup{Secret: secret, ProvisioningURI: uri}, nil
}

// ConfirmTwoFactor activates a provisioned secret after the caller
// proves their authenticator produces valid codes.
func (s *AuthService) ConfirmTwoFactor(ctx context.Context, userID uint, code string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == nil {
		return autherr.ErrTwoFactorNotEnabled
	}
	if !s.totp.VerifyCode(*user.TOTPSecret, code, s.now()) {
		return autherr.ErrInvalidTwoFactorCode
	}
	if user.TOTPEnabled {
		return nil
	}
	if err := s.userRepo.EnableTOTP(ctx, user.ID); err != nil {
		return autherr.Infrastructure("credential store", err)
	}
	return nil
}

// DisableTwoFactor requires a currently valid code and clears secret
// and flag in one update; a bad code mutates nothing.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID uint, code string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		return autherr.ErrTwoFactorNotEnabled
	}
	if !s.totp.VerifyCode(*user.TOTPSecret, code, s.now()) {
		return autherr.ErrInvalidTwoFactorCode
	}
	if err := s.userRepo.DisableTOTP(ctx, user.ID); err != nil {
		return autherr.Infrastructure("credential store", err)
	}
	return nil
}

// authenticate runs the shared credential checks for login and the 2FA
// leg: password first, then administrative and verification gates.
func (s *AuthService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.ErrInvalidCredentials
		}
		return nil, autherr.Infrastructure("credential store", err)
	}
	ok, err := security.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, autherr.Infrastructure("password verify", err)
	}
	if !ok {
		return nil, autherr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, autherr.ErrAccountDisabled
	}
	if !user.Verified() {
		return nil, autherr.ErrEmailNotVerified
	}
	return user, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	access, refresh, err := s.tokenSvc.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	loginAt := s.now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, loginAt); err != nil {
		return nil, autherr.Infrastructure("credential store", err)
	}
	user.LastLoginAt = &loginAt
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) findUser(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, autherr.ErrUserNotFound
		}
		return nil, autherr.Infrastructure("credential store", err)
	}
	return user, nil
}

func signupRole(role domain.Role) (domain.Role, error) {
	switch role {
	case "":
		return domain.RoleUser, nil
	case domain.RoleUser, domain.RolePartner:
		return role, nil
	default:
		return "", fmt.Errorf("role %q cannot be self-assigned", role)
	}
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

func tokenLink(baseURL, token string) string {
	if strings.TrimSpace(baseURL) == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
