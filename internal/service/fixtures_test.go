package service

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	"github.com/meetcute/meetcute-auth/internal/config"
	"github.com/meetcute/meetcute-auth/internal/domain"
	"github.com/meetcute/meetcute-auth/internal/registry"
	"github.com/meetcute/meetcute-auth/internal/repository"
	"github.com/meetcute/meetcute-auth/internal/security"
)

const (
	fixtureAccessSecret  = "fixture-access-secret-0123456789abcdef"
	fixtureRefreshSecret = "fixture-refresh-secret-0123456789abcdef"
	fixturePepper        = "fixture-pepper-0123456789"
)

// memoryUserRepo is an in-memory UserRepository honouring the same
// contracts as the gorm adapter: case-sensitive email lookup,
// per-operation column updates, ErrNotFound for missing rows.
type memoryUserRepo struct {
	mu    sync.Mutex
	seq   uint
	users map[uint]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *memoryUserRepo) FindByID(_ context.Context, id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) FindByVerificationToken(_ context.Context, tokenHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.VerificationTokenHash != nil && *u.VerificationTokenHash == tokenHash {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = r.seq
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryUserRepo) mutate(id uint, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUserRepo) MarkVerified(_ context.Context, id uint, at time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.VerificationStatus = domain.VerificationVerified
		u.VerifiedAt = &at
		u.VerificationTokenHash = nil
	})
}

func (r *memoryUserRepo) SetResetToken(_ context.Context, id uint, tokenHash string, expiry time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.ResetTokenHash = &tokenHash
		u.ResetTokenExpiry = &expiry
	})
}

func (r *memoryUserRepo) ResetPassword(_ context.Context, id uint, passwordHash string) error {
	return r.mutate(id, func(u *domain.User) {
		u.PasswordHash = passwordHash
		u.ResetTokenHash = nil
		u.ResetTokenExpiry = nil
	})
}

func (r *memoryUserRepo) SetTOTPSecret(_ context.Context, id uint, secret string) error {
	return r.mutate(id, func(u *domain.User) {
		u.TOTPSecret = &secret
		u.TOTPEnabled = false
	})
}

func (r *memoryUserRepo) EnableTOTP(_ context.Context, id uint) error {
	return r.mutate(id, func(u *domain.User) { u.TOTPEnabled = true })
}

func (r *memoryUserRepo) DisableTOTP(_ context.Context, id uint) error {
	return r.mutate(id, func(u *domain.User) {
		u.TOTPSecret = nil
		u.TOTPEnabled = false
	})
}

func (r *memoryUserRepo) TouchLastLogin(_ context.Context, id uint, at time.Time) error {
	return r.mutate(id, func(u *domain.User) { u.LastLoginAt = &at })
}

func (r *memoryUserRepo) IncrementTokenVersion(_ context.Context, id uint) error {
	return r.mutate(id, func(u *domain.User) { u.TokenVersion++ })
}

func (r *memoryUserRepo) SoftDelete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// setActive flips the administrative flag directly; production code has
// no self-service path for it.
func (r *memoryUserRepo) setActive(t *testing.T, id uint, active bool) {
	t.Helper()
	if err := r.mutate(id, func(u *domain.User) { u.IsActive = active }); err != nil {
		t.Fatalf("set active: %v", err)
	}
}

// recordingNotifier captures every message synchronously.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Message
}

func (n *recordingNotifier) Send(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.sent))
	copy(out, n.sent)
	return out
}

type authFixture struct {
	svc      *AuthService
	tokens   *TokenService
	repo     *memoryUserRepo
	sessions registry.RefreshTokenRegistry
	notifier *recordingNotifier
	totp     *security.TOTPEngine
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtMgr, err := security.NewJWTManager(fixtureAccessSecret, fixtureRefreshSecret, "meetcute-auth", "meetcute-api")
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}

	cfg := &config.Config{
		JWTAccessTTL:          15 * time.Minute,
		JWTRefreshTTL:         7 * 24 * time.Hour,
		PasswordResetTokenTTL: time.Hour,
		EmailVerifyBaseURL:    "https://app.meetcute.example/verify-email",
		PasswordResetBaseURL:  "https://app.meetcute.example/reset-password",
		TOTPIssuer:            "MeetCute",
	}

	f := &authFixture{
		repo:     newMemoryUserRepo(),
		sessions: registry.NewRedisRefreshTokenRegistry(client, "refresh_session"),
		notifier: &recordingNotifier{},
		totp:     security.NewTOTPEngine(cfg.TOTPIssuer),
		now:      time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC),
	}
	f.tokens = NewTokenService(jwtMgr, f.sessions, f.repo, fixturePepper, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := NewAsyncDispatcher(f.notifier, logger)
	t.Cleanup(dispatcher.Wait)

	f.svc = NewAuthService(cfg, f.repo, f.tokens, f.totp, dispatcher)
	f.svc.now = func() time.Time { return f.now }
	return f
}

// lastMessage waits for the async dispatcher to land the most recent
// notification and returns it.
func (f *authFixture) lastMessage(t *testing.T) Message {
	t.Helper()
	f.svc.dispatcher.Wait()
	msgs := f.notifier.messages()
	if len(msgs) == 0 {
		t.Fatal("no notification was sent")
	}
	return msgs[len(msgs)-1]
}

// tokenFromMessage extracts the raw one-off token from the emailed link.
func tokenFromMessage(t *testing.T, msg Message) string {
	t.Helper()
	link, _ := msg.Data["link"].(string)
	if link == "" {
		t.Fatalf("message %q has no link", msg.Template)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("link %q carries no token", link)
	}
	return token
}

// registerVerified drives a user through register and verify-email so
// login-path tests start from a verified identity.
func (f *authFixture) registerVerified(t *testing.T, email, password string) *domain.User {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, email, "Test User", password, ""); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	token := tokenFromMessage(t, f.lastMessage(t))
	user, err := f.svc.VerifyEmail(ctx, token)
	if err != nil {
		t.Fatalf("verify email: %v", err)
	}
	return user
}

// totpCode derives the current authenticator code for a user enrolled
// in two-factor.
func (f *authFixture) totpCode(t *testing.T, userID uint) string {
	t.Helper()
	user, err := f.repo.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.TOTPSecret == nil {
		t.Fatal("user has no totp secret")
	}
	return totpCodeAt(t, *user.TOTPSecret, f.now)
}

func totpCodeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}
