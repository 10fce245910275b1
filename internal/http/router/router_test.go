package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meetcute/meetcute-auth/internal/domain"
	"github.com/meetcute/meetcute-auth/internal/health"
	"github.com/meetcute/meetcute-auth/internal/http/handler"
	"github.com/meetcute/meetcute-auth/internal/security"
	"github.com/meetcute/meetcute-auth/internal/service"
)

type failingChecker string

func (c failingChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Name: string(c), Healthy: false, Error: "down"}
}

type noopAuthService struct{}

func (noopAuthService) Register(context.Context, string, string, string, domain.Role) (*service.AuthResult, error) {
	return &service.AuthResult{User: &domain.User{ID: 1}, AccessToken: "a"}, nil
}

func (noopAuthService) Login(context.Context, string, string) (*service.AuthResult, error) {
	return &service.AuthResult{User: &domain.User{ID: 1}, AccessToken: "a", RefreshToken: "r"}, nil
}

func (noopAuthService) VerifyTwoFactor(context.Context, string, string, string) (*service.AuthResult, error) {
	return &service.AuthResult{User: &domain.User{ID: 1}, AccessToken: "a", RefreshToken: "r"}, nil
}

func (noopAuthService) Refresh(context.Context, string) (*service.AuthResult, error) {
	return &service.AuthResult{User: &domain.User{ID: 1}, AccessToken: "a", RefreshToken: "r"}, nil
}

func (noopAuthService) VerifyEmail(context.Context, string) (*domain.User, error) {
	return &domain.User{ID: 1}, nil
}

func (noopAuthService) RequestPasswordReset(context.Context, string) error { return nil }

func (noopAuthService) ResetPassword(context.Context, string, string) (*domain.User, error) {
	return &domain.User{ID: 1}, nil
}

func (noopAuthService) Logout(context.Context, uint) error { return nil }

func (noopAuthService) EnableTwoFactor(context.Context, uint) (*service.TwoFactorSetup, error) {
	return &service.TwoFactorSetup{Secret: "s", ProvisioningURI: "otpauth://totp/x"}, nil
}

func (noopAuthService) ConfirmTwoFactor(context.Context, uint, string) error { return nil }

func (noopAuthService) DisableTwoFactor(context.Context, uint, string) error { return nil }

func newRouterForTest(t *testing.T) (http.Handler, *security.JWTManager) {
	t.Helper()
	jwtMgr, err := security.NewJWTManager(
		"access-secret-0123456789-0123456789",
		"refresh-secret-0123456789-0123456789",
		"meetcute-auth", "meetcute-api",
	)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	h := NewRouter(Dependencies{
		AuthHandler:        handler.NewAuthHandler(noopAuthService{}),
		JWTManager:         jwtMgr,
		CORSOrigins:        []string{"https://app.meetcute.example"},
		AuthRateLimitRPM:   1000,
		ForgotRateLimitRPM: 1000,
		APIRateLimitRPM:    1000,
	})
	return h, jwtMgr
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newRouterForTest(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready with no checkers: got %d", rec.Code)
	}
}

func TestReadyReportsUnhealthyDependency(t *testing.T) {
	jwtMgr, err := security.NewJWTManager(
		"access-secret-0123456789-0123456789",
		"refresh-secret-0123456789-0123456789",
		"meetcute-auth", "meetcute-api",
	)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	h := NewRouter(Dependencies{
		AuthHandler:        handler.NewAuthHandler(noopAuthService{}),
		JWTManager:         jwtMgr,
		AuthRateLimitRPM:   1000,
		ForgotRateLimitRPM: 1000,
		APIRateLimitRPM:    1000,
		Readiness:          health.NewProbeRunner(time.Second, 0, failingChecker("redis")),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: got %d", rec.Code)
	}
}

func TestPublicRoutesAreRegistered(t *testing.T) {
	h, _ := newRouterForTest(t)

	routes := []string{
		"/api/v1/auth/register",
		"/api/v1/auth/login",
		"/api/v1/auth/login/2fa",
		"/api/v1/auth/refresh",
		"/api/v1/auth/verify-email",
		"/api/v1/auth/password/forgot",
		"/api/v1/auth/password/reset",
	}
	for _, route := range routes {
		req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
			t.Fatalf("route %s not registered: %d", route, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	h, jwtMgr := newRouterForTest(t)

	protected := []string{
		"/api/v1/auth/logout",
		"/api/v1/auth/2fa/setup",
		"/api/v1/auth/2fa/confirm",
		"/api/v1/auth/2fa/disable",
	}
	for _, route := range protected {
		req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("route %s without token: got %d", route, rec.Code)
		}
	}

	access, err := jwtMgr.SignAccessToken(&domain.User{ID: 1, Email: "alice@example.com", Role: domain.RoleUser}, time.Minute)
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized logout: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "logged_out" {
		t.Fatalf("unexpected payload: %v", body)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	h, _ := newRouterForTest(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("X-Content-Type-Options header missing")
	}
}
