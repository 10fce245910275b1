package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/meetcute/meetcute-auth/internal/autherr"
	"github.com/meetcute/meetcute-auth/internal/domain"
	"github.com/meetcute/meetcute-auth/internal/http/middleware"
	"github.com/meetcute/meetcute-auth/internal/http/response"
	"github.com/meetcute/meetcute-auth/internal/observability"
	"github.com/meetcute/meetcute-auth/internal/security"
	"github.com/meetcute/meetcute-auth/internal/service"
)

type AuthHandler struct {
	authSvc service.AuthServiceInterface
}

func NewAuthHandler(authSvc service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

type registerRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type twoFactorLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "register", outcome, time.Since(start))
	}()

	var req registerRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	result, err := h.authSvc.Register(r.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.register.failed", "email", req.Email)
		observability.RecordAuthRegister(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.register.success", "user_id", result.User.ID)
	observability.RecordAuthRegister(r.Context(), "success")
	response.JSON(w, r, http.StatusCreated, result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", outcome, time.Since(start))
	}()

	var req loginRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.login.failed", "reason", string(autherr.From(err).Code))
		observability.RecordAuthLogin(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login.success", "user_id", result.User.ID)
	observability.RecordAuthLogin(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) LoginTwoFactor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login_2fa", outcome, time.Since(start))
	}()

	var req twoFactorLoginRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	result, err := h.authSvc.VerifyTwoFactor(r.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.login_2fa.failed", "reason", string(autherr.From(err).Code))
		observability.RecordTwoFactor(r.Context(), "login", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login_2fa.success", "user_id", result.User.ID)
	observability.RecordTwoFactor(r.Context(), "login", "success")
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "refresh", outcome, time.Since(start))
	}()

	var req refreshRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	result, err := h.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.refresh.failed", "reason", string(autherr.From(err).Code))
		observability.RecordAuthRefresh(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.refresh.success", "user_id", result.User.ID)
	observability.RecordAuthRefresh(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "verify_email", outcome, time.Since(start))
	}()

	var req tokenRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	user, err := h.authSvc.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.verify_email.failed")
		observability.RecordEmailVerification(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.verify_email.success", "user_id", user.ID)
	observability.RecordEmailVerification(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "forgot_password", outcome, time.Since(start))
	}()

	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	if err := h.authSvc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		outcome = "failure"
		observability.RecordPasswordReset(r.Context(), "request", "failure")
		writeServiceError(w, r, err)
		return
	}
	// Identical response whether or not the email exists.
	observability.RecordPasswordReset(r.Context(), "request", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "reset_password", outcome, time.Since(start))
	}()

	var req resetPasswordRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	user, err := h.authSvc.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.reset_password.failed", "reason", string(autherr.From(err).Code))
		observability.RecordPasswordReset(r.Context(), "reset", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.reset_password.success", "user_id", user.ID)
	observability.RecordPasswordReset(r.Context(), "reset", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", outcome, time.Since(start))
	}()

	userID, ok := subjectFromContext(w, r)
	if !ok {
		outcome = "failure"
		return
	}
	if err := h.authSvc.Logout(r.Context(), userID); err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.logout.failed", "user_id", userID)
		observability.RecordAuthLogout(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.logout.success", "user_id", userID)
	observability.RecordAuthLogout(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "2fa_setup", outcome, time.Since(start))
	}()

	userID, ok := subjectFromContext(w, r)
	if !ok {
		outcome = "failure"
		return
	}
	setup, err := h.authSvc.EnableTwoFactor(r.Context(), userID)
	if err != nil {
		outcome = "failure"
		observability.RecordTwoFactor(r.Context(), "setup", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.2fa.setup", "user_id", userID)
	observability.RecordTwoFactor(r.Context(), "setup", "success")
	response.JSON(w, r, http.StatusOK, setup)
}

func (h *AuthHandler) ConfirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "2fa_confirm", outcome, time.Since(start))
	}()

	userID, ok := subjectFromContext(w, r)
	if !ok {
		outcome = "failure"
		return
	}
	var req twoFactorCodeRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	if err := h.authSvc.ConfirmTwoFactor(r.Context(), userID, req.Code); err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.2fa.confirm.failed", "user_id", userID)
		observability.RecordTwoFactor(r.Context(), "confirm", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.2fa.confirm.success", "user_id", userID)
	observability.RecordTwoFactor(r.Context(), "confirm", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "enabled"})
}

func (h *AuthHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "2fa_disable", outcome, time.Since(start))
	}()

	userID, ok := subjectFromContext(w, r)
	if !ok {
		outcome = "failure"
		return
	}
	var req twoFactorCodeRequest
	if !decode(w, r, &req) {
		outcome = "failure"
		return
	}
	if err := h.authSvc.DisableTwoFactor(r.Context(), userID, req.Code); err != nil {
		outcome = "failure"
		observability.Audit(r, "auth.2fa.disable.failed", "user_id", userID)
		observability.RecordTwoFactor(r.Context(), "disable", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.2fa.disable.success", "user_id", userID)
	observability.RecordTwoFactor(r.Context(), "disable", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "disabled"})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return false
	}
	return true
}

func subjectFromContext(w http.ResponseWriter, r *http.Request) (uint, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return 0, false
	}
	userID, err := security.SubjectID(claims.Subject)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid subject", nil)
		return 0, false
	}
	return userID, true
}

// writeServiceError maps typed auth failures to their transport shape.
// Validation errors from the service arrive untyped and map to 400.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var typed *autherr.Error
	if errors.As(err, &typed) {
		response.Error(w, r, typed.Status, string(typed.Code), typed.Message, nil)
		return
	}
	response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
}
