package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/meetcute/meetcute-auth/internal/health"
	"github.com/meetcute/meetcute-auth/internal/http/handler"
	"github.com/meetcute/meetcute-auth/internal/http/middleware"
	"github.com/meetcute/meetcute-auth/internal/http/response"
	"github.com/meetcute/meetcute-auth/internal/security"
)

type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	JWTManager         *security.JWTManager
	CORSOrigins        []string
	AuthRateLimitRPM   int
	ForgotRateLimitRPM int
	APIRateLimitRPM    int
	Readiness          *health.ProbeRunner
	EnableOTelHTTP     bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())

	authLimiter := middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	forgotLimiter := middleware.NewRateLimiter(dep.ForgotRateLimitRPM, time.Minute).Middleware()
	requireAuth := middleware.AuthMiddleware(dep.JWTManager)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
		r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
		r.With(authLimiter).Post("/login/2fa", dep.AuthHandler.LoginTwoFactor)
		r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
		r.With(authLimiter).Post("/verify-email", dep.AuthHandler.VerifyEmail)
		r.With(forgotLimiter).Post("/password/forgot", dep.AuthHandler.ForgotPassword)
		r.With(forgotLimiter).Post("/password/reset", dep.AuthHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Post("/2fa/setup", dep.AuthHandler.SetupTwoFactor)
			r.Post("/2fa/confirm", dep.AuthHandler.ConfirmTwoFactor)
			r.Post("/2fa/disable", dep.AuthHandler.DisableTwoFactor)
		})
	})

	if dep.EnableOTelHTTP {
		return otelhttp.NewHandler(r, "meetcute-auth")
	}
	return r
}
