package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/meetcute/meetcute-auth/internal/app"
	"github.com/meetcute/meetcute-auth/internal/config"
	"github.com/meetcute/meetcute-auth/internal/database"
	"github.com/meetcute/meetcute-auth/internal/health"
	"github.com/meetcute/meetcute-auth/internal/http/handler"
	"github.com/meetcute/meetcute-auth/internal/http/router"
	"github.com/meetcute/meetcute-auth/internal/observability"
	"github.com/meetcute/meetcute-auth/internal/registry"
	"github.com/meetcute/meetcute-auth/internal/repository"
	"github.com/meetcute/meetcute-auth/internal/security"
	"github.com/meetcute/meetcute-auth/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var InfraSet = wire.NewSet(
	provideDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	provideRefreshTokenRegistry,
	wire.Bind(new(registry.RefreshTokenRegistry), new(*registry.RedisRefreshTokenRegistry)),
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideTOTPEngine,
)

var ServiceSet = wire.NewSet(
	provideTokenService,
	provideDispatcher,
	service.NewDevNotifier,
	wire.Bind(new(service.Notifier), new(*service.DevNotifier)),
	service.NewAuthService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrap := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrap)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func provideRefreshTokenRegistry(client redis.UniversalClient) *registry.RedisRefreshTokenRegistry {
	return registry.NewRedisRefreshTokenRegistry(client, "refresh_session")
}

func provideJWTManager(cfg *config.Config) (*security.JWTManager, error) {
	return security.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.JWTAudience)
}

func provideTOTPEngine(cfg *config.Config) *security.TOTPEngine {
	return security.NewTOTPEngine(cfg.TOTPIssuer)
}

func provideTokenService(jwtMgr *security.JWTManager, sessions registry.RefreshTokenRegistry, userRepo repository.UserRepository, cfg *config.Config) *service.TokenService {
	return service.NewTokenService(jwtMgr, sessions, userRepo, cfg.RefreshTokenPepper, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func provideDispatcher(notifier service.Notifier, logger *slog.Logger) *service.AsyncDispatcher {
	return service.NewAsyncDispatcher(notifier, logger)
}

func provideReadinessProbeRunner(db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	return health.NewProbeRunner(
		2*time.Second,
		time.Second,
		health.NewDBChecker(db),
		health.NewRedisChecker(redisClient),
	)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	jwtMgr *security.JWTManager,
	cfg *config.Config,
	readiness *health.ProbeRunner,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:        authHandler,
		JWTManager:         jwtMgr,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:   cfg.AuthRateLimitPerMin,
		ForgotRateLimitRPM: cfg.ForgotRateLimitPerMin,
		APIRateLimitRPM:    cfg.APIRateLimitPerMin,
		Readiness:          readiness,
		EnableOTelHTTP:     cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
