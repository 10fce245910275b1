package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/meetcute/meetcute-auth/internal/config"
)

type AppMetrics struct {
	registerCounter     metric.Int64Counter
	loginCounter        metric.Int64Counter
	refreshCounter      metric.Int64Counter
	logoutCounter       metric.Int64Counter
	twoFactorCounter    metric.Int64Counter
	verificationCounter metric.Int64Counter
	resetCounter        metric.Int64Counter
	authReqDuration     metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, res *resource.Resource, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
	)
	otel.SetMeterProvider(mp)

	if err := registerInstruments(mp); err != nil {
		return nil, err
	}
	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func registerInstruments(mp *sdkmetric.MeterProvider) error {
	meter := mp.Meter("meetcute-auth")
	m := &AppMetrics{}
	var err error

	if m.registerCounter, err = meter.Int64Counter("auth_register_total"); err != nil {
		return err
	}
	if m.loginCounter, err = meter.Int64Counter("auth_login_total"); err != nil {
		return err
	}
	if m.refreshCounter, err = meter.Int64Counter("auth_refresh_total"); err != nil {
		return err
	}
	if m.logoutCounter, err = meter.Int64Counter("auth_logout_total"); err != nil {
		return err
	}
	if m.twoFactorCounter, err = meter.Int64Counter("auth_twofactor_total"); err != nil {
		return err
	}
	if m.verificationCounter, err = meter.Int64Counter("auth_email_verification_total"); err != nil {
		return err
	}
	if m.resetCounter, err = meter.Int64Counter("auth_password_reset_total"); err != nil {
		return err
	}
	if m.authReqDuration, err = meter.Float64Histogram("auth_request_duration_seconds"); err != nil {
		return err
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func outcomeAttr(outcome string) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", outcome))
}

func RecordAuthRegister(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.registerCounter.Add(ctx, 1, outcomeAttr(outcome))
	}
}

func RecordAuthLogin(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.loginCounter.Add(ctx, 1, outcomeAttr(outcome))
	}
}

func RecordAuthRefresh(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.refreshCounter.Add(ctx, 1, outcomeAttr(outcome))
	}
}

func RecordAuthLogout(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.logoutCounter.Add(ctx, 1, outcomeAttr(outcome))
	}
}

func RecordTwoFactor(ctx context.Context, op, outcome string) {
	if m := current(); m != nil {
		m.twoFactorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordEmailVerification(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.verificationCounter.Add(ctx, 1, outcomeAttr(outcome))
	}
}

func RecordPasswordReset(ctx context.Context, stage, outcome string) {
	if m := current(); m != nil {
		m.resetCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAuthRequestDuration(ctx context.Context, op, outcome string, d time.Duration) {
	if m := current(); m != nil {
		m.authReqDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
	}
}
