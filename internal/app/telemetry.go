package app

import (
	"context"
	"fmt"

	"github.com/bookstore/backend/internal/infrastructure/config"
	"github.com/bookstore/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StartTelemetry installs the tracer provider and, when asked, SQL tracing
// on db. The returned provider must be shut down by the caller.
func StartTelemetry(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) (*telemetry.TracerProvider, error) {
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	if db == nil {
		return tp, nil
	}

	dbCfg := telemetry.DefaultDBTracingConfig()
	dbCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing
	dbCfg.LogFullSQL = cfg.Telemetry.LogFullSQL
	if err := telemetry.RegisterDBTracing(db, dbCfg, log); err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init db tracing: %w", err)
	}
	return tp, nil
}
