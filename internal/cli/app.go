package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/variantlab/variant/internal/adapters/otel"
	"github.com/variantlab/variant/internal/adapters/turso"
	"github.com/variantlab/variant/internal/engine"
	"github.com/variantlab/variant/internal/infrastructure/config"
	"github.com/variantlab/variant/internal/ports"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	DB       *sql.DB
	Service  *engine.Service
	Exporter ports.MetricsExporter
}

// NewAppContext creates an AppContext with all dependencies initialized.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := turso.NewDB(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var exporter ports.MetricsExporter
	otelCfg := otel.LoadConfig()
	if otelCfg.Enabled {
		exporter, err = otel.NewExporter(ctx, otelCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: OTEL exporter disabled: %v\n", err)
			exporter = otel.NewNoOpExporter()
		}
	} else {
		exporter = otel.NewNoOpExporter()
	}

	service := engine.NewService(
		turso.NewExperimentRepository(db),
		turso.NewAssignmentLedger(db),
		turso.NewMetricRepository(db),
		exporter,
		engine.StdLogger{},
	)

	return &AppContext{
		DB:       db,
		Service:  service,
		Exporter: exporter,
	}, nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close(ctx context.Context) error {
	if a.Exporter != nil {
		_ = a.Exporter.Close(ctx)
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
