package turso_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/variantlab/variant/internal/domain"
	"github.com/variantlab/variant/internal/migrate"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := migrate.RunAll(context.Background(), db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleExperiment(id string) *domain.Experiment {
	pct := 80
	return &domain.Experiment{
		ID:      id,
		Name:    "exp-" + id,
		Feature: "checkout",
		Status:  domain.StatusDraft,
		Variants: []domain.Variant{
			{ID: "control", Name: "control", Weight: 50, IsControl: true, Config: []byte(`{"layout":"old"}`)},
			{ID: "variant_a", Name: "variant_a", Weight: 50, Config: []byte(`{"layout":"new"}`)},
		},
		Targeting: domain.Targeting{
			Percentage:      &pct,
			TenantAllowList: []string{"t1", "t2"},
		},
		TrackedMetrics: []string{domain.ConversionMetric, "duration_ms"},
		CreatedAt:      time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}
