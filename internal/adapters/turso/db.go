package turso

import (
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/variantlab/variant/internal/infrastructure/config"
)

// NewDB opens a libsql connection from the given configuration. Remote Turso
// databases aggressively close idle Hrana streams, so the pool keeps no idle
// connections around.
func NewDB(cfg config.Database) (*sql.DB, error) {
	connStr := cfg.URL
	if cfg.AuthToken != "" {
		connStr = fmt.Sprintf("%s?authToken=%s", cfg.URL, cfg.AuthToken)
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
