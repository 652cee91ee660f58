package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/votegate/internal/config"
	"github.com/xxxsen/votegate/internal/db"
)

// OpenTestDB returns a migrated, empty database and its driver name.
// TEST_DB_DSN selects a postgres database; otherwise an in-memory sqlite is used.
func OpenTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}
	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		cfg = config.DatabaseConfig{Driver: "postgres", DSN: dsn}
	}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if cfg.Driver == "postgres" {
		for _, table := range []string{"submissions", "otp_codes", "identities"} {
			if _, err := conn.Exec("DELETE FROM " + table); err != nil {
				t.Fatalf("truncate %s: %v", table, err)
			}
		}
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn, cfg.Driver
}
