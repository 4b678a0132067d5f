package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jbctechsolutions/syncbridge/internal/adapters/store/sqlite"
)

// openTestDB opens a migrated SQLite database in a temp dir.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sqlite.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	if err := conn.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	db, err := conn.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	return db
}
