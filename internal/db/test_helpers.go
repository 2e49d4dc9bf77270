package db

import (
	"database/sql"
	"testing"
)

// NewTestDB creates a migrated in-memory SQLite store for testing.
//
// IMPORTANT: Always use this function in tests, never a file under the data
// directory. A test pointed at a real store would rewrite a user's board.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    db := NewTestDB(t)
//	    defer db.Close()
//
//	    // Use db for testing...
//	}
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return &DB{DB: sqlDB, path: ":memory:"}
}
