// Package db provides the SQLite persistence store for taskman: connection
// management, named store files, schema migrations and the board repositories.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"

	_ "modernc.org/sqlite"
)

const (
	// DefaultDataDir is the directory holding store files, config and uploads.
	DefaultDataDir = "~/.taskman"
	// DefaultStoreName is the store opened when none is selected.
	DefaultStoreName = "tickets.db"
	// StoreExt is the file extension of every named store.
	StoreExt = ".db"
)

// DB wraps a sql.DB connection to one store file.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates a store at the specified path.
func Open(path string) (*DB, error) {
	path = ExpandPath(path)
	if path == "" {
		return nil, werrors.Validation("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, werrors.WrapStorage(err, "failed to create database directory")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to open database")
	}

	// One long-lived connection; the board has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, werrors.WrapStorage(err, "failed to connect to database")
	}

	return &DB{DB: db, path: path}, nil
}

// OpenStore opens the named store in dir and brings its schema up to date.
func OpenStore(dir, name string) (*DB, error) {
	d, err := Open(StorePath(dir, name))
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Path returns the file path of the database.
func (d *DB) Path() string {
	return d.path
}

// Name returns the store name (the file's base name).
func (d *DB) Name() string {
	return filepath.Base(d.path)
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// StoreName normalises a store name, appending the .db extension when missing.
func StoreName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultStoreName
	}
	if !strings.HasSuffix(name, StoreExt) {
		name += StoreExt
	}
	return name
}

// StorePath returns the file path of the named store in dir.
func StorePath(dir, name string) string {
	if dir == "" {
		dir = DefaultDataDir
	}
	return filepath.Join(ExpandPath(dir), StoreName(name))
}

// ListStores returns the names of every store file in dir, sorted.
func ListStores(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDataDir
	}
	entries, err := os.ReadDir(ExpandPath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to read data directory")
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), StoreExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CreateStore creates and migrates a new named store in dir.
// It refuses to touch an existing file.
func CreateStore(dir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", werrors.Validation("store name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", werrors.Validation("store name %q must not contain a path separator", name)
	}

	path := StorePath(dir, name)
	if Exists(path) {
		return "", werrors.Validation("store %s already exists", StoreName(name)).
			WithSuggestion("Pick another name, or select the existing store with --store.")
	}

	d, err := Open(path)
	if err != nil {
		return "", werrors.WrapStorage(err, "failed to create store %s", StoreName(name))
	}
	defer d.Close()

	if err := d.Migrate(); err != nil {
		return "", werrors.WrapStorage(err, "failed to initialise store %s", StoreName(name))
	}
	return path, nil
}

// Exists checks if the database file exists at the given path.
func Exists(path string) bool {
	_, err := os.Stat(ExpandPath(path))
	return err == nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}

	return path
}
