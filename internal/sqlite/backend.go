// Package sqlite implements the Persistence interface on an embedded SQLite
// database. Entity identities are assigned by the database; partial updates
// hydrate the stored row, merge the patch with the same engine the in-memory
// store uses, and write the merged row back.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/liverylab/easel/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Compile-time interface check.
var _ types.Persistence = (*Backend)(nil)

// Backend is a SQLite-backed Persistence implementation.
type Backend struct {
	db *sql.DB
}

// Open creates or opens the database under dataDir and applies the schema.
// An empty dataDir uses the working directory.
func Open(dataDir string) (*Backend, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return openPath(filepath.Join(dataDir, "easel.db"))
}

// OpenMemory opens a throwaway in-memory database.
func OpenMemory() (*Backend, error) {
	return openPath(":memory:")
}

func openPath(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The modernc driver serializes access per connection; a single
	// connection avoids table-lock races between concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close releases the database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}
