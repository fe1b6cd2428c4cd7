package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/colloquy/pkg/transcript"
)

// openTranscript opens the transcript database at dataSource, creating the
// file, its directory and the schema as needed. The returned function closes
// both the Store and the database.
func openTranscript(dataSource string, logger *slog.Logger) (*transcript.Store, func(), error) {
	path, _, _ := strings.Cut(dataSource, "?")
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open(sqliteDriver, dataSource)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open transcript database: %w", err)
	}
	if err = transcript.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to set up transcript schema: %w", err)
	}
	store, err := transcript.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to prepare transcript store: %w", err)
	}
	store.SetLogger(logger)

	closeFn := func() {
		store.Close()
		if err := db.Close(); err != nil {
			logger.Error("Failed to close transcript database", "error", err)
		}
	}
	return store, closeFn, nil
}
