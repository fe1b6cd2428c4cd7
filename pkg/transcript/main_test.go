package transcript

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mattn/go-sqlite3"
)

// setupTestStore creates a new SQLite database in a temp dir and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// countingConnector opens SQLite connections that track how many driver
// statements are currently open.
type countingConnector struct {
	dsn  string
	open *atomic.Int64
}

func (c countingConnector) Connect(context.Context) (driver.Conn, error) {
	conn, err := c.Driver().Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return countingConn{Conn: conn, open: c.open}, nil
}

func (c countingConnector) Driver() driver.Driver { return &sqlite3.SQLiteDriver{} }

type countingConn struct {
	driver.Conn
	open *atomic.Int64
}

func (c countingConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.Conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	c.open.Add(1)
	return countingStmt{Stmt: stmt, open: c.open}, nil
}

type countingStmt struct {
	driver.Stmt
	open *atomic.Int64
}

func (s countingStmt) Close() error {
	s.open.Add(-1)
	return s.Stmt.Close()
}

// openCountingDB opens a temp SQLite database whose open statements are counted.
func openCountingDB(t *testing.T) (*sql.DB, *atomic.Int64) {
	open := new(atomic.Int64)
	db := sql.OpenDB(countingConnector{dsn: filepath.Join(t.TempDir(), "count.db"), open: open})
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, open
}
