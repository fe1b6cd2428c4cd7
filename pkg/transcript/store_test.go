package transcript

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestStore(t)
	if err := SetupSchema(db); err != nil {
		t.Fatalf("second SetupSchema() error = %v", err)
	}
}

func TestRecordAndTurns(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{SessionID: "s1", Turn: 1, Speaker: "Republican", Candidates: 120, Text: "We will win.", CreatedAt: start},
		{SessionID: "s1", Turn: 2, Speaker: "Democrat", Topic: []string{"winning", "elections"}, Candidates: 4, Text: "Elections matter.", CreatedAt: start.Add(time.Second)},
		{SessionID: "s1", Turn: 3, Speaker: "Republican", Candidates: 120, Text: "Taxes are high.", Truncated: true, CreatedAt: start.Add(2 * time.Second)},
	}
	// Record out of order; turns come back sorted.
	for _, i := range []int{1, 0, 2} {
		if err := s.Record(ctx, entries[i]); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	got, err := s.Turns(ctx, "s1")
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("Turns() mismatch:\ngot:  %+v\nwant: %+v", got, entries)
	}

	info, err := s.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	// The session starts with the first turn recorded, which was turn 2.
	want := SessionInfo{ID: "s1", StartedAt: start.Add(time.Second), Turns: 3}
	if info != want {
		t.Errorf("Session() = %+v, want %+v", info, want)
	}
}

func TestRecordErrors(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, Entry{Turn: 1, Speaker: "A", Text: "x"}); err == nil {
		t.Error("expected an error for an entry without session ID")
	}

	e := Entry{SessionID: "dup", Turn: 1, Speaker: "A", Text: "x"}
	if err := s.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record(ctx, e); err == nil {
		t.Error("expected an error when recording the same turn twice")
	}

	turns, err := s.Turns(ctx, "dup")
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("expected 1 turn after a failed duplicate, got %d", len(turns))
	}
	if turns[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be filled in")
	}
}

func TestUnknownSession(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.Turns(ctx, "missing"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Turns(): expected ErrUnknownSession, got %v", err)
	}
	if _, err := s.Session(ctx, "missing"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Session(): expected ErrUnknownSession, got %v", err)
	}
	var buf bytes.Buffer
	if err := s.Export(ctx, "missing", &buf); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Export(): expected ErrUnknownSession, got %v", err)
	}
}

func TestSessions(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %v", sessions)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Entry{
		{SessionID: "late", Turn: 1, Speaker: "A", Text: "a", CreatedAt: base.Add(time.Hour)},
		{SessionID: "early", Turn: 1, Speaker: "A", Text: "a", CreatedAt: base},
		{SessionID: "early", Turn: 2, Speaker: "B", Text: "b", CreatedAt: base.Add(time.Minute)},
	}
	for _, e := range records {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	sessions, err = s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	want := []SessionInfo{
		{ID: "early", StartedAt: base, Turns: 2},
		{ID: "late", StartedAt: base.Add(time.Hour), Turns: 1},
	}
	if !reflect.DeepEqual(sessions, want) {
		t.Errorf("Sessions() = %+v, want %+v", sessions, want)
	}
}

func TestExport(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 5, 5, 5, 5, 0, time.UTC)

	entries := []Entry{
		{SessionID: "exp", Turn: 1, Speaker: "A", Candidates: 10, Text: "First.", CreatedAt: created},
		{SessionID: "exp", Turn: 2, Speaker: "B", Topic: []string{"first"}, Candidates: 2, Text: "Second.", CreatedAt: created},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	var buf bytes.Buffer
	if err := s.Export(ctx, "exp", &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var exported ExportedSession
	if err := json.Unmarshal(buf.Bytes(), &exported); err != nil {
		t.Fatalf("could not decode export: %v\n%s", err, buf.String())
	}
	if exported.Session.ID != "exp" || exported.Session.Turns != 2 {
		t.Errorf("unexpected session header: %+v", exported.Session)
	}
	if !reflect.DeepEqual(exported.Turns, entries) {
		t.Errorf("exported turns mismatch:\ngot:  %+v\nwant: %+v", exported.Turns, entries)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"topic": [`)) {
		t.Errorf("expected topic in export:\n%s", buf.String())
	}
}

func TestNewStoreClosesStatementsOnError(t *testing.T) {
	db, open := openCountingDB(t)
	// Only the sessions table exists, so the first statement prepares and the
	// second fails.
	if _, err := db.Exec(`CREATE TABLE transcript_sessions (session_id TEXT PRIMARY KEY, started_at INTEGER NOT NULL);`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	before := open.Load()

	if _, err := NewStore(db); err == nil {
		t.Fatal("expected NewStore() to fail without the turns table")
	}
	if got := open.Load(); got != before {
		t.Errorf("open statements = %d after failed NewStore, want %d", got, before)
	}
}

func TestStoreCloseReleasesStatements(t *testing.T) {
	db, open := openCountingDB(t)
	if err := SetupSchema(db); err != nil {
		t.Fatalf("SetupSchema() error = %v", err)
	}
	before := open.Load()

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if got := open.Load() - before; got != 5 {
		t.Errorf("NewStore() prepared %d statements, want 5", got)
	}
	s.Close()
	if got := open.Load(); got != before {
		t.Errorf("open statements = %d after Close, want %d", got, before)
	}
}
