package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrUnknownSession is returned when a session ID has no recorded turns.
var ErrUnknownSession = errors.New("transcript: unknown session")

// Entry is one recorded turn of a dialogue session.
type Entry struct {
	SessionID  string    `json:"session_id"`
	Turn       int       `json:"turn"`
	Speaker    string    `json:"speaker"`
	Topic      []string  `json:"topic,omitempty"` // nil when the speaker changed the subject
	Candidates int       `json:"candidates"`
	Text       string    `json:"text"`
	Truncated  bool      `json:"truncated,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionInfo summarizes a recorded session.
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Turns     int       `json:"turns"`
}

// ExportedSession is the serializable form of a whole session.
type ExportedSession struct {
	Session SessionInfo `json:"session"`
	Turns   []Entry     `json:"turns"`
}

// SetupSchema creates the transcript tables in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaSessions = `
CREATE TABLE IF NOT EXISTS transcript_sessions (
    session_id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL
);
`
		schemaTurns = `
CREATE TABLE IF NOT EXISTS transcript_turns (
    session_id TEXT NOT NULL,
    turn INTEGER NOT NULL,
    speaker TEXT NOT NULL,
    topic TEXT NOT NULL DEFAULT '',
    candidates INTEGER NOT NULL DEFAULT 0,
    text TEXT NOT NULL,
    truncated INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, turn)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaSessions); err != nil {
		return fmt.Errorf("could not create sessions schema: %w", err)
	}

	if _, err = tx.Exec(schemaTurns); err != nil {
		return fmt.Errorf("could not create turns schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store records and reads back dialogue transcripts. It holds prepared
// statements and is safe for concurrent use.
type Store struct {
	db               *sql.DB
	stmtAddSession   *sql.Stmt
	stmtAddTurn      *sql.Stmt
	stmtGetTurns     *sql.Stmt
	stmtGetSession   *sql.Stmt
	stmtListSessions *sql.Stmt
	logger           *slog.Logger
}

// NewStore prepares the statements used by the Store. The schema must already
// exist; see SetupSchema.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	var err error

	s.stmtAddSession, err = db.Prepare(`INSERT OR IGNORE INTO transcript_sessions (session_id, started_at) VALUES (?, ?);`)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.stmtAddTurn, err = db.Prepare(`INSERT INTO transcript_turns (session_id, turn, speaker, topic, candidates, text, truncated, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.stmtGetTurns, err = db.Prepare(`SELECT turn, speaker, topic, candidates, text, truncated, created_at FROM transcript_turns WHERE session_id = ? ORDER BY turn;`)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.stmtGetSession, err = db.Prepare(`
SELECT s.started_at, COUNT(t.turn)
FROM transcript_sessions s LEFT JOIN transcript_turns t ON t.session_id = s.session_id
WHERE s.session_id = ?
GROUP BY s.session_id;`)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.stmtListSessions, err = db.Prepare(`
SELECT s.session_id, s.started_at, COUNT(t.turn)
FROM transcript_sessions s LEFT JOIN transcript_turns t ON t.session_id = s.session_id
GROUP BY s.session_id
ORDER BY s.started_at, s.session_id;`)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the prepared statements held by the Store.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{s.stmtAddSession, s.stmtAddTurn, s.stmtGetTurns, s.stmtGetSession, s.stmtListSessions} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Record stores one turn. The session is created by its first recorded turn.
// A zero CreatedAt is replaced with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.SessionID == "" {
		return errors.New("transcript: entry has no session ID")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtAddSession).ExecContext(ctx, e.SessionID, e.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("could not record session %s: %w", e.SessionID, err)
	}

	_, err = tx.StmtContext(ctx, s.stmtAddTurn).ExecContext(ctx,
		e.SessionID, e.Turn, e.Speaker, strings.Join(e.Topic, " "),
		e.Candidates, e.Text, e.Truncated, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("could not record turn %d of session %s: %w", e.Turn, e.SessionID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.DebugContext(ctx, "Recorded turn",
		slog.String("session", e.SessionID),
		slog.Int("turn", e.Turn),
		slog.String("speaker", e.Speaker),
	)
	return nil
}

// Session returns the summary of one session, or ErrUnknownSession.
func (s *Store) Session(ctx context.Context, sessionID string) (SessionInfo, error) {
	info := SessionInfo{ID: sessionID}
	var startedAt int64
	err := s.stmtGetSession.QueryRowContext(ctx, sessionID).Scan(&startedAt, &info.Turns)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if err != nil {
		return SessionInfo{}, fmt.Errorf("could not query session %s: %w", sessionID, err)
	}
	info.StartedAt = time.Unix(0, startedAt).UTC()
	return info, nil
}

// Sessions lists every recorded session, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.stmtListSessions.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not query sessions: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var sessions []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var startedAt int64
		if err := rows.Scan(&info.ID, &startedAt, &info.Turns); err != nil {
			return nil, err
		}
		info.StartedAt = time.Unix(0, startedAt).UTC()
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Turns returns the turns of a session in order, or ErrUnknownSession.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.stmtGetTurns.QueryContext(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not query turns: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var entries []Entry
	for rows.Next() {
		e := Entry{SessionID: sessionID}
		var topic string
		var createdAt int64
		if err := rows.Scan(&e.Turn, &e.Speaker, &topic, &e.Candidates, &e.Text, &e.Truncated, &createdAt); err != nil {
			return nil, err
		}
		if topic != "" {
			e.Topic = strings.Fields(topic)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return entries, nil
}

// Export writes a session and all of its turns to w as indented JSON.
func (s *Store) Export(ctx context.Context, sessionID string, w io.Writer) error {
	info, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	turns, err := s.Turns(ctx, sessionID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(ExportedSession{Session: info, Turns: turns}); err != nil {
		return fmt.Errorf("could not encode session %s: %w", sessionID, err)
	}
	s.logger.InfoContext(ctx, "Exported session", slog.String("session", sessionID), slog.Int("turns", len(turns)))
	return nil
}
