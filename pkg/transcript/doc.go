// Package transcript keeps a record of dialogue sessions in SQLite.
//
// A Store is created on top of a *sql.DB whose schema was initialized with
// SetupSchema. Each turn of a session is stored as an Entry, keyed by session
// ID and turn number, and a whole session can be read back or exported as
// JSON. The package does not import a driver; callers open the database with
// the driver of their choice (modernc.org/sqlite or github.com/mattn/go-sqlite3).
package transcript
