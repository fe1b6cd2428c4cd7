//go:build !cgo_sqlite

package main

import (
	_ "modernc.org/sqlite"
)

// sqliteDriver is the database/sql driver used for the transcript database.
const sqliteDriver = "sqlite"
