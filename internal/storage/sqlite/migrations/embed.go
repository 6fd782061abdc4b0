package migrations

import "embed"

// FS contains embedded SQLite migrations for team draw storage.
//
//go:embed *.sql
var FS embed.FS
