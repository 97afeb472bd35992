// Package migrations holds the versioned SQLite schema applied at startup.
package migrations

import "embed"

// FS contains the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
