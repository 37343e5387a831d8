// Package migrations embeds the catalog schema migrations.
package migrations

import "embed"

// FS holds the {version}_{title}.up.sql and .down.sql files.
//
//go:embed *.sql
var FS embed.FS
