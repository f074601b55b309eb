// Package migrations embeds the SQL schema migrations.
package migrations

import "embed"

// Files holds every *.sql migration, applied in filename order.
//
//go:embed *.sql
var Files embed.FS
