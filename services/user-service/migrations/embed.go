package migrations

import "embed"

// FS holds the user-service schema migrations.
//
//go:embed *.sql
var FS embed.FS
