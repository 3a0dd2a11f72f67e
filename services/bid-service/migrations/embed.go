package migrations

import "embed"

// FS holds the bid-service schema migrations.
//
//go:embed *.sql
var FS embed.FS
