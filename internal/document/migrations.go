package document

import "embed"

// Migrations holds the schema migrations applied at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS
