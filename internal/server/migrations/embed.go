// Package migrations embeds the goose SQL migrations of the relational
// backend. Every statement is create-if-absent, so applying them against an
// existing schema is a no-op.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
