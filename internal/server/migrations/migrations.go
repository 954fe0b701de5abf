// Package migrations embeds the goose SQL migrations that the repository
// manager applies at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
