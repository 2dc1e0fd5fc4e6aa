// Package migrations embeds the versioned PostgreSQL schema consumed by
// golang-migrate (see infra.RunMigrations and cmd/migrate).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
