// Package migrations embeds the history schema so the agent can migrate its
// database without SQL files on disk.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files at its root.
//
//go:embed *.sql
var FS embed.FS
