// Package migrations ships the goose SQL files inside every binary that
// applies them.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
