// Package migrations holds the goose migrations of the reconciler database.
// SQL migrations are embedded; Go migrations register themselves in init.
package migrations

import "embed"

// FS contains every migration file in this directory
//
//go:embed *.sql *.go
var FS embed.FS
