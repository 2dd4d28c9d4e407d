// Package migrations bundles the SQL schema migrations of the messaging service.
package migrations

import "embed"

// FS holds the versioned golang-migrate files.
//
//go:embed *.sql
var FS embed.FS
