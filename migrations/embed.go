// Package migrations embeds the SQL schema migrations so binaries can run
// them without a migrations directory on disk.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair in this directory.
//
//go:embed *.sql
var FS embed.FS
