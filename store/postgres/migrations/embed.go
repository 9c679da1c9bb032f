// Package migrations embeds the SQL schema files.
package migrations

import "embed"

// FS contains the up and down migrations, applied in file name order.
//
//go:embed *.sql
var FS embed.FS
