// Package migrations embeds SQL migration files.
package migrations

import "embed"

// ConnectFS contains the schema for the connect user-plane and tenant
// settings tables.
//
//go:embed connect/*.sql
var ConnectFS embed.FS

// ConnectDir is the directory within ConnectFS where migrations live.
const ConnectDir = "connect"
