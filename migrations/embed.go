// Package migrations embeds SQL migration files into the binary.
//
// Importing this package registers the schema for stored motion sequences
// and playback run history with the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/poppy-motion/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.RegisterMigrations(migrationsFS, ".")
}
