// Package database provides SQLite database connectivity for Poppy Motion Core.
//
// It holds the stored motion sequences (when playback.source is "database")
// and the playback run history.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations (embedded by the migrations package)
//   - Connection lifecycle and a transaction helper
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns must be NULLABLE or carry a DEFAULT,
// and every .up.sql file has a matching .down.sql.
package database
