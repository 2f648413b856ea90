// Package database opens the SQLite run log and keeps its schema current.
//
// The run log is optional: loadsynth writes traces to CSV regardless, and
// records run metadata, per-activity statistics and placed occurrences in
// SQLite only when the database section of the configuration is enabled.
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_description.up.sql
// (with an optional matching .down.sql), embedded into the binary by the
// migrations package and applied in version order, one transaction each.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Tests use OpenMemory for a private in-memory database.
package database
