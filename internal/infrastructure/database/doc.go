// Package database provides the SQLite connection behind the device's local
// history.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Schema migrations read from an fs.FS (normally the embedded
//     migrations package)
//   - Connection lifecycle and health checks
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - A single open connection matches SQLite's single-writer model
//
// Usage:
//
//	db, err := database.Open(cfg.Database, database.Options{
//	    Migrations: migrations.FS,
//	    Logger:     logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql.
package database
