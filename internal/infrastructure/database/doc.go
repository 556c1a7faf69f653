// Package database provides SQLite database connectivity for Homelink Core.
//
// This package manages:
//   - Opening and configuring the SQLite database (WAL mode, busy timeout)
//   - Running embedded schema migrations in version order
//   - Health checks and lifecycle management
//
// SQLite is the durable store for everything Homelink persists between
// restarts (bridge credentials); sessions are memory-only by design.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/homelink.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
