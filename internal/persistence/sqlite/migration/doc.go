// Package migration applies versioned schema changes to the SQLite store.
//
// Migrations are plain SQL files named {version}_{description}.sql (for
// example "001_initial_schema.sql") read from an fs.FS, usually an embedded
// directory. Applied versions are tracked in a schema_migrations table so a
// migration never runs twice, and each file executes inside its own
// transaction.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewFSScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
