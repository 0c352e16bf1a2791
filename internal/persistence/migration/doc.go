// Package migration applies versioned SQL schema changes.
//
// Migration files are read from an fs.FS (usually an embed.FS owned by the
// storage backend) and must be named {version}_{description}.sql, for example
// "001_initial_schema.sql". Applied versions are tracked in a
// schema_migrations table maintained by the backend specific Executor.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewFileScanner(files, "."), executor, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
