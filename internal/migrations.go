package internal

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/noirlabs/noir/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded schema migrations and logs the schema
// version the database ends up at. Goose's own stdout chatter is silenced in
// favor of the structured logger.
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.MigrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("database schema up to date", slog.Int64("version", version))
	return nil
}
