package database

import (
	"context"
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

func setupGoose(driver string) (string, error) {
	goose.SetBaseFS(embedMigrations)

	var dialect string
	switch driver {
	case "postgres", "":
		dialect, driver = "pgx", "postgres"
	case "sqlite":
		dialect = "sqlite3"
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("migration error setting dialect for db: %w", err)
	}
	return path.Join("migrations", driver), nil
}

// Migrate applies every pending migration for driver.
func Migrate(ctx context.Context, db *gorm.DB, driver string) error {
	dir, err := setupGoose(driver)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *gorm.DB, driver string) error {
	dir, err := setupGoose(driver)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, sqlDB, dir); err != nil {
		return fmt.Errorf("rollback error: %w", err)
	}
	return nil
}

// Version reports the currently applied migration version.
func Version(ctx context.Context, db *gorm.DB, driver string) (int64, error) {
	if _, err := setupGoose(driver); err != nil {
		return 0, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}
