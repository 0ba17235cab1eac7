package database

import (
	"context"
	"embed"
	"fmt"
	"strconv"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/noah-isme/husma-donation-api/pkg/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

func migrationsDir(driver string) string {
	if driver == config.DriverPostgres {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

func prepareGoose(driver string) error {
	goose.SetBaseFS(migrationsFS)
	dialect := config.DriverSQLite
	if driver == config.DriverPostgres {
		dialect = "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	return Run(ctx, db, driver, "up")
}

// Run executes a goose command ("up", "down", "status", "version", "reset",
// "up-to", "down-to") against the embedded migrations.
func Run(ctx context.Context, db *sqlx.DB, driver, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(driver); err != nil {
		return err
	}
	dir := migrationsDir(driver)

	switch command {
	case "up-to", "down-to":
		if len(args) == 0 {
			return fmt.Errorf("%s requires a target version", command)
		}
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if command == "up-to" {
			err = goose.UpToContext(ctx, db.DB, dir, target)
		} else {
			err = goose.DownToContext(ctx, db.DB, dir, target)
		}
		if err != nil {
			return fmt.Errorf("goose %s %d: %w", command, target, err)
		}
		return nil
	default:
		if err := goose.RunContext(ctx, command, db.DB, dir, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	}
}
