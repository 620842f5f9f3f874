// Package migrations applies the embedded credential store schema with goose.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/tripyplan/tripy-auth/internal/logger"
)

//go:embed sqlite/*.sql mysql/*.sql postgres/*.sql
var embedMigrations embed.FS

// Goose dialect names for each supported database.
const (
	DialectSQLite   = "sqlite3"
	DialectMySQL    = "mysql"
	DialectPostgres = "pgx"
)

var (
	ErrNilDB          = errors.New("migration error: db is nil")
	ErrUnknownDialect = errors.New("migration error: unknown dialect")
)

var dirs = map[string]string{
	DialectSQLite:   "sqlite",
	DialectMySQL:    "mysql",
	DialectPostgres: "postgres",
}

// goose keeps its filesystem, dialect and logger in package globals.
var mu sync.Mutex

// Migrate brings db up to the latest schema for dialect.
func Migrate(db *sql.DB, dialect string, log *logger.Logger) error {
	if db == nil {
		return ErrNilDB
	}
	dir, ok := dirs[dialect]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{log})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	log *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Debug().Str("component", "goose").Msgf(format, v...)
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Fatal().Str("component", "goose").Msgf(format, v...)
}
