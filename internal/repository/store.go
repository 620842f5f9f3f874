package repository

import (
	"context"
	"fmt"

	"github.com/tripyplan/tripy-auth/internal/config"
	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/migrations"
	"github.com/tripyplan/tripy-auth/internal/model"
)

// Store is the credential store: a durable map from email to password hash.
type Store interface {
	// FindByEmail looks up an exact, case-sensitive email.
	FindByEmail(ctx context.Context, email string) (model.Account, error)
	// Create inserts account unless its email is already present, in which
	// case it returns ErrDuplicateEmail.
	Create(ctx context.Context, account model.Account) error
	Close() error
}

// Open builds the store selected by cfg.Driver. SQL backends are migrated
// before they are returned.
func Open(ctx context.Context, cfg config.Storage, log *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverFile:
		return OpenFileStore(cfg.Path, log)

	case config.DriverSQLite:
		db, err := NewSQLiteDB(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := migrations.Migrate(db, migrations.DialectSQLite, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.Path).Msg("sqlite credential store ready")
		return NewSQLStore(db, DialectSQLite, log), nil

	case config.DriverMySQL:
		db, err := NewDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := migrations.Migrate(db, migrations.DialectMySQL, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("mysql credential store ready")
		return NewSQLStore(db, DialectMySQL, log), nil

	case config.DriverPostgres:
		db, err := NewPostgresDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := migrations.Migrate(db, migrations.DialectPostgres, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("postgres credential store ready")
		return NewSQLStore(db, DialectPostgres, log), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}
