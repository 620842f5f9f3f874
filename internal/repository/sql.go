package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/model"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

const mysqlDuplicateEntry = 1062

// SQLStore keeps accounts in the "accounts" table. The email primary key
// makes Create an atomic insert-if-absent.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	log     *logger.Logger
}

func NewSQLStore(db *sql.DB, dialect Dialect, log *logger.Logger) *SQLStore {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		placeholder = sq.Dollar
	}

	return &SQLStore{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		log:     log,
	}
}

// FindByEmail reads at most two rows so a broken uniqueness constraint is
// reported instead of silently picking one.
func (s *SQLStore) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	query, args, err := s.builder.
		Select("email", "password_hash").
		From("accounts").
		Where(sq.Eq{"email": email}).
		Limit(2).
		ToSql()
	if err != nil {
		return model.Account{}, fmt.Errorf("building select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Account{}, fmt.Errorf("selecting account: %w", err)
	}
	defer rows.Close()

	var found []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.Email, &a.PasswordHash); err != nil {
			return model.Account{}, fmt.Errorf("scanning account: %w", err)
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return model.Account{}, fmt.Errorf("iterating accounts: %w", err)
	}

	switch len(found) {
	case 0:
		return model.Account{}, ErrAccountNotFound
	case 1:
		return found[0], nil
	default:
		return model.Account{}, ErrMultipleAccounts
	}
}

func (s *SQLStore) Create(ctx context.Context, account model.Account) error {
	query, args, err := s.builder.
		Insert("accounts").
		Columns("email", "password_hash", "created_at").
		Values(account.Email, account.PasswordHash, time.Now().UTC().UnixMilli()).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if s.isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		s.log.Err(err).Str("dialect", string(s.dialect)).Msg("insert account failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) isUniqueViolation(err error) bool {
	switch s.dialect {
	case DialectMySQL:
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
	case DialectPostgres:
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
	case DialectSQLite:
		var liteErr *msqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
				return true
			}
		}
		return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed: accounts.email")
	}
	return false
}
