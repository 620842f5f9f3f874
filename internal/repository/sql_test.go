package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripyplan/tripy-auth/internal/config"
	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/model"
)

func newTestSQLiteStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(context.Background(), config.Storage{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "auth.db"),
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestMySQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, DialectMySQL, logger.Nop()), mock
}

func TestSQLiteStore_CreateAndFind(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	require.NoError(t, s.Create(ctx, model.Account{Email: "a@example.com", PasswordHash: "h1"}))

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.Account{Email: "a@example.com", PasswordHash: "h1"}, got)

	_, err = s.FindByEmail(ctx, "A@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSQLiteStore_Duplicate(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, model.Account{Email: "a@example.com", PasswordHash: "h1"}))
	assert.ErrorIs(t, s.Create(ctx, model.Account{Email: "a@example.com", PasswordHash: "h2"}), ErrDuplicateEmail)
	assert.NoError(t, s.Create(ctx, model.Account{Email: "A@example.com", PasswordHash: "h3"}))
	assert.NoError(t, s.Create(ctx, model.Account{Email: "a@example.com ", PasswordHash: "h4"}))

	got, err := s.FindByEmail(ctx, "a@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "h4", got.PasswordHash)
}

func TestSQLiteStore_ConcurrentCreateSameEmail(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for j := 0; j < n; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(ctx, model.Account{Email: "race@example.com", PasswordHash: "h"})
			if err != nil && !errors.Is(err, ErrDuplicateEmail) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	cfg := config.Storage{Driver: config.DriverSQLite, Path: path}
	ctx := context.Background()

	s, err := Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, model.Account{Email: "keep@example.com", PasswordHash: "h"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.FindByEmail(ctx, "keep@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
}

func TestMySQLStore_FindByEmail(t *testing.T) {
	s, mock := newTestMySQLStore(t)

	mock.ExpectQuery("SELECT email, password_hash FROM accounts WHERE email = \\? LIMIT 2").
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"email", "password_hash"}).AddRow("a@example.com", "h"))

	got, err := s.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_FindByEmail_Multiple(t *testing.T) {
	s, mock := newTestMySQLStore(t)

	mock.ExpectQuery("SELECT email, password_hash FROM accounts").
		WillReturnRows(sqlmock.NewRows([]string{"email", "password_hash"}).
			AddRow("a@example.com", "h1").
			AddRow("a@example.com", "h2"))

	_, err := s.FindByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrMultipleAccounts)
}

func TestMySQLStore_FindByEmail_QueryError(t *testing.T) {
	s, mock := newTestMySQLStore(t)

	mock.ExpectQuery("SELECT email, password_hash FROM accounts").
		WillReturnError(errors.New("connection reset"))

	_, err := s.FindByEmail(context.Background(), "a@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selecting account")
}

func TestMySQLStore_Create(t *testing.T) {
	s, mock := newTestMySQLStore(t)

	mock.ExpectExec("INSERT INTO accounts \\(email,password_hash,created_at\\) VALUES \\(\\?,\\?,\\?\\)").
		WithArgs("a@example.com", "h", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), model.Account{Email: "a@example.com", PasswordHash: "h"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Create_DuplicateEntry(t *testing.T) {
	s, mock := newTestMySQLStore(t)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com' for key 'PRIMARY'"})

	err := s.Create(context.Background(), model.Account{Email: "a@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMySQLStore_Create_OtherError(t *testing.T) {
	s, mock := newTestMySQLStore(t)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})

	err := s.Create(context.Background(), model.Account{Email: "a@example.com", PasswordHash: "h"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "unexpected DB error")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Storage{Driver: "redis"}, logger.Nop())
	assert.ErrorIs(t, err, config.ErrUnknownDriver)
}

func TestOpen_File(t *testing.T) {
	s, err := Open(context.Background(), config.Storage{
		Driver: config.DriverFile,
		Path:   filepath.Join(t.TempDir(), "database.json"),
	}, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.NoError(t, s.Close())
}

func newTestPostgresStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, DialectPostgres, logger.Nop()), mock
}

func TestPostgresStore_UsesDollarPlaceholders(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectQuery("SELECT email, password_hash FROM accounts WHERE email = \\$1 LIMIT 2").
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"email", "password_hash"}))
	mock.ExpectExec("INSERT INTO accounts \\(email,password_hash,created_at\\) VALUES \\(\\$1,\\$2,\\$3\\)").
		WithArgs("a@example.com", "h", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := s.FindByEmail(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	require.NoError(t, s.Create(context.Background(), model.Account{Email: "a@example.com", PasswordHash: "h"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create_UniqueViolation(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key value violates unique constraint \"accounts_pkey\""})

	err := s.Create(context.Background(), model.Account{Email: "a@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgresStore_Create_OtherError(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})

	err := s.Create(context.Background(), model.Account{Email: "a@example.com", PasswordHash: "h"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}
