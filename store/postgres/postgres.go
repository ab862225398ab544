// Package postgres stores accounts in a PostgreSQL table through database/sql
// and the pgx stdlib driver. The schema is owned by embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/store"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DBTX is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a PostgreSQL-backed credential store.
type Store struct {
	db DBTX
}

var _ store.Store = (*Store)(nil)

func New(db DBTX) *Store {
	return &Store{db: db}
}

// Open connects with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db error: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "migrations")
}

const selectColumns = `handle, name, avatar, password_hash, password_salt, admin, enabled, created`

func (s *Store) Get(ctx context.Context, handle string) (store.Account, error) {
	query :=
		`SELECT ` + selectColumns + ` FROM accounts
		 WHERE handle = $1
		 `

	var a store.Account
	err := s.db.QueryRowContext(ctx, query, handle).Scan(
		&a.Handle, &a.Name, &a.Avatar, &a.PasswordHash, &a.PasswordSalt, &a.Admin, &a.Enabled, &a.Created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Account{}, store.ErrNotFound
		}
		return store.Account{}, fmt.Errorf("%w: db error: %v", store.ErrUnavailable, err)
	}
	return a, nil
}

func (s *Store) Set(ctx context.Context, a store.Account) error {
	if !store.ValidKey(a.Handle) {
		return store.ErrInvalidHandle
	}

	query :=
		`INSERT INTO accounts (handle, name, avatar, password_hash, password_salt, admin, enabled, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (handle) DO UPDATE SET
		   name = EXCLUDED.name,
		   avatar = EXCLUDED.avatar,
		   password_hash = EXCLUDED.password_hash,
		   password_salt = EXCLUDED.password_salt,
		   admin = EXCLUDED.admin,
		   enabled = EXCLUDED.enabled,
		   created = EXCLUDED.created
		 `

	_, err := s.db.ExecContext(ctx, query,
		a.Handle, a.Name, a.Avatar, a.PasswordHash, a.PasswordSalt, a.Admin, a.Enabled, a.Created)
	if err != nil {
		return fmt.Errorf("%w: db error: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, handle string) error {
	query :=
		`DELETE FROM accounts
		 WHERE handle = $1
		 `

	if _, err := s.db.ExecContext(ctx, query, handle); err != nil {
		return fmt.Errorf("%w: db error: %v", store.ErrUnavailable, err)
	}
	return nil
}

// List loads every row ordered by handle and filters in process; predicates
// are arbitrary Go functions and cannot be pushed into SQL.
func (s *Store) List(ctx context.Context, match store.Predicate) ([]store.Account, error) {
	query :=
		`SELECT ` + selectColumns + ` FROM accounts
		 ORDER BY handle
		 `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []store.Account
	for rows.Next() {
		var a store.Account
		if err := rows.Scan(&a.Handle, &a.Name, &a.Avatar, &a.PasswordHash, &a.PasswordSalt, &a.Admin, &a.Enabled, &a.Created); err != nil {
			return nil, fmt.Errorf("%w: db error: %v", store.ErrUnavailable, err)
		}
		if match == nil || match(a) {
			out = append(out, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: db error: %v", store.ErrUnavailable, err)
	}
	return out, nil
}
