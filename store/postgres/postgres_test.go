package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/goAccount/store"
	"github.com/pressly/goose/v3"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return New(db), mock, db
}

var columns = []string{"handle", "name", "avatar", "password_hash", "password_salt", "admin", "enabled", "created"}

const selectOne = `(?s)^SELECT\s+handle,\s*name,\s*avatar,\s*password_hash,\s*password_salt,\s*admin,\s*enabled,\s*created\s+FROM\s+accounts\s+WHERE\s+handle\s*=\s*\$1\s*$`

func TestGet_Found(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).AddRow("alice", "Alice", "", "h", "s", true, true, int64(10))
	mock.ExpectQuery(selectOne).WithArgs("alice").WillReturnRows(rows)

	got, err := s.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Handle != "alice" || !got.Admin || got.Created != 10 {
		t.Fatalf("unexpected account: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectOne).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectOne).WithArgs("alice").WillReturnError(errors.New("db down"))

	_, err := s.Get(context.Background(), "alice")
	if !errors.Is(err, store.ErrUnavailable) || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSet_Upsert(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(handle,.*created\)\s*VALUES\s*\(\$1,.*\$8\)\s*ON\s+CONFLICT\s*\(handle\)\s*DO\s+UPDATE\s+SET.*$`
	mock.ExpectExec(q).
		WithArgs("alice", "Alice", "", "h", "s", false, true, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Set(context.Background(), store.Account{
		Handle: "alice", Name: "Alice", PasswordHash: "h", PasswordSalt: "s", Enabled: true, Created: 5,
	})
	if err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSet_InvalidHandle(t *testing.T) {
	s, _, db := newStoreWithMock(t)
	defer db.Close()

	if err := s.Set(context.Background(), store.Account{Handle: ""}); !errors.Is(err, store.ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+accounts\s+WHERE\s+handle\s*=\s*\$1\s*$`
	mock.ExpectExec(q).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Remove(context.Background(), "alice"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
}

func TestList_FiltersRows(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+handle,.*FROM\s+accounts\s+ORDER\s+BY\s+handle\s*$`
	rows := sqlmock.NewRows(columns).
		AddRow("solo", "Solo", "", "", "", false, true, int64(1)).
		AddRow("team-a", "A", "", "", "", false, true, int64(2)).
		AddRow("team-b", "B", "", "", "", false, false, int64(3))
	mock.ExpectQuery(q).WillReturnRows(rows)

	got, err := s.List(context.Background(), store.HandlePrefix("team-"))
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[0].Handle != "team-a" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestList_ScanError(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+handle,.*FROM\s+accounts\s+ORDER\s+BY\s+handle\s*$`
	rows := sqlmock.NewRows([]string{"handle"}).AddRow("alice")
	mock.ExpectQuery(q).WillReturnRows(rows)

	if _, err := s.List(context.Background(), nil); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if gotDir != "migrations" {
		t.Fatalf("unexpected migrations dir %q", gotDir)
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected embedded migrations, err=%v", err)
	}
}
