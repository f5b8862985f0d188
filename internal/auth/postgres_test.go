package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGStoreCreateAndFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	now := time.Now().UTC()
	user := &User{
		ID:           "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Account:      "1234567890",
		Name:         "alice",
		PasswordHash: "hash",
		PasswordSalt: "salt",
		CreatedAt:    now,
	}

	mock.ExpectExec("insert into users").
		WithArgs(user.ID, user.Account, user.Name, user.PasswordHash, user.PasswordSalt, user.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "account", "name", "password_hash", "password_salt", "created_at"}).
		AddRow(user.ID, user.Account, user.Name, user.PasswordHash, user.PasswordSalt, now)
	mock.ExpectQuery("select id, account, name, password_hash, password_salt, created_at.*where account=").
		WithArgs(user.Account).
		WillReturnRows(rows)
	found, err := store.FindByAccount(context.Background(), user.Account)
	if err != nil {
		t.Fatalf("FindByAccount: %v", err)
	}
	if found.Name != "alice" || found.ID != user.ID {
		t.Fatalf("unexpected user: %+v", found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_name_key"})
	err = store.Create(context.Background(), &User{ID: "x", Account: "1", Name: "alice"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPGStoreFindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectQuery("select id, account, name, password_hash, password_salt, created_at.*where id=").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account", "name", "password_hash", "password_salt", "created_at"}))
	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreNameTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectQuery("select exists").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	taken, err := store.NameTaken(context.Background(), "alice")
	if err != nil {
		t.Fatalf("NameTaken: %v", err)
	}
	if !taken {
		t.Fatal("expected name to be reported taken")
	}
}
