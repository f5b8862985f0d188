package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ UserStore = (*PGStore)(nil)

// PGStore implements UserStore on PostgreSQL via database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const uniqueViolation = "23505"

func (s *PGStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, account, name, password_hash, password_salt, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Account, u.Name, u.PasswordHash, u.PasswordSalt, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, account, name, password_hash, password_salt, created_at
		 from users where id=$1`, id))
}

func (s *PGStore) FindByAccount(ctx context.Context, account string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, account, name, password_hash, password_salt, created_at
		 from users where account=$1`, account))
}

func (s *PGStore) NameTaken(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where name=$1)`, name,
	).Scan(&exists)
	return exists, err
}

func (s *PGStore) scanOne(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Account, &u.Name, &u.PasswordHash, &u.PasswordSalt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
