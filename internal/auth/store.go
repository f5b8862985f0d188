package auth

import "context"

// UserStore describes the persistence operations the passport flows need.
// The store owns the records; callers only ever see snapshots.
type UserStore interface {
	// Create persists a new user. Returns ErrAlreadyExists if the display
	// name or the account handle is already taken.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByAccount(ctx context.Context, account string) (*User, error)
	// NameTaken reports whether a display name is registered, using a
	// case-sensitive exact match.
	NameTaken(ctx context.Context, name string) (bool, error)
}
