package auth

import "time"

// TokenClass distinguishes the two halves of an issued token pair. The
// label doubles as the cache-key suffix for the matching session entry.
type TokenClass string

const (
	// ClassAccess is the short-lived bearer credential for authenticated calls.
	ClassAccess TokenClass = "access_token"
	// ClassRefresh is the long-lived, single-use credential for renewal.
	ClassRefresh TokenClass = "refresh_token"
)

// User is a read-only snapshot of an account record. Created once at
// sign-up and never mutated by this service afterwards.
type User struct {
	ID           string
	Account      string
	Name         string
	PasswordHash string
	PasswordSalt string
	CreatedAt    time.Time
}

// Snapshot is the projection of a user cached under a session key. It is
// what the gate middleware resolves on every authenticated request, so it
// carries no credential material.
type Snapshot struct {
	UserID  string `json:"user_id"`
	Account string `json:"account"`
	Name    string `json:"name"`
}

// Snapshot returns the cacheable projection of the user.
func (u *User) Snapshot() Snapshot {
	return Snapshot{UserID: u.ID, Account: u.Account, Name: u.Name}
}

// TokenPair is the result of sign-in and renewal.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int64
}

// SessionKey builds the canonical cache key for a session entry. The same
// builder is used on the write, read and delete paths so rotation and
// sign-out always clear the entries sign-in created.
func SessionKey(sessionID string, class TokenClass) string {
	return sessionID + ":/" + string(class)
}
