package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"passgate.org/internal/cache"
	"passgate.org/internal/ids"
)

const (
	maxNameLength     = 20
	maxPasswordLength = 64
	// accountRetries bounds the regenerate-on-collision loop for handles.
	accountRetries = 5
)

// Service owns the passport flows: registration, sign-in, renewal,
// sign-out and profile lookup. It coordinates the user store, the session
// cache and the token codec but holds no state of its own.
type Service struct {
	store      UserStore
	cache      cache.Cache
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	newSession func() string
}

// ServiceOption customizes Service construction.
type ServiceOption func(*Service)

// WithClock overrides the service clock. Tests only.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithSessionIDs overrides session-id generation. Tests only.
func WithSessionIDs(gen func() string) ServiceOption {
	return func(s *Service) { s.newSession = gen }
}

func NewService(store UserStore, c cache.Cache, codec *Codec, accessTTL, refreshTTL time.Duration, opts ...ServiceOption) (*Service, error) {
	if store == nil || c == nil || codec == nil {
		return nil, errors.New("auth: store, cache and codec are required")
	}
	if accessTTL <= 0 || refreshTTL <= accessTTL {
		return nil, errors.New("auth: refresh ttl must exceed a positive access ttl")
	}
	s := &Service{
		store:      store,
		cache:      c,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		newSession: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignUp registers a new user under a system-generated account handle.
func (s *Service) SignUp(ctx context.Context, name, password string) (Snapshot, error) {
	if err := validateName(name); err != nil {
		return Snapshot{}, err
	}
	if err := validatePassword(password); err != nil {
		return Snapshot{}, err
	}
	taken, err := s.store.NameTaken(ctx, name)
	if err != nil {
		return Snapshot{}, fmt.Errorf("check name: %w", err)
	}
	if taken {
		return Snapshot{}, fmt.Errorf("%w: name %q is taken", ErrAlreadyExists, name)
	}

	salt, err := NewSalt()
	if err != nil {
		return Snapshot{}, err
	}
	hash, err := HashPassword(password, salt)
	if err != nil {
		return Snapshot{}, err
	}

	u := &User{
		ID:           ids.New(),
		Name:         name,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    s.now().UTC(),
	}
	for attempt := 0; attempt < accountRetries; attempt++ {
		u.Account, err = ids.NewAccount()
		if err != nil {
			return Snapshot{}, err
		}
		err = s.store.Create(ctx, u)
		if err == nil {
			return u.Snapshot(), nil
		}
		if !errors.Is(err, ErrAlreadyExists) {
			return Snapshot{}, fmt.Errorf("create user: %w", err)
		}
		// The name was checked above, so a conflict here is almost
		// certainly the random handle. Regenerate and try again.
	}
	return Snapshot{}, fmt.Errorf("create user: %w", err)
}

// SignIn verifies the credential and opens a fresh session, caching one
// snapshot per token class under the new session id.
func (s *Service) SignIn(ctx context.Context, account, password string) (TokenPair, error) {
	u, err := s.store.FindByAccount(ctx, account)
	if err != nil {
		return TokenPair{}, err
	}
	ok, err := VerifyPassword(u.PasswordHash, password, u.PasswordSalt)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrUnauthorized
	}
	return s.openSession(ctx, u.Snapshot())
}

// Renew exchanges a valid refresh token for a brand-new pair. The old
// session is retired atomically: the refresh entry is consumed with a
// single GETDEL, so a replayed token always misses.
func (s *Service) Renew(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.Validate(refreshToken)
	if err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	if claims.Type != string(ClassRefresh) || claims.Csrf == "" {
		return TokenPair{}, ErrUnauthorized
	}

	var snap Snapshot
	err = s.cache.GetDel(ctx, SessionKey(claims.Csrf, ClassRefresh), &snap)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, fmt.Errorf("consume refresh session: %w", err)
	}
	if err := s.cache.Del(ctx, SessionKey(claims.Csrf, ClassAccess)); err != nil {
		return TokenPair{}, fmt.Errorf("retire access session: %w", err)
	}
	return s.openSession(ctx, snap)
}

// SignOut drops both session entries. Unknown or already-expired sessions
// sign out successfully; there is nothing left to protect.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.cache.Del(ctx,
		SessionKey(sessionID, ClassAccess),
		SessionKey(sessionID, ClassRefresh),
	)
}

// UserInfo returns the profile snapshot for a user id.
func (s *Service) UserInfo(ctx context.Context, userID string) (Snapshot, error) {
	u, err := s.store.Find(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return u.Snapshot(), nil
}

// ResolveSession looks up the cached snapshot for a validated token. A
// miss means the session expired or was signed out.
func (s *Service) ResolveSession(ctx context.Context, class TokenClass, sessionID string) (Snapshot, error) {
	var snap Snapshot
	err := s.cache.Get(ctx, SessionKey(sessionID, class), &snap)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return Snapshot{}, ErrUnauthorized
		}
		return Snapshot{}, fmt.Errorf("resolve session: %w", err)
	}
	return snap, nil
}

func (s *Service) openSession(ctx context.Context, snap Snapshot) (TokenPair, error) {
	sid := s.newSession()
	now := s.now().UTC()

	access, err := s.codec.Build(ClassAccess, sid, now.Add(s.accessTTL))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.Build(ClassRefresh, sid, now.Add(s.refreshTTL))
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.cache.Set(ctx, SessionKey(sid, ClassAccess), snap, s.accessTTL); err != nil {
		return TokenPair{}, fmt.Errorf("cache access session: %w", err)
	}
	if err := s.cache.Set(ctx, SessionKey(sid, ClassRefresh), snap, s.refreshTTL); err != nil {
		return TokenPair{}, fmt.Errorf("cache refresh session: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL / time.Second),
	}, nil
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxNameLength)
	}
	for _, r := range name {
		alnum := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alnum {
			return fmt.Errorf("%w: name must be alphanumeric", ErrInvalidInput)
		}
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be 1-%d characters", ErrInvalidInput, maxPasswordLength)
	}
	return nil
}
