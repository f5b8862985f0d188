package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLeeway absorbs small clock drift between issuer and validator.
const tokenLeeway = 10 * time.Second

// Claims are the verified contents of a passport token: the token class and
// the rotating session identifier, plus the registered JWT claims.
type Claims struct {
	Type string `json:"type"`
	Csrf string `json:"csrf"`
	jwt.RegisteredClaims
}

// Codec builds and validates signed session tokens. Signing key, issuer and
// audience are fixed for the life of the process; rotating any of them
// invalidates every outstanding token.
type Codec struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewCodec constructs a Codec signing with HMAC-SHA256.
func NewCodec(signingKey, issuer, audience string) (*Codec, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, errors.New("auth: signing key is required")
	}
	if strings.TrimSpace(issuer) == "" || strings.TrimSpace(audience) == "" {
		return nil, errors.New("auth: issuer and audience are required")
	}
	return &Codec{
		key:      []byte(signingKey),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// Build signs a token of the given class embedding the session identifier.
func (c *Codec) Build(class TokenClass, sessionID string, expiresAt time.Time) (string, error) {
	if sessionID == "" {
		return "", errors.New("auth: session id is required")
	}
	now := c.now().UTC()
	claims := Claims{
		Type: string(class),
		Csrf: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer, audience and expiry in one pass.
// Any failure — malformed input, expired token, wrong signer — comes back
// as ErrInvalidToken with no claims.
func (c *Codec) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
