// Package auth issues and verifies the signed, time-limited identity tokens
// that gate every authenticated request. Verification is CPU only: it never
// consults storage and there is no revocation list.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// TokenValidity is the fixed lifetime of every issued token.
const TokenValidity = 30 * 24 * time.Hour

const keyInfo = "taskmate auth token v1"

// Claims embeds the standard claims plus the user profile snapshot taken at
// issuance time.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// IssuedToken is a signed token and the instant it stops verifying.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Authority signs and verifies HS256 tokens with a key derived from the
// configured secret.
type Authority struct {
	key      []byte
	validity time.Duration
	now      func() time.Time
}

type Option func(*Authority)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// NewAuthority derives the signing key from secret. Authorities built from
// the same secret accept each other's tokens.
func NewAuthority(secret string, opts ...Option) (*Authority, error) {
	if secret == "" {
		return nil, errors.New("empty token secret")
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	a := &Authority{key: key, validity: TokenValidity, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

// Issue signs a token for u valid for TokenValidity from now.
func (a *Authority) Issue(u *models.User) (*IssuedToken, error) {
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.validity)),
		},
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{Token: tokenString, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, algorithm and expiry. Every failure matches
// common.ErrUnauthenticated; expiry additionally matches common.ErrTokenExpired.
func (a *Authority) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing token", common.ErrUnauthenticated)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}

	if !token.Valid || claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: invalid claims", common.ErrUnauthenticated)
	}

	return claims, nil
}
