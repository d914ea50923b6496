// Package auth is the dashboard's authentication boundary. Physicians log in
// with bcrypt-checked credentials and receive an HS256 session token; the
// middleware puts the authenticated actor on the request context, which is
// where the rest of the application reads the "current actor" from.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Issuer is stamped into every session token.
const Issuer = "patient-dashboard"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Credential is a registered user. Only the bcrypt hash of the password is held.
type Credential struct {
	Username     string
	PasswordHash string
	DisplayName  string
	Roles        []string
}

// Claims are carried in a session token.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Sessions issues and verifies session tokens.
type Sessions struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	users   map[string]Credential
	revoked map[string]time.Time // session id -> token expiry
}

// NewSessions returns a session manager that signs with signingKey.
func NewSessions(signingKey []byte, ttl time.Duration, users ...Credential) (*Sessions, error) {
	if len(signingKey) < 32 {
		return nil, fmt.Errorf("session signing key must be at least 32 bytes, got %d", len(signingKey))
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	s := &Sessions{
		signingKey: signingKey,
		ttl:        ttl,
		now:        time.Now,
		users:      make(map[string]Credential),
		revoked:    make(map[string]time.Time),
	}
	for _, u := range users {
		if err := s.AddUser(u); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddUser registers or replaces a user.
func (s *Sessions) AddUser(u Credential) error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
		return fmt.Errorf("user %s: password hash is not a bcrypt hash: %w", u.Username, err)
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	s.mu.Lock()
	s.users[u.Username] = u
	s.mu.Unlock()
	return nil
}

// Login checks the password and returns a signed token with its claims.
func (s *Sessions) Login(username, password string) (string, *Claims, error) {
	s.mu.Lock()
	u, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    Issuer,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:  u.DisplayName,
		Roles: append([]string(nil), u.Roles...),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, claims, nil
}

// Verify parses a token and rejects expired, revoked or foreign ones.
func (s *Sessions) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the session until its token would have expired anyway.
func (s *Sessions) Logout(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	exp := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[claims.ID] = exp
	now := s.now()
	for id, until := range s.revoked {
		if until.Before(now) {
			delete(s.revoked, id)
		}
	}
}
