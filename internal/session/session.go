// Package session holds the state of the cashier logged in on this terminal:
// the backend token, the user and the cart being built. Login populates it and
// logout tears it down.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pharmapos/m/domain"
	"pharmapos/m/internal/cart"
)

var (
	ErrNoSession = errors.New("no active session")
	ErrExpired   = errors.New("session expired")
)

type Session struct {
	ID        uuid.UUID
	Token     string
	Username  string
	User      domain.User
	StartedAt time.Time
	ExpiresAt time.Time
	Cart      *cart.Cart
}

// Expired reports whether the backend token has expired at now. Tokens without
// an expiry never expire locally.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store keeps the single active session of the terminal.
type Store struct {
	mu      sync.RWMutex
	current *Session
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Begin starts a session for a backend token, replacing any previous one.
// The token's signature is not checked here; the backend validates it on
// every request.
func (s *Store) Begin(token string, user domain.User) (*Session, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("read token claims: %w", err)
	}

	sess := &Session{
		ID:        uuid.New(),
		Token:     token,
		Username:  claims.Subject,
		User:      user,
		StartedAt: s.now(),
		Cart:      cart.New(),
	}
	if sess.Username == "" {
		sess.Username = user.Username
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	prev := s.current
	s.current = sess
	s.mu.Unlock()

	if prev != nil {
		prev.Cart.Clear()
	}
	return sess, nil
}

// Current returns the active session.
func (s *Store) Current() (*Session, error) {
	s.mu.RLock()
	sess := s.current
	s.mu.RUnlock()

	if sess == nil {
		return nil, ErrNoSession
	}
	if sess.Expired(s.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

// End logs the cashier out and discards the cart.
func (s *Store) End() {
	s.mu.Lock()
	sess := s.current
	s.current = nil
	s.mu.Unlock()

	if sess != nil {
		sess.Cart.Clear()
	}
}
