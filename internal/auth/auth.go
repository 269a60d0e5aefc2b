// Package auth provides password hashing and the in-process session
// registry that gates mutating endpoints. The model is deliberately flat:
// one admin role, session cookie in, 401 out.
package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced at registration.
const MinPasswordLength = 6

// HashPassword returns a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type session struct {
	username string
	expires  time.Time
}

// Sessions is an in-memory session registry. The deployment is a single
// process, so sessions do not need to survive restarts; an expired or
// unknown token simply forces a new login.
type Sessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]session
}

// NewSessions creates a registry with the given session lifetime.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:      ttl,
		sessions: make(map[string]session),
	}
}

// Create opens a session for the user and returns its token.
func (s *Sessions) Create(username string) string {
	token := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{username: username, expires: time.Now().Add(s.ttl)}
	return token
}

// Get resolves a token to its username. Expired sessions are pruned on
// lookup.
func (s *Sessions) Get(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	if time.Now().After(sess.expires) {
		delete(s.sessions, token)
		return "", false
	}
	return sess.username, true
}

// Delete ends a session.
func (s *Sessions) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
