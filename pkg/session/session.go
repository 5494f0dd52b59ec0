// Package session stores each user's running context between turns and forgets it
// after a period of silence.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a user has no live session.
var ErrSessionNotFound = errors.New("session not found")

// Session is one user's conversation state.
type Session struct {
	UserID         string    `json:"user_id"`
	RunningContext string    `json:"running_context"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// New returns an empty session for userID.
func New(userID string) *Session {
	return &Session{UserID: userID}
}

// Reset clears the running context.
func (s *Session) Reset() {
	s.RunningContext = ""
}

// Store persists sessions. Sessions idle longer than the store's timeout are treated
// as absent.
type Store interface {
	// Load returns the live session for userID, or a new empty one.
	Load(ctx context.Context, userID string) (*Session, error)
	// Save writes s and refreshes its idle clock.
	Save(ctx context.Context, s *Session) error
	// Delete forgets userID. Deleting an absent session is not an error.
	Delete(ctx context.Context, userID string) error
	// Sweep removes sessions idle since before cutoff and returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}
