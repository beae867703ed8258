// Package state keeps per-user dialogue sessions and serialises turns per user.
package state

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound indicates that no session is stored for the user.
	ErrSessionNotFound = errors.New("user session not found")
	// ErrSessionCorrupt indicates a stored session could not be decoded or validated.
	ErrSessionCorrupt = errors.New("user session is corrupt")
)

// Storage defines the persistence contract for sessions.
type Storage interface {
	// GetSession returns the session for the user or ErrSessionNotFound.
	GetSession(ctx context.Context, userID int64) (*UserSession, error)
	// SaveSession stores the session.
	SaveSession(ctx context.Context, session *UserSession) error
	// ClearSession removes the user's session.
	ClearSession(ctx context.Context, userID int64) error
	// GetAllSessions returns every stored session.
	GetAllSessions(ctx context.Context) ([]*UserSession, error)
}
