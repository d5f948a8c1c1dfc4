// Package memory persists conversation sessions. Sessions are
// append-only transcripts of typed turns; the only destructive
// operation is clearing a whole session, and only on explicit user
// request.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/marquee-ai/marquee/internal/domain"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("memory: session not found")

// SessionInfo summarizes a stored session for listings.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Turns     int       `json:"turns"`
}

// Store persists sessions. Implementations must be safe for concurrent
// use and must keep turns in append order with dense 1-based sequence
// numbers.
type Store interface {
	// GetOrCreate loads the session with the given id, creating it when
	// absent. An empty id creates a session with a fresh id.
	GetOrCreate(ctx context.Context, id string) (*domain.Session, error)

	// Append adds one turn. The turn's Seq must be exactly one past the
	// last stored turn; anything else is rejected.
	Append(ctx context.Context, sessionID string, turn domain.Turn) error

	// History returns all turns in append order.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Clear removes the session and its turns.
	Clear(ctx context.Context, sessionID string) error

	// List returns summaries of all sessions, most recently updated first.
	List(ctx context.Context) ([]SessionInfo, error)
}
