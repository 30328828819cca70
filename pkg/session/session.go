// Package session persists viewing sessions: a normalized flow plus the ids of
// the nodes a viewer has expanded.
//
// The HTTP server creates a session for every accepted flow and keeps expand
// state in it between requests; the CLI viewer can resume one with
// `phaseflow view --session`.
//
// # Backends
//
//   - [MemoryStore]: in-process, for tests and single-instance servers
//   - [FileStore]: JSON files in a directory, for the CLI
//   - [RedisStore]: shared storage for multi-instance deployments
//   - [MongoStore]: document storage with a TTL index
//
// # Usage
//
//	sess, err := session.New(f, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if sess == nil {
//	    // not found or expired
//	}
package session

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/flow"
)

// DefaultTTL is how long a session lives without being written.
const DefaultTTL = 24 * time.Hour

// Session is a flow and its persisted expand state.
type Session struct {
	ID        string           `json:"id"`
	Flow      flow.ProcessFlow `json:"flow"`
	Expanded  []string         `json:"expanded"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// New creates a session for f with a random id.
func New(f flow.ProcessFlow, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "generate session id")
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id.String(),
		Flow:      f,
		Expanded:  []string{},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SetExpanded replaces the expanded ids and pushes the expiry out by ttl.
func (s *Session) SetExpanded(ids []string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.Expanded = slices.Clone(ids)
	if s.Expanded == nil {
		s.Expanded = []string{}
	}
	s.ExpiresAt = time.Now().UTC().Add(ttl)
}

// ValidID reports whether id has the shape of a session id. Stores use it to
// reject path-like ids before touching the backend.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions (may be a no-op where the backend expires keys).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Load is Get that reports a missing session as SESSION_NOT_FOUND.
func Load(ctx context.Context, s Store, id string) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session %q not found", id)
	}
	return sess, nil
}
