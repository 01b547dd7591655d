package ports

import (
	"context"

	"github.com/aretw0/rapport/pkg/domain"
)

// ResultStore persists finished playthroughs.
// This is the persistence collaborator the engine hands results to.
type ResultStore interface {
	// Save persists the result for a given session ID.
	Save(ctx context.Context, sessionID string, result *domain.Result) error

	// Load retrieves the result for a given session ID.
	// Returns domain.ErrResultNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Result, error)

	// Delete removes the result for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the session IDs with a stored result.
	List(ctx context.Context) ([]string, error)
}
