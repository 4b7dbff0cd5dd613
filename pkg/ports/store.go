package ports

import (
	"context"

	"github.com/aretw0/launchpad/pkg/domain"
)

// SessionStore persists session records.
// Records describe sessions; they never own the underlying process.
type SessionStore interface {
	// Save creates or replaces the record under rec.Key().
	Save(ctx context.Context, rec domain.SessionRecord) error

	// Load returns domain.ErrSessionNotFound if the key is unknown.
	Load(ctx context.Context, key string) (domain.SessionRecord, error)

	// Delete removes a record. Deleting an unknown key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all records.
	List(ctx context.Context) ([]domain.SessionRecord, error)
}
