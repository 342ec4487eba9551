package storage

import (
	"context"
	"time"

	"github.com/makerhub/makerhub/internal/domain"
)

// InstanceRecord wraps an instance for durable storage, carrying the version
// token used for optimistic concurrency. Version is opaque to callers: it is
// read with the record and handed back unchanged on update.
type InstanceRecord struct {
	ID               string          `json:"id"`
	CreatedTimestamp time.Time       `json:"createdTimestamp"`
	Instance         domain.Instance `json:"instance"`
	Version          int64           `json:"version"`
}

// InstanceStore is the durable storage contract for instances. Updates must
// fail with domain.ErrVersionConflict, never silently overwrite, when the
// stored version no longer matches the one read; that check is the sole
// concurrency guard in the system.
type InstanceStore interface {
	// Get returns the record for id, or domain.ErrInstanceNotFound.
	Get(ctx context.Context, id string) (*InstanceRecord, error)

	// Create persists a brand new record, or fails with
	// domain.ErrInstanceExists if one is already present for its id.
	Create(ctx context.Context, rec *InstanceRecord) error

	// Update persists rec if the stored version still equals rec.Version,
	// bumping the stored version; otherwise domain.ErrVersionConflict.
	Update(ctx context.Context, rec *InstanceRecord) error
}
