// Package sessionstore persists the opaque authentication blob that lets a
// tenant's messaging session be re-established without a fresh scan.
package sessionstore

import (
	"context"
	"time"
)

// PersistedSession is one tenant's durable session credential.
type PersistedSession struct {
	TenantID    string
	SessionBlob []byte
	UpdatedAt   time.Time
}

// Repo defines session blob storage. All operations are idempotent on the
// same tenant key; concurrent writers are last-writer-wins, which is
// acceptable because a tenant's session is owned by a single lifecycle
// manager at a time.
type Repo interface {
	// Save upserts the blob for a tenant.
	Save(ctx context.Context, tenantID string, blob []byte) error

	// Fetch returns the stored blob, or nil when none exists.
	Fetch(ctx context.Context, tenantID string) ([]byte, error)

	// Exists reports whether a blob is stored for the tenant.
	Exists(ctx context.Context, tenantID string) (bool, error)

	// Delete removes the tenant's blob. Deleting an absent blob is not
	// an error.
	Delete(ctx context.Context, tenantID string) error
}
