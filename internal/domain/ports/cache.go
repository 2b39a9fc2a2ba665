package ports

import (
	"context"
	"time"
)

// Cache is the key-value cache collaborator used for derived read models.
// Values are opaque bytes so that remote stores can back the interface.
type Cache interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
