package pipeline

import (
	"math/rand/v2"
	"time"

	"github.com/dgallion1/zimshred/internal/storage"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying. Only storage is an
// external effect; shred and chunk failures are deterministic and
// retrying them would reproduce the same result.
func IsRetryable(err error) bool {
	return storage.IsTransient(err)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
