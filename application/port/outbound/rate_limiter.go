package outbound

import (
	"context"
	"time"
)

// RateLimiter bounds how often a keyed operation may run inside a window.
// Used to cap ledger mirror attempts per agent and to throttle the
// registration endpoint.
type RateLimiter interface {
	// Allow consumes one attempt for key and reports whether it was still
	// under the limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
