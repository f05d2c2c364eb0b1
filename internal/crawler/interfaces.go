package crawler

import (
	"context"
	"time"
)

// Transport performs HTTP requests. Implementations follow redirects, decode
// Content-Encoding transparently and treat non-success statuses as errors.
type Transport interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
