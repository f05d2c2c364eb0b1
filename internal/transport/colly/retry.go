package collytransport

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/metrics"
)

type retryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// exponentialBackoff retries transient network failures with jittered,
// capped exponential delays.
type exponentialBackoff struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func newExponentialBackoff(maxRetries int) *exponentialBackoff {
	return &exponentialBackoff{
		maxRetries: max(maxRetries, 0),
		baseDelay:  250 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
}

// ShouldRetry reports whether attempt (zero-based) may be followed by another.
func (p *exponentialBackoff) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.maxRetries {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return isTransient(err)
}

// Backoff returns the wait before the next attempt.
func (p *exponentialBackoff) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// isTransient matches dial and TLS handshake timeouts and connections that
// were cut mid-response.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "tls: handshake timeout") || strings.Contains(msg, "connection reset by peer")
}

// retryTransport re-sends idempotent requests after transient failures.
type retryTransport struct {
	base   http.RoundTripper
	policy retryPolicy
	logger *zap.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("retry transport received nil request")
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.roundTrip(req)
	}
	for attempt := 0; ; attempt++ {
		resp, err := t.roundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		if req.Context().Err() != nil || !t.policy.ShouldRetry(err, attempt) {
			return nil, err
		}
		delay := t.policy.Backoff(attempt)
		metrics.ObserveTransportRetry(req.URL.String())
		t.logger.Debug("retrying request",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := sleepWithContext(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

func (t *retryTransport) roundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("roundtrip %s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	return resp, nil
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
