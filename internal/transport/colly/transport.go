// Package collytransport implements crawler.Transport on top of gocolly.
package collytransport

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/crawler"
)

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	// Timeout bounds each request including redirects and body download.
	Timeout time.Duration
	// MaxBodyBytes caps response bodies. Zero means unlimited.
	MaxBodyBytes int
	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries int
}

// Transport performs GET and HEAD requests through a cloned Colly collector.
type Transport struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Transport.
func New(cfg Config, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = crawler.DefaultUserAgent
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.UserAgent(cfg.UserAgent),
	)
	c.MaxBodySize = cfg.MaxBodyBytes
	// Status handling happens in Fetch so 2xx codes other than 200-202 are not
	// reported as errors.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(&retryTransport{
		base:   newHTTPTransport(),
		policy: newExponentialBackoff(cfg.MaxRetries),
		logger: logger,
	})
	c.SetRequestTimeout(cfg.Timeout)

	return &Transport{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes one request. Non-2xx responses are returned together with an
// error so callers still see the status code.
func (t *Transport) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	if request.Method == "" {
		request.Method = http.MethodGet
	}
	start := time.Now()
	collector := t.baseCollector.Clone()
	// The collector context reaches the http.Request, so cancellation aborts
	// the round trip, redirects and retry backoff.
	collector.Context = ctx
	t.configureCollectorHooks(collector, request, start, &result, &fetchErr)

	if err := t.runCollector(ctx, collector, request, &fetchErr); err != nil {
		if ctx.Err() != nil {
			return crawler.FetchResponse{}, err
		}
		return result, err
	}
	if result.StatusCode < 200 || result.StatusCode > 299 {
		return result, fmt.Errorf("unexpected status %d %s", result.StatusCode, http.StatusText(result.StatusCode))
	}
	return result, nil
}

func (t *Transport) configureCollectorHooks(
	hooks collectorHooks,
	request crawler.FetchRequest,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		copyHeaders(request.Headers, r)
	})

	// Colly transcodes bodies whose Content-Type names a charset. Bodies must
	// reach the caller as sent, so the charset is hidden until OnResponse.
	var contentType string
	hooks.OnResponseHeaders(func(r *colly.Response) {
		if r.Headers == nil {
			return
		}
		contentType = r.Headers.Get("Content-Type")
		if stripped, ok := withoutCharset(contentType); ok {
			r.Headers.Set("Content-Type", stripped)
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		headers := r.Headers.Clone()
		if contentType != "" {
			headers.Set("Content-Type", contentType)
		}
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		*fetchErr = err
		if r != nil {
			result.StatusCode = r.StatusCode
			result.Duration = time.Since(start)
		}
	})
}

func (t *Transport) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	request crawler.FetchRequest,
	fetchErr *error,
) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Request(request.Method, request.URL, nil, nil, nil)
	}()

	select {
	case <-ctx.Done():
		<-done
		return fmt.Errorf("colly %s canceled: %w", request.Method, ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly %s failed: %w", request.Method, err)
		}
		return nil
	}
}

// withoutCharset drops the charset parameter from a Content-Type value. The
// second result is false when there is nothing to drop.
func withoutCharset(contentType string) (string, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType, false
	}
	if _, ok := params["charset"]; !ok {
		return contentType, false
	}
	delete(params, "charset")
	if formatted := mime.FormatMediaType(mediaType, params); formatted != "" {
		return formatted, true
	}
	return mediaType, true
}

// copyHeaders replaces collector defaults with the caller's values.
func copyHeaders(headers http.Header, r *colly.Request) {
	for key, values := range headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
}
