package crawler

import (
	"net/http"
	"time"
)

// FetchRequest describes a single transport call.
type FetchRequest struct {
	URL     string
	Method  string
	Headers http.Header
}

// FetchResponse captures what the transport observed. Body is empty for HEAD.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// DiscoveryResult accumulates the outcome of one discovery run.
type DiscoveryResult struct {
	// URLs lists leaf page URLs in discovery order. Duplicates are kept.
	URLs []string
	// Sitemaps lists child sitemaps found in indexes. The root document and
	// sitemaps declared in robots.txt are not recorded.
	Sitemaps []string
	Errors   []CrawlError
}

func newDiscoveryResult() *DiscoveryResult {
	return &DiscoveryResult{
		URLs:     []string{},
		Sitemaps: []string{},
		Errors:   []CrawlError{},
	}
}
