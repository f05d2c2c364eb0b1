package crawler

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecrawler/internal/progress"
)

// MockTransport is a mock implementation of the Transport interface.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(FetchResponse), args.Error(1)
}

// MockEmitter is a mock implementation of progress.Emitter.
type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) Emit(evt progress.Event) {
	m.Called(evt)
}

// siteTransport serves canned bodies keyed by URL and records every request.
// Unknown URLs answer 404.
type siteTransport struct {
	mu       sync.Mutex
	pages    map[string][]byte
	failures map[string]error
	requests []FetchRequest
}

func newSiteTransport() *siteTransport {
	return &siteTransport{pages: map[string][]byte{}, failures: map[string]error{}}
}

func (s *siteTransport) serve(url, body string) *siteTransport {
	s.pages[url] = []byte(body)
	return s
}

func (s *siteTransport) serveBytes(url string, body []byte) *siteTransport {
	s.pages[url] = body
	return s
}

func (s *siteTransport) fail(url string, err error) *siteTransport {
	s.failures[url] = err
	return s
}

func (s *siteTransport) Fetch(_ context.Context, request FetchRequest) (FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	if err, ok := s.failures[request.URL]; ok {
		return FetchResponse{}, err
	}
	body, ok := s.pages[request.URL]
	if !ok {
		return FetchResponse{URL: request.URL, StatusCode: http.StatusNotFound}, errors.New("404 Not Found")
	}
	if request.Method == http.MethodHead {
		body = nil
	}
	return FetchResponse{URL: request.URL, StatusCode: http.StatusOK, Body: body}, nil
}

func (s *siteTransport) requestedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r.URL)
	}
	return out
}

func (s *siteTransport) methods() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, r := range s.requests {
		out[r.Method]++
	}
	return out
}

func urlSet(locs ...string) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, loc := range locs {
		buf.WriteString("<url><loc>" + loc + "</loc></url>")
	}
	buf.WriteString("</urlset>")
	return buf.String()
}

func sitemapIndex(locs ...string) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, loc := range locs {
		buf.WriteString("<sitemap><loc>" + loc + "</loc></sitemap>")
	}
	buf.WriteString("</sitemapindex>")
	return buf.String()
}

func gzipString(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func errorCodes(errs []CrawlError) []ErrorCode {
	out := make([]ErrorCode, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}
