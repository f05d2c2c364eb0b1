// Package metrics exposes the package-level Prometheus collectors updated by
// the crawler and transport, plus a textfile exporter for one-shot CLI runs.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sitemapDocumentsTotal *prometheus.CounterVec
	crawlErrorsTotal      *prometheus.CounterVec
	discoveredURLsTotal   prometheus.Counter
	transportRetriesTotal *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors on the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		sitemapDocumentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecrawler_sitemap_documents_total",
				Help: "Sitemap documents processed, labeled by kind or failure stage.",
			},
			[]string{"outcome"},
		)

		crawlErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecrawler_errors_total",
				Help: "Collected crawl errors, labeled by error code name.",
			},
			[]string{"code"},
		)

		discoveredURLsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitecrawler_discovered_urls_total",
				Help: "Leaf URLs produced by discovery.",
			},
		)

		transportRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecrawler_transport_retries_total",
				Help: "Retried HTTP round trips, labeled by site.",
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveSitemapDocument counts one processed sitemap document.
func ObserveSitemapDocument(outcome string) {
	Init()
	sitemapDocumentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCrawlError counts one collected error by its code name.
func ObserveCrawlError(code string) {
	Init()
	crawlErrorsTotal.WithLabelValues(code).Inc()
}

// ObserveDiscoveredURLs adds the URL total of a finished discovery.
func ObserveDiscoveredURLs(n int) {
	Init()
	if n > 0 {
		discoveredURLsTotal.Add(float64(n))
	}
}

// ObserveTransportRetry counts a retried round trip for the given URL.
func ObserveTransportRetry(rawURL string) {
	Init()
	transportRetriesTotal.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// WriteTextfile dumps every collector of g to path in the Prometheus text
// format, for pickup by a node_exporter textfile collector. An empty path is
// a no-op.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
