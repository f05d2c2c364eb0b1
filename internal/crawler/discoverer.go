package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/metrics"
	"github.com/JakeFAU/sitecrawler/internal/progress"
	"github.com/JakeFAU/sitecrawler/internal/robots"
	"github.com/JakeFAU/sitecrawler/internal/sitemap"
)

var errEmptyBody = errors.New("empty response body")

// DiscovererConfig controls discovery behavior.
type DiscovererConfig struct {
	// RobotsParser extracts sitemap URLs from robots.txt. Defaults to robots.Strict.
	RobotsParser robots.Parser
	// RunID tags emitted progress events.
	RunID [16]byte
	Clock Clock
}

// Discoverer walks robots.txt and sitemap indexes down to leaf URLs.
type Discoverer struct {
	transport Transport
	robots    robots.Parser
	emitter   progress.Emitter
	clock     Clock
	runID     [16]byte
	logger    *zap.Logger
}

// NewDiscoverer builds a Discoverer. emitter may be nil.
func NewDiscoverer(transport Transport, cfg DiscovererConfig, emitter progress.Emitter, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RobotsParser == nil {
		cfg.RobotsParser = robots.Strict
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	metrics.Init()
	return &Discoverer{
		transport: transport,
		robots:    cfg.RobotsParser,
		emitter:   emitter,
		clock:     cfg.Clock,
		runID:     cfg.RunID,
		logger:    logger,
	}
}

// discoveryRun is the state of one Discover call. It is passed down the
// recursion and never shared between runs.
type discoveryRun struct {
	ctx     context.Context
	headers http.Header
	result  *DiscoveryResult
	visited map[string]struct{}
}

// visit marks loc as seen and reports whether it was new.
func (r *discoveryRun) visit(loc string) bool {
	if _, ok := r.visited[loc]; ok {
		return false
	}
	r.visited[loc] = struct{}{}
	return true
}

func (r *discoveryRun) fail(code ErrorCode, message string) {
	r.result.Errors = append(r.result.Errors, CrawlError{Code: code, Message: message})
	metrics.ObserveCrawlError(code.String())
}

// Discover resolves rootURL to a robots.txt or sitemap document and expands it
// recursively. The returned error is only set for an invalid rootURL; network
// and parse failures are collected in DiscoveryResult.Errors.
func (d *Discoverer) Discover(ctx context.Context, rootURL string, headers http.Header) (*DiscoveryResult, error) {
	root, err := ValidateURL(rootURL)
	if err != nil {
		return nil, err
	}
	start, isRobots, err := robotsURLFor(root, rootURL)
	if err != nil {
		return nil, err
	}

	run := &discoveryRun{
		ctx:     ctx,
		headers: headers,
		result:  newDiscoveryResult(),
		visited: make(map[string]struct{}),
	}
	if isRobots {
		d.logger.Debug("discovering through robots.txt", zap.String("robots_url", start))
		d.expandRobots(run, start)
	} else {
		run.visit(start)
		d.expandSitemap(run, start)
	}

	metrics.ObserveDiscoveredURLs(len(run.result.URLs))
	d.logger.Debug("discovery finished",
		zap.Int("urls", len(run.result.URLs)),
		zap.Int("sitemaps", len(run.result.Sitemaps)),
		zap.Int("errors", len(run.result.Errors)),
	)
	return run.result, nil
}

func (d *Discoverer) expandRobots(run *discoveryRun, robotsURL string) {
	doc := d.get(run, robotsURL)
	if doc.err != nil {
		d.emit(doc, 0)
		run.fail(CodeRobotsFetchFailed, fmt.Sprintf("Unable to fetch robots.txt from url: %q (%v)", robotsURL, doc.err))
		return
	}
	locations, err := d.robots(doc.body)
	if err != nil {
		doc.err = err
		d.emit(doc, 0)
		run.fail(CodeRobotsFetchFailed, fmt.Sprintf("Unable to read robots.txt from url: %q (%v)", robotsURL, err))
		return
	}
	d.emit(doc, len(locations))
	if len(locations) == 0 {
		d.logger.Debug("robots.txt declares no sitemaps", zap.String("robots_url", robotsURL))
	}
	for _, loc := range locations {
		if !run.visit(loc) {
			d.logger.Debug("sitemap already visited", zap.String("sitemap", loc))
			continue
		}
		d.expandSitemap(run, loc)
	}
}

func (d *Discoverer) expandSitemap(run *discoveryRun, loc string) {
	node, code, err := d.load(run, loc)
	if err != nil {
		run.fail(code, fmt.Sprintf("%s from url: %q (%v)", failureText(code), loc, err))
		return
	}
	d.logger.Debug("sitemap parsed",
		zap.String("sitemap", loc),
		zap.Stringer("kind", node.Kind),
		zap.Int("locations", len(node.Locations)),
	)

	switch node.Kind {
	case sitemap.KindIndex:
		for _, child := range node.Locations {
			if !IsValidURL(child) {
				d.logger.Debug("skipping invalid sitemap location", zap.String("loc", child))
				continue
			}
			if !run.visit(child) {
				d.logger.Debug("sitemap already visited", zap.String("sitemap", child))
				continue
			}
			run.result.Sitemaps = append(run.result.Sitemaps, child)
			d.expandSitemap(run, child)
		}
	case sitemap.KindURLSet:
		for _, page := range node.Locations {
			if !IsValidURL(page) {
				d.logger.Debug("skipping invalid url location", zap.String("loc", page))
				continue
			}
			run.result.URLs = append(run.result.URLs, page)
		}
	case sitemap.KindEmpty:
	}
}

// load fetches, inflates and parses one sitemap document. On failure the
// returned code names the stage that failed.
func (d *Discoverer) load(run *discoveryRun, loc string) (sitemap.Node, ErrorCode, error) {
	doc := d.get(run, loc)
	if doc.err != nil {
		d.emit(doc, 0)
		metrics.ObserveSitemapDocument("fetch_failed")
		return sitemap.Node{}, CodeSitemapFetchFailed, doc.err
	}
	body := doc.body
	if sitemap.IsGzip(body) {
		inflated, err := sitemap.Gunzip(body)
		if err != nil {
			doc.err = err
			d.emit(doc, 0)
			metrics.ObserveSitemapDocument("gzip_failed")
			return sitemap.Node{}, CodeGzipDecodeFailed, err
		}
		body = inflated
	}
	node, err := sitemap.Parse(body)
	if err != nil {
		doc.err = err
		d.emit(doc, 0)
		metrics.ObserveSitemapDocument("xml_failed")
		return sitemap.Node{}, CodeXMLTransformFailed, err
	}
	d.emit(doc, len(node.Locations))
	metrics.ObserveSitemapDocument(node.Kind.String())
	return node, 0, nil
}

func failureText(code ErrorCode) string {
	switch code {
	case CodeGzipDecodeFailed:
		return "Unable to decode gzip content"
	case CodeXMLTransformFailed:
		return "Unable to transform xml"
	default:
		return "Unable to load xml"
	}
}

// fetchedDocument is the outcome of one discovery GET.
type fetchedDocument struct {
	url    string
	status int
	body   []byte
	dur    time.Duration
	err    error
}

// get performs a GET and insists on a success status and a non-empty body.
func (d *Discoverer) get(run *discoveryRun, target string) fetchedDocument {
	started := d.clock.Now()
	resp, err := d.transport.Fetch(run.ctx, FetchRequest{
		URL:     target,
		Method:  http.MethodGet,
		Headers: run.headers.Clone(),
	})
	if err == nil && !isSuccess(resp.StatusCode) {
		err = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err == nil && len(resp.Body) == 0 {
		err = errEmptyBody
	}
	return fetchedDocument{
		url:    target,
		status: resp.StatusCode,
		body:   resp.Body,
		dur:    elapsed(d.clock, started, resp.Duration),
		err:    err,
	}
}

func (d *Discoverer) emit(doc fetchedDocument, count int) {
	if d.emitter == nil {
		return
	}
	evt := progress.Event{
		RunID:       d.runID,
		TS:          d.clock.Now(),
		Stage:       progress.StageSitemapDone,
		Site:        metrics.SanitizeSite(doc.url),
		URL:         doc.url,
		StatusClass: statusClass(doc.status, doc.err),
		Count:       count,
		Dur:         doc.dur,
	}
	if doc.err != nil {
		evt.Note = doc.err.Error()
	}
	d.emitter.Emit(evt)
}

// statusClass treats a missing status on a successful call as 2xx.
func statusClass(status int, err error) progress.StatusClass {
	if status == 0 && err == nil {
		return progress.Status2xx
	}
	return progress.ClassifyStatus(status)
}

func isSuccess(status int) bool {
	return status == 0 || (status >= 200 && status < 300)
}

// elapsed prefers the duration measured by the transport.
func elapsed(clock Clock, started time.Time, measured time.Duration) time.Duration {
	if measured > 0 {
		return measured
	}
	if d := clock.Now().Sub(started); d > 0 {
		return d
	}
	return 0
}
