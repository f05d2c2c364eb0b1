package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/metrics"
	"github.com/JakeFAU/sitecrawler/internal/progress"
)

// DefaultConcurrency is the fetch pool size when none is configured.
const DefaultConcurrency = 4

// FetcherConfig controls the fetch phase.
type FetcherConfig struct {
	Concurrency int
	RunID       [16]byte
	Clock       Clock
}

// Fetcher warms URLs with HEAD requests on a bounded pool.
type Fetcher struct {
	transport   Transport
	concurrency int
	emitter     progress.Emitter
	clock       Clock
	runID       [16]byte
	logger      *zap.Logger
}

// NewFetcher builds a Fetcher. emitter may be nil.
func NewFetcher(transport Transport, cfg FetcherConfig, emitter progress.Emitter, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	metrics.Init()
	return &Fetcher{
		transport:   transport,
		concurrency: cfg.Concurrency,
		emitter:     emitter,
		clock:       cfg.Clock,
		runID:       cfg.RunID,
		logger:      logger,
	}
}

// Fetch sends one HEAD request per URL and returns a URL_FETCH_FAILED error
// for each failure. Every URL is attempted; errors follow the order of urls.
func (f *Fetcher) Fetch(ctx context.Context, urls []string, headers http.Header) []CrawlError {
	failures := make([]*CrawlError, len(urls))
	p := pool.New().WithMaxGoroutines(f.concurrency)
	for i, target := range urls {
		p.Go(func() {
			failures[i] = f.fetchOne(ctx, target, headers)
		})
	}
	p.Wait()

	errs := make([]CrawlError, 0)
	for _, failure := range failures {
		if failure != nil {
			errs = append(errs, *failure)
		}
	}
	f.logger.Debug("fetch phase finished", zap.Int("urls", len(urls)), zap.Int("errors", len(errs)))
	return errs
}

func (f *Fetcher) fetchOne(ctx context.Context, target string, headers http.Header) *CrawlError {
	started := f.clock.Now()
	resp, err := f.transport.Fetch(ctx, FetchRequest{
		URL:     target,
		Method:  http.MethodHead,
		Headers: headers.Clone(),
	})
	if err == nil && !isSuccess(resp.StatusCode) {
		err = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	f.emit(target, resp.StatusCode, elapsed(f.clock, started, resp.Duration), err)
	if err == nil {
		return nil
	}

	f.logger.Debug("url fetch failed", zap.String("url", target), zap.Error(err))
	metrics.ObserveCrawlError(CodeURLFetchFailed.String())
	return &CrawlError{
		Code:    CodeURLFetchFailed,
		Message: fmt.Sprintf("Unable to fetch url: %q (%v)", target, err),
	}
}

func (f *Fetcher) emit(target string, status int, dur time.Duration, err error) {
	if f.emitter == nil {
		return
	}
	evt := progress.Event{
		RunID:       f.runID,
		TS:          f.clock.Now(),
		Stage:       progress.StageFetchDone,
		Site:        metrics.SanitizeSite(target),
		URL:         target,
		StatusClass: statusClass(status, err),
		Dur:         dur,
	}
	if err != nil {
		evt.Note = err.Error()
	}
	f.emitter.Emit(evt)
}
