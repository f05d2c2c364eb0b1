package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/logrusorgru/aurora/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/config"
	"github.com/JakeFAU/sitecrawler/internal/crawler"
	idgen "github.com/JakeFAU/sitecrawler/internal/id/uuid"
	"github.com/JakeFAU/sitecrawler/internal/metrics"
	"github.com/JakeFAU/sitecrawler/internal/output"
	"github.com/JakeFAU/sitecrawler/internal/progress"
	"github.com/JakeFAU/sitecrawler/internal/progress/sinks"
	"github.com/JakeFAU/sitecrawler/internal/robots"
	collytransport "github.com/JakeFAU/sitecrawler/internal/transport/colly"
)

const hubCloseTimeout = 5 * time.Second

// crawlOptions holds flags that are not part of the persistent configuration.
type crawlOptions struct {
	list string
}

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd(a *app) *cobra.Command {
	opts := &crawlOptions{}
	cmd := &cobra.Command{
		Use:   "crawl <url> [headers]",
		Short: "Discover sitemap URLs and fetch or list them",
		Long: `Reads the sitemap, sitemap index or robots.txt at <url> and expands every
nested sitemap. A bare domain such as https://example.com/ is looked up
through its robots.txt. Without --list every discovered URL is requested
with HEAD; with --list the URLs are printed instead.

[headers] is an optional JSON object of request headers, for example
'{"Authorization": "Basic dXNlcjpwYXNz"}'.

Exit codes: 0 success, 1 invalid input, 2 discovery errors, 3 no urls found,
4 fetch errors.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrawl(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.list, "list", "l", "", "print discovered urls instead of fetching them (json or txt)")
	flags.StringP("output", "o", "", "write the --list output to a file instead of stdout")
	flags.IntP("concurrency", "c", crawler.DefaultConcurrency, "number of concurrent HEAD requests")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.Int("retries", 2, "extra attempts for transient network failures")
	flags.String("user-agent", crawler.DefaultUserAgent, "default User-Agent header")
	flags.Bool("lenient-robots", false, "accept sitemap directives in robots.txt in any case")
	flags.String("metrics-file", "", "write Prometheus metrics in text format to this path")
	flags.Bool("no-progress", false, "disable the progress bar")

	return cmd
}

// crawlRun carries the state of one crawl invocation.
type crawlRun struct {
	cfg     config.Config
	out     io.Writer
	au      *aurora.Aurora
	logger  *zap.Logger
	runID   uuid.UUID
	rootURL string
	started time.Time
	hub     *progress.Hub
	bar     *sinks.BarSink
	reg     *prometheus.Registry

	urls     int
	finished bool
}

func (a *app) runCrawl(cmd *cobra.Command, opts *crawlOptions, args []string) error {
	out := cmd.OutOrStdout()
	rootURL := args[0]
	rawHeaders := ""
	if len(args) > 1 {
		rawHeaders = args[1]
	}

	// Input validation happens before any network activity.
	format, err := output.ParseFormat(opts.list)
	if err != nil {
		return invalid(out, crawler.CodeInvalidFormat, fmt.Sprintf("Invalid format for list %q!", opts.list))
	}
	if !crawler.IsValidURL(rootURL) {
		return invalid(out, crawler.CodeInvalidURL, "Invalid url given as argument!")
	}
	overrides, err := crawler.ParseHeaders(rawHeaders)
	if err != nil {
		return invalid(out, crawler.CodeInvalidHeaders, "Invalid header json given!")
	}

	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "invalid configuration: %v\n", err)
		return exitWith(ExitInvalid)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := a.newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "init logger: %v\n", err)
		return exitWith(ExitInvalid)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	runID, err := idgen.New().NewRawID()
	if err != nil {
		return fmt.Errorf("create run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID.String()))

	run := &crawlRun{
		cfg:     cfg,
		out:     out,
		au:      a.aurora(),
		logger:  logger,
		runID:   runID,
		rootURL: rootURL,
		started: time.Now(),
		reg:     prometheus.NewRegistry(),
	}
	if err := run.startProgress(cmd.ErrOrStderr(), format == output.FormatNone); err != nil {
		return err
	}

	headers := crawler.MergeHeaders(crawler.DefaultHeaders(cfg.Crawler.UserAgent), overrides)
	transport := a.newTransport(collytransport.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.HTTP.Timeout,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		MaxRetries:   cfg.HTTP.MaxRetries,
	}, logger)

	code := run.execute(cmd.Context(), transport, headers, format)
	run.finish(code)
	return exitWith(code)
}

func invalid(out io.Writer, code crawler.ErrorCode, message string) error {
	fmt.Fprintln(out, crawler.CrawlError{Code: code, Message: message}.Error())
	return exitWith(ExitInvalid)
}

func (r *crawlRun) startProgress(stderr io.Writer, withBar bool) error {
	promSink, err := sinks.NewPrometheusSink(r.reg)
	if err != nil {
		return fmt.Errorf("init progress metrics: %w", err)
	}
	hubSinks := []progress.Sink{sinks.NewLogSink(r.logger), promSink}
	if withBar && !r.cfg.Progress.Disabled {
		r.bar = sinks.NewBarSink(stderr, r.au)
		hubSinks = append(hubSinks, r.bar)
	}
	r.hub = progress.NewHub(progress.Config{Logger: r.logger}, hubSinks...)
	r.emitRun(progress.StageRunStart, "")
	return nil
}

func (r *crawlRun) execute(ctx context.Context, transport crawler.Transport, headers http.Header, format output.Format) int {
	runID := progress.UUIDToBytes(r.runID)

	r.logger.Debug("gathering urls for crawling", zap.String("url", r.rootURL))
	discoverer := crawler.NewDiscoverer(transport, crawler.DiscovererConfig{
		RobotsParser: robots.ParserFor(r.cfg.Crawler.LenientRobots),
		RunID:        runID,
	}, r.hub, r.logger)
	result, err := discoverer.Discover(ctx, r.rootURL, headers)
	if err != nil {
		code, _ := crawler.CodeOf(err)
		fmt.Fprintln(r.out, crawler.CrawlError{Code: code, Message: err.Error()}.Error())
		return ExitInvalid
	}
	if len(result.Errors) > 0 {
		r.printErrors(result.Errors)
		return ExitDiscoveryFail
	}
	r.urls = len(result.URLs)
	if r.urls == 0 {
		fmt.Fprintln(r.out, r.au.Yellow("[WARNING] No urls found"))
		return ExitNoURLs
	}

	summary := fmt.Sprintf("Found %d url(s)", len(result.URLs))
	if len(result.Sitemaps) > 0 {
		summary += fmt.Sprintf(" in %d sitemap(s)", len(result.Sitemaps))
	}
	r.logger.Debug(summary, zap.Int("urls", len(result.URLs)), zap.Int("sitemaps", len(result.Sitemaps)))

	if format != output.FormatNone {
		return r.list(format, result)
	}

	if r.bar != nil {
		r.bar.SetTotal(len(result.URLs))
	}
	fetcher := crawler.NewFetcher(transport, crawler.FetcherConfig{
		Concurrency: r.cfg.Crawler.Concurrency,
		RunID:       runID,
	}, r.hub, r.logger)
	errs := fetcher.Fetch(ctx, result.URLs, headers)

	// The bar writes to stderr; finish it before the summary lines.
	if len(errs) > 0 {
		r.finish(ExitFetchFail)
		fmt.Fprintln(r.out, r.au.Yellow("[WARNING] Finished with some errors!"))
		r.printErrors(errs)
		return ExitFetchFail
	}
	r.finish(ExitOK)
	fmt.Fprintln(r.out, r.au.Green("[OK] Completed successfully!"))
	return ExitOK
}

func (r *crawlRun) list(format output.Format, result *crawler.DiscoveryResult) int {
	listing := output.Listing{URLs: result.URLs, Sitemaps: result.Sitemaps}
	var err error
	if r.cfg.Output.Path != "" {
		err = output.WriteFile(r.cfg.Output.Path, format, listing)
	} else {
		err = output.Write(r.out, format, listing)
	}
	if err != nil {
		r.logger.Error("write url list", zap.Error(err))
		return ExitInvalid
	}
	return ExitOK
}

func (r *crawlRun) printErrors(errs []crawler.CrawlError) {
	for _, e := range errs {
		fmt.Fprintln(r.out, e.Error())
	}
}

// finish reports the run outcome, flushes the progress sinks and exports
// metrics. Only the first call has an effect.
func (r *crawlRun) finish(code int) {
	if r.finished {
		return
	}
	r.finished = true
	if code == ExitOK {
		r.emitRun(progress.StageRunDone, "")
	} else {
		r.emitRun(progress.StageRunError, fmt.Sprintf("exit status %d", code))
	}
	r.closeHub()

	if dropped := r.hub.Dropped(); dropped > 0 {
		r.logger.Debug("progress events dropped", zap.Int64("dropped", dropped))
	}
	if err := metrics.WriteTextfile(prometheus.Gatherers{prometheus.DefaultGatherer, r.reg}, r.cfg.Metrics.Textfile); err != nil {
		r.logger.Warn("Failed to write metrics", zap.Error(err))
	}
}

func (r *crawlRun) closeHub() {
	ctx, cancel := context.WithTimeout(context.Background(), hubCloseTimeout)
	defer cancel()
	if err := r.hub.Close(ctx); err != nil {
		r.logger.Warn("Failed to close progress hub", zap.Error(err))
	}
}

func (r *crawlRun) emitRun(stage progress.Stage, note string) {
	r.hub.Emit(progress.Event{
		RunID: progress.UUIDToBytes(r.runID),
		TS:    time.Now().UTC(),
		Stage: stage,
		Site:  metrics.SanitizeSite(r.rootURL),
		URL:   r.rootURL,
		Count: r.urls,
		Dur:   time.Since(r.started),
		Note:  note,
	})
}
