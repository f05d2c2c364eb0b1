// Package cmd defines and implements the CLI commands for the sitecrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/logrusorgru/aurora/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/config"
	"github.com/JakeFAU/sitecrawler/internal/crawler"
	"github.com/JakeFAU/sitecrawler/internal/logging"
	collytransport "github.com/JakeFAU/sitecrawler/internal/transport/colly"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitInvalid       = 1
	ExitDiscoveryFail = 2
	ExitNoURLs        = 3
	ExitFetchFail     = 4
)

// exitError carries a process exit code out of a command. Anything worth
// telling the user has already been printed when it is returned.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitWith(code int) error {
	if code == ExitOK {
		return nil
	}
	return &exitError{code: code}
}

// app holds the collaborators shared by all commands. Tests swap the
// factories to avoid real network and terminal output.
type app struct {
	configPath string
	verbose    bool
	monochrome bool

	newTransport func(cfg collytransport.Config, logger *zap.Logger) crawler.Transport
	newLogger    func(cfg config.LoggingConfig) (*zap.Logger, error)
}

func newApp() *app {
	return &app{
		newTransport: func(cfg collytransport.Config, logger *zap.Logger) crawler.Transport {
			return collytransport.New(cfg, logger)
		},
		newLogger: func(cfg config.LoggingConfig) (*zap.Logger, error) {
			return logging.New(cfg.Development, cfg.Level)
		},
	}
}

func (a *app) aurora() *aurora.Aurora {
	return aurora.New(aurora.WithColors(!a.monochrome))
}

// newRootCmd creates and configures the root command.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawler",
		Short: "Discover and warm every URL listed in a site's sitemaps.",
		Long: `sitecrawler reads a sitemap, a sitemap index or robots.txt, follows every
nested sitemap and either lists the discovered URLs or sends a HEAD request
to each of them, for example to warm a page cache after a deployment.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&a.monochrome, "monochrome", "m", false, "disable coloured output")

	cmd.AddCommand(newCrawlCmd(a))

	return cmd
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", root.CommandPath())
	return ExitInvalid
}

// Execute is the main entry point. It returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, newApp(), os.Args[1:], os.Stdout, os.Stderr)
}
