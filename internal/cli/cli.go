// Package cli implements the phaseflow command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/phaseflow/pkg/buildinfo"
	"github.com/matzehuels/phaseflow/pkg/cache"
	"github.com/matzehuels/phaseflow/pkg/config"
	errs "github.com/matzehuels/phaseflow/pkg/errors"
	"github.com/matzehuels/phaseflow/pkg/pipeline"
	"github.com/matzehuels/phaseflow/pkg/render/nodelink"
	"github.com/matzehuels/phaseflow/pkg/session"
	"github.com/matzehuels/phaseflow/pkg/summary"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "phaseflow"

	// stdinPath selects standard input wherever a file argument is accepted.
	stdinPath = "-"

	// maxInputBytes bounds flow documents read from files or stdin.
	maxInputBytes = 8 << 20
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
	stdin      io.Reader
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		stdin:  os.Stdin,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "phaseflow turns process-flow descriptions into navigable diagrams",
		Long: `phaseflow validates process-flow documents (phases, sub-phases and code
snippets), lays them out on a fixed grid and renders them as diagrams.

Documents can be written by hand or produced by a summarization service
from source code.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/phaseflow/config.toml)")

	root.AddCommand(c.validateCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.summarizeCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.schemaCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Factories
// =============================================================================

// config loads the configuration once per process.
func (c *CLI) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	c.cfg = &cfg
	c.Logger.Debug("config loaded", "path", c.configPath, "cache", cfg.Cache.Backend, "sessions", cfg.Sessions.Backend)
	return cfg, nil
}

// pipelineOptions returns pipeline defaults with the configured grid.
func (c *CLI) pipelineOptions() (pipeline.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.DefaultOptions()
	opts.Layout = cfg.LayoutOptions()
	opts.Render = nodelink.Options{}
	return opts, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	cc, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, keyerFor(cfg), c.Logger), nil
}

// keyerFor returns the cache keyer for cfg, or nil for the default.
func keyerFor(cfg config.Config) cache.Keyer {
	if cfg.Cache.Namespace == "" {
		return nil
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Namespace+":")
}

func (c *CLI) newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// newSummaryClient builds a client for the configured service. A non-empty
// url overrides the config.
func (c *CLI) newSummaryClient(url string, cc cache.Cache) (*summary.Client, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if url == "" {
		url = cfg.Service.URL
	}
	opts := []summary.Option{summary.WithTimeout(cfg.Service.Timeout)}
	if cfg.Service.Retries > 0 {
		opts = append(opts, summary.WithRetry(cfg.Service.Retries, 500*time.Millisecond))
	}
	if cc != nil {
		opts = append(opts, summary.WithCache(cc, keyerFor(cfg), cache.SummaryTTL))
	}
	return summary.NewClient(url, opts...), nil
}

// newSessionStore opens the configured session backend.
func (c *CLI) newSessionStore(ctx context.Context) (session.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	s := cfg.Sessions
	switch s.Backend {
	case config.BackendFile:
		return session.NewFileStore(s.Dir)
	case config.BackendRedis:
		return session.NewRedisStore(ctx, s.RedisURL)
	case config.BackendMongo:
		return session.NewMongoStore(ctx, s.MongoURI, s.MongoDatabase, s.MongoCollection)
	}
	return session.NewMemoryStore(), nil
}

// =============================================================================
// Paths & Input
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/phaseflow/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// readInput reads a flow document from path, or from stdin when path is "-".
func (c *CLI) readInput(path string) (string, error) {
	if err := errs.ValidatePath(path); err != nil {
		return "", err
	}
	var r io.Reader
	if path == stdinPath {
		r = c.stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", errs.Wrap(errs.ErrCodeFileNotFound, err, "file not found: %s", path)
			}
			return "", fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxInputBytes {
		return "", errs.New(errs.ErrCodeInvalidInput, "%s exceeds %d bytes", path, maxInputBytes)
	}
	return string(data), nil
}

// outputBase derives an output path prefix from the input file name.
func outputBase(input, output string) string {
	if output != "" {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	if input == stdinPath {
		return "flow"
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}
