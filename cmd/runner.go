package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deezr/internal/catalog"
	"github.com/desertthunder/deezr/internal/library"
	"github.com/desertthunder/deezr/internal/playback"
	"github.com/desertthunder/deezr/internal/repositories"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    catalog.Catalog
	store      *library.Store
	audio      playback.Output
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// catalogSet is true when the catalog was injected and must survive config reloads.
	catalogSet bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    catalog.Catalog
	// Store replaces the library opened from the storage config.
	Store *library.Store
	// Audio replaces the stream output built from the player config.
	Audio      playback.Output
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		store:      opts.Store,
		audio:      opts.Audio,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		catalogSet: opts.Catalog != nil,
	}
	if r.catalog == nil {
		r.catalog = r.newCatalog()
	}
	return r
}

func (r *Runner) newCatalog() catalog.Catalog {
	return catalog.NewFromConfig(r.config.Catalog, shared.WithLogger(r.logger, "component", "catalog"))
}

// SetLogger swaps the logger, rebuilding the catalog client so it logs to the same place.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if !r.catalogSet {
		r.catalog = r.newCatalog()
	}
}

// loadConfig is the root Before hook: it reads --config and applies the log level.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.configPath = path

	if err := shared.SetLogLevel(r.logger, config.Log.Level); err != nil {
		return ctx, err
	}
	if !r.catalogSet {
		r.catalog = r.newCatalog()
	}
	r.logger.Debug("configuration loaded", "path", path, "storage", config.Storage.Backend)
	return ctx, nil
}

// openLibrary returns the injected store or opens one on the configured backend.
//
// The returned func releases everything that was opened.
func (r *Runner) openLibrary() (*library.Store, func(), error) {
	if r.store != nil {
		return r.store, func() {}, nil
	}

	kv, closeKV, err := repositories.Open(r.config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open library storage: %w", err)
	}

	store := library.Open(kv, shared.WithLogger(r.logger, "component", "library"))
	return store, func() {
		store.Close()
		if err := closeKV(); err != nil {
			r.logger.Warn("failed to close library storage", "error", err)
		}
	}, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, catalogCommand, libraryCommand, playCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// requireArg returns the trimmed positional argument or an [shared.ErrMissingArgument].
func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// requireID parses a positive catalog ID argument.
func requireID(cmd *cli.Command, name string) (int64, error) {
	raw, err := requireArg(cmd, name)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}
