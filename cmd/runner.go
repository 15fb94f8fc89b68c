package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmix/internal/auth"
	"github.com/desertthunder/ytmix/internal/formatter"
	"github.com/desertthunder/ytmix/internal/repositories"
	"github.com/desertthunder/ytmix/internal/services"
	"github.com/desertthunder/ytmix/internal/shared"
	"github.com/desertthunder/ytmix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, API clients, token manager and engine are built on first use
// so that commands like setup work without a valid configuration.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	status     io.Writer
	palette    *formatter.Palette
	navigate   auth.Navigator

	exchange *services.ExchangeService
	youtube  *services.YouTubeService
	manager  *auth.Manager
	engine   *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Status receives progress lines and prompts, kept apart from command output.
	Status   io.Writer
	Palette  *formatter.Palette
	Navigate auth.Navigator
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
	if opts.Status == nil {
		opts.Status = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Palette == nil {
		opts.Palette = formatter.DefaultPalette
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		status:     opts.Status,
		palette:    opts.Palette,
		navigate:   opts.Navigate,
	}
	if r.navigate == nil {
		r.navigate = r.openBrowser
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){setupCommand, authCommand, generateCommand} {
		commands = append(commands, fn(r))
	}
	return commands
}

// Before applies --log-file and --verbose, then loads the configuration named by --config.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("log-file"); path != "" {
		logger, err := shared.NewFileLogger(path)
		if err != nil {
			return ctx, fmt.Errorf("failed to open log file: %w", err)
		}
		r.logger = logger
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		if err := r.config.ApplyEnv(); err != nil {
			return ctx, err
		}
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// session builds the storage, API clients, token manager and engine once.
func (r *Runner) session() error {
	if r.manager != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	} else if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	exchangeClient := r.clientWithTimeout(r.config.Exchange.TimeoutSeconds)
	youtubeClient := r.clientWithTimeout(r.config.YouTube.TimeoutSeconds)

	r.exchange = services.NewExchangeService(r.config.Exchange.BaseURL, exchangeClient)
	yt := services.NewYouTubeService(r.config.YouTube.BaseURL, youtubeClient)

	google := r.config.Credentials.Google
	r.manager = auth.NewManager(auth.Options{
		Store:         repositories.NewCredentialStore(r.db),
		Exchange:      r.exchange,
		Validator:     yt,
		ClientID:      google.ClientID,
		RedirectURL:   google.RedirectURI,
		AuthURL:       google.AuthURL,
		Scopes:        google.Scopes,
		Navigate:      r.navigate,
		SweepInterval: r.config.Auth.SweepInterval(),
		Logger:        shared.WithLogger(r.logger, "component", "auth"),
	})

	r.youtube = yt.WithTokens(r.manager)
	opts := tasks.OptionsFromConfig(r.config.Generator, shared.WithLogger(r.logger, "component", "engine"))
	r.engine = tasks.NewEngine(r.youtube, r.manager, opts)
	return nil
}

func (r *Runner) clientWithTimeout(seconds int) *http.Client {
	if seconds <= 0 {
		return r.httpClient
	}
	client := *r.httpClient
	client.Timeout = time.Duration(seconds) * time.Second
	return &client
}

// Close releases the database.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// openBrowser is the default navigator. It falls back to printing the URL.
func (r *Runner) openBrowser(url string) error {
	if err := shared.OpenBrowser(url); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writeStatus("⚠ Could not open browser automatically.\n")
		r.writeStatus("Please open this URL in your browser:\n%s\n\n", url)
	}
	return nil
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

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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

func (r *Runner) writeStatus(format string, args ...any) {
	fmt.Fprintf(r.status, format, args...)
}
