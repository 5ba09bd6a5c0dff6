package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/app"
	"github.com/desertthunder/reelgate/internal/credentials"
	"github.com/desertthunder/reelgate/internal/device"
	"github.com/desertthunder/reelgate/internal/repositories"
	"github.com/desertthunder/reelgate/internal/services"
	"github.com/desertthunder/reelgate/internal/shared"
	"github.com/desertthunder/reelgate/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette

	kv     repositories.KeyValueStore
	client *client
	close  func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer

	// KV replaces the SQLite store, mainly for tests.
	KV repositories.KeyValueStore
}

// client is the wired session stack shared by every command of one invocation.
type client struct {
	store   *credentials.Store
	gateway *services.Gateway
	guest   *services.GuestIssuer
	auth    *services.AuthService
	reset   *services.ResetService
	movies  *services.MovieService
	app     *app.App
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
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout()}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    ui.Default(),
		kv:         opts.KV,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep credentials in memory only",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging",
			Sources: cli.EnvVars("REELGATE_DEBUG"),
		},
	}
}

// Before applies global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if cmd.Bool("ephemeral") && r.kv == nil {
		r.kv = repositories.NewMemoryStore()
	}
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, bootstrapCommand, guestCommand, authCommand, resetCommand, moviesCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// connect opens storage and wires the session stack on first use.
func (r *Runner) connect() (*client, error) {
	if r.client != nil {
		return r.client, nil
	}

	kv := r.kv
	if kv == nil {
		db, err := shared.NewDatabase(r.config.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrStorage, err)
		}
		shared.ConfigureDatabase(db, r.config.Storage.MaxOpenConns, r.config.Storage.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %w", shared.ErrStorage, err)
		}
		kv = repositories.NewKVRepository(db)
		r.close = db.Close
	}

	cfg := r.config
	store := credentials.NewStore(kv, r.logger)

	ip := device.NewIPDetector(device.IPDetectorOpts{
		Config:     cfg.IP,
		BackendURL: cfg.API.BaseURL,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	collector := device.NewCollector(device.NewFingerprinter(kv), ip, cfg.API.UserAgent)

	gateway := services.NewGateway(services.GatewayOpts{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		UserAgent:  collector.UserAgent(),
		HTTPClient: r.httpClient,
		Store:      store,
		Logger:     r.logger,
	})
	guest := services.NewGuestIssuer(services.GuestIssuerOpts{
		Gateway:        gateway,
		Store:          store,
		Device:         collector,
		ValidateStored: cfg.API.ValidateTokens,
		Logger:         r.logger,
	})
	gateway.SetRefresher(guest)

	nav := services.NavigatorFunc(func(route services.Route) {
		r.logger.Debug("navigate", "route", route)
	})

	delay := cfg.Reset.RedirectDelay()
	if delay == 0 {
		delay = -1
	}

	auth := services.NewAuthService(services.AuthOpts{
		Gateway:        gateway,
		Store:          store,
		Guest:          guest,
		Device:         collector,
		Navigator:      nav,
		ValidateStored: cfg.API.ValidateTokens,
		Logger:         r.logger,
	})

	r.client = &client{
		store:   store,
		gateway: gateway,
		guest:   guest,
		auth:    auth,
		reset: services.NewResetService(services.ResetOpts{
			Gateway:       gateway,
			KV:            kv,
			Navigator:     nav,
			RedirectDelay: delay,
			Scheduler:     waitThen,
			Logger:        r.logger,
		}),
		movies: services.NewMovieService(gateway),
		app:    app.New(app.Opts{Store: store, Auth: auth, Guest: guest, Logger: r.logger}),
	}
	return r.client, nil
}

// waitThen runs f after d on the calling goroutine, since the process exits when the command returns.
func waitThen(d time.Duration, f func()) {
	time.Sleep(d)
	f()
}

// Close releases storage.
func (r *Runner) Close() error {
	if r.close == nil {
		return nil
	}
	err := r.close()
	r.close = nil
	return err
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
