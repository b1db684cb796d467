package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	source     services.PlaylistSource
	providers  []services.Provider
	analyzer   tasks.LoudnessAnalyzer
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db        *sql.DB
	playlists *repositories.PlaylistRepository
	songs     *repositories.SongRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Source     services.PlaylistSource
	Providers  []services.Provider
	Analyzer   tasks.LoudnessAnalyzer
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

	return &Runner{
		config:     opts.Config,
		source:     opts.Source,
		providers:  opts.Providers,
		analyzer:   opts.Analyzer,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, downloadCommand, trackCommand, libraryCommand, normalizeCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase opens the configured database, runs migrations, and wires the
// repositories. Idempotent across command actions.
func (r *Runner) openDatabase() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return err
	}

	r.db = db
	r.songs = repositories.NewSongRepository(db)
	r.playlists = repositories.NewPlaylistRepository(db, r.songs)
	return nil
}

// downloader builds the batch orchestrator over the open database.
func (r *Runner) downloader(dir string) *tasks.Downloader {
	if dir == "" {
		dir = r.config.Downloads.Directory
	}
	return tasks.NewDownloader(tasks.DownloaderOpts{
		Providers: r.providers,
		Songs:     r.songs,
		Analyzer:  r.analyzer,
		Logger:    r.logger,
		Directory: dir,
		RateLimit: r.config.Downloads.RateLimit,
	})
}

func (r *Runner) requireSource() error {
	if r.source == nil {
		return fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) requireProviders() error {
	if len(r.providers) == 0 {
		return fmt.Errorf("%w: no download providers configured", shared.ErrServiceUnavailable)
	}
	return nil
}

// reloadConfig swaps in a config file when the flag points at one that exists.
func (r *Runner) reloadConfig(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if config, err := shared.LoadConfig(path); err == nil {
		r.config = config
	} else {
		r.logger.Warn("failed to load config, using defaults", "path", path, "err", err)
	}
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
