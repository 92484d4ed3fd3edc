package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trx/internal/repositories"
	"github.com/desertthunder/trx/internal/services"
	"github.com/desertthunder/trx/internal/shared"
	"github.com/desertthunder/trx/internal/storage"
	"github.com/desertthunder/trx/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	spotifyauth "golang.org/x/oauth2/spotify"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
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
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, resolveCommand, playlistCommand, syncCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// env bundles the per-command dependency graph built from configuration.
type env struct {
	db          *sql.DB
	tracks      *repositories.TrackRepository
	playlists   *repositories.PlaylistRepository
	platformIDs *repositories.PlatformIDRepository
	resolver    *tasks.Resolver
	reconciler  *tasks.Reconciler
	engine      *tasks.SyncEngine
}

func (e *env) Close() error { return e.db.Close() }

// connect opens the database and wires the resolution and sync stack.
// Commands that only touch the catalog still get a full env; the platform
// client is lazy and performs no network call until used.
func (r *Runner) connect(ctx context.Context, configPath string) (*env, error) {
	config := r.config
	if configPath != "" {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			r.logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	tracks := repositories.NewTrackRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	platformIDs := repositories.NewPlatformIDRepository(db)

	resolver := tasks.NewResolver(tracks, r.logger)
	reconciler := tasks.NewReconciler(resolver, r.logger)

	tokens := r.tokenManager(config)
	platform := services.NewSpotifyService(tokens, r.httpClient, "")

	var covers *tasks.CoverPipeline
	if config.Storage.Endpoint != "" && config.Storage.AccessKey != "" {
		if store, err := storage.NewMinioStore(ctx, config.Storage); err == nil {
			covers = tasks.NewCoverPipeline(store, playlists, r.httpClient, r.logger, tasks.DefaultCoverOpts())
		} else {
			r.logger.Warn("blob store unavailable, cover persistence disabled", "error", err)
		}
	}

	cache := tasks.NewSnapshotCache(time.Duration(config.Sync.CacheTTLMinutes) * time.Minute)
	limiter := rate.NewLimiter(rate.Limit(config.Sync.BatchesPerSecond), 1)

	opts := tasks.DefaultSyncOpts()
	opts.BatchSize = config.Sync.BatchSize
	opts.MaxRetries = config.Sync.MaxRetries

	engine := tasks.NewSyncEngine(platform, playlists, platformIDs, cache, limiter, covers, r.logger, opts)

	return &env{
		db:          db,
		tracks:      tracks,
		playlists:   playlists,
		platformIDs: platformIDs,
		resolver:    resolver,
		reconciler:  reconciler,
		engine:      engine,
	}, nil
}

// tokenManager selects the OAuth grant: a configured refresh token gets the
// per-user grant, otherwise the shared client-credentials grant.
func (r *Runner) tokenManager(config *shared.Config) *services.TokenManager {
	creds := config.Credentials.Spotify

	if creds.RefreshToken != "" {
		conf := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Endpoint:     spotifyauth.Endpoint,
		}
		return services.NewUserTokenManager(conf, creds.RefreshToken)
	}

	return services.NewServiceTokenManager(&clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     spotifyauth.Endpoint.TokenURL,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
