package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/teamdraw/internal/dependencies/clock"
	"github.com/mcoot/teamdraw/internal/dependencies/random"
	"github.com/mcoot/teamdraw/internal/metrics"
	"github.com/mcoot/teamdraw/internal/services/auth"
	"github.com/mcoot/teamdraw/internal/services/balance"
	"github.com/mcoot/teamdraw/internal/services/roster"
	"github.com/mcoot/teamdraw/internal/services/teams"
	"github.com/mcoot/teamdraw/internal/storage"
	"github.com/mcoot/teamdraw/internal/storage/memory"
	redisstorage "github.com/mcoot/teamdraw/internal/storage/redis"
	"github.com/mcoot/teamdraw/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Metrics *metrics.Manager

	// Services
	Engine          *balance.Engine
	AuthService     *auth.Service
	RosterService   *roster.Service
	TeamsController *teams.Controller

	closer io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// AuthConfig holds configuration for the auth service (optional)
	AuthConfig auth.Config
	// TeamsConfig holds draw defaults (optional)
	TeamsConfig teams.Config
	// DrawWorkers and PositionWeight tune the engine; zero keeps engine defaults
	DrawWorkers    int
	PositionWeight float64
	// Metrics is the collector set (optional); a fresh registry is used if nil
	Metrics *metrics.Manager
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var (
		store  storage.Storage
		closer io.Closer
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, closer = redisStore, redisStore
	case StorageTypeSQLite:
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		store, closer = sqliteStore, sqliteStore
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sqlite'", storageType)
	}

	var opts []balance.Option
	if cfg.DrawWorkers > 0 {
		opts = append(opts, balance.WithWorkers(cfg.DrawWorkers))
	}
	if cfg.PositionWeight > 0 {
		opts = append(opts, balance.WithPositionWeight(cfg.PositionWeight))
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}
	teamsCfg := cfg.TeamsConfig
	if teamsCfg.DefaultIterations == 0 {
		teamsCfg = teams.DefaultConfig()
	}

	app := newWithDependencies(store, clock.New(), random.New(), m, authCfg, teamsCfg, logger, opts...)
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	m *metrics.Manager,
	authCfg auth.Config,
	teamsCfg teams.Config,
	logger *slog.Logger,
	engineOpts ...balance.Option,
) *App {
	engine := balance.New(rnd, engineOpts...)
	authService := auth.New(store, clk, logger, authCfg)
	rosterService := roster.New(store, clk, logger)
	teamsController := teams.NewController(rosterService, store, store, engine, clk, m, logger, teamsCfg)

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		Metrics:         m,
		Engine:          engine,
		AuthService:     authService,
		RosterService:   rosterService,
		TeamsController: teamsController,
	}
}

// Close releases the storage backend
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
