// Package common provides the shared dependency bootstrap for command
// implementations.
package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/golibrary/internal/config"
	"github.com/jonesrussell/golibrary/internal/coordination"
	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/database"
	"github.com/jonesrussell/golibrary/internal/enrich"
	"github.com/jonesrussell/golibrary/internal/files"
	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// Deps holds the wired dependencies commands run on.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
	DB     *sqlx.DB
	Redis  *redis.Client
	Store  *database.Store
	Runner *crawl.Runner
	Enrich *enrich.Manager
	Locks  *coordination.LockManager
}

// Close releases the connections held by the dependency set.
func (d *Deps) Close() {
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

// Setup loads configuration and wires the full dependency graph. The caller
// owns the returned Deps and must Close them.
func Setup(cfgFile string, debug bool) (*Deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := cfg.Logging
	if debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	log, err := logger.New(&logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	content := files.NewStorage(cfg.Storage.UploadDir)
	store := database.NewStore(db, content, log)
	locks := coordination.NewLockManager(redisClient)

	runner := crawl.NewRunner(
		store,
		&crawl.RedisRunLocker{Locks: locks},
		crawl.DefaultCrawlers(store, filter.NewEngine(log), cfg.Crawl.HTTPServiceURL, log),
		log,
	)

	return &Deps{
		Config: cfg,
		Logger: log,
		DB:     db,
		Redis:  redisClient,
		Store:  store,
		Runner: runner,
		Enrich: enrich.NewManager(store, log),
		Locks:  locks,
	}, nil
}
