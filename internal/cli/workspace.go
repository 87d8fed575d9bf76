package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/config"
	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/integrations/npm"
	"github.com/matzehuels/peerguard/pkg/pipeline"
	"github.com/matzehuels/peerguard/pkg/report"
	"github.com/matzehuels/peerguard/pkg/snapshot"
)

// workspace is everything a command needs to evaluate one project, built
// from the resolved configuration.
type workspace struct {
	dir        string
	cfg        *config.Config
	configPath string

	cache    cache.Cache
	redis    redis.UniversalClient
	mongo    *report.MongoStore
	reports  report.Store
	detector *conflict.Detector
	runner   *pipeline.Runner

	// redis is closed by the cache when the cache is Redis-backed
	cacheOwnsRedis bool
}

// openWorkspace resolves configuration for the --project-dir and connects
// the configured backends.
func (c *CLI) openWorkspace(ctx context.Context) (*workspace, error) {
	dir, err := filepath.Abs(c.projectDir)
	if err != nil {
		return nil, fmt.Errorf("project dir: %w", err)
	}
	cfg, path, err := config.Resolve(dir, c.configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}

	ws := &workspace{dir: dir, cfg: cfg, configPath: path}
	if err := c.connect(ctx, ws); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return ws, nil
}

func (c *CLI) connect(ctx context.Context, ws *workspace) error {
	cfg, dir := ws.cfg, ws.dir
	if cfg.UsesRedis() {
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("connect redis %s: %w", cfg.Storage.RedisAddr, err)
		}
		ws.redis = client
	}

	var err error
	if ws.cache, err = c.newCache(cfg, ws.redis); err != nil {
		return err
	}
	_, ws.cacheOwnsRedis = ws.cache.(*cache.RedisCache)

	keyer := cache.NewDefaultKeyer()
	registry := npm.NewClient(npm.Options{
		BaseURL:  cfg.Registry.URL,
		Cache:    ws.cache,
		Keyer:    keyer,
		CacheTTL: cfg.Registry.CacheTTL,
	})
	ws.detector = conflict.NewDetector(registry, conflict.Options{
		Policy:       cfg.Policy,
		QueryTimeout: cfg.Registry.Timeout,
		Workers:      cfg.Registry.Workers,
		Logger:       c.Logger,
	})

	var snapshots snapshot.Store
	switch cfg.Storage.Snapshots {
	case config.BackendRedis:
		snapshots = snapshot.NewRedisStore(ws.redis, keyer)
	default:
		snapshots = snapshot.NewFileStore(cfg.ReportDir(dir))
	}

	switch cfg.Storage.Reports {
	case config.BackendMongo:
		ws.mongo, err = report.NewMongoStore(ctx, report.MongoConfig{
			URI:        cfg.Storage.MongoURI,
			Database:   cfg.Storage.MongoDatabase,
			Collection: cfg.Storage.MongoCollection,
		}, dir)
		if err != nil {
			return err
		}
		ws.reports = ws.mongo
	default:
		ws.reports = report.NewFileStore(cfg.ReportDir(dir))
	}

	ws.runner = pipeline.NewRunner(ws.detector, snapshot.NewTracker(snapshots), ws.reports, c.Logger)
	return nil
}

// newCache builds the lookup cache selected by config and --no-cache.
func (c *CLI) newCache(cfg *config.Config, client redis.UniversalClient) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Registry.Cache {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendMemory:
		return cache.NewMemoryCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCacheFromClient(client), nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// Close releases every backend connection.
func (w *workspace) Close() error {
	var errs []error
	if w.mongo != nil {
		errs = append(errs, w.mongo.Close(context.Background()))
	}
	if w.cache != nil {
		errs = append(errs, w.cache.Close())
	}
	if w.redis != nil && !w.cacheOwnsRedis {
		errs = append(errs, w.redis.Close())
	}
	return stderrors.Join(errs...)
}
