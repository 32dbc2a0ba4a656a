package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fedsearch/fedsearch/pkg/assemble"
	"github.com/fedsearch/fedsearch/pkg/cache"
	"github.com/fedsearch/fedsearch/pkg/config"
	"github.com/fedsearch/fedsearch/pkg/impression"
	"github.com/fedsearch/fedsearch/pkg/index"
	"github.com/fedsearch/fedsearch/pkg/provider"
	"github.com/fedsearch/fedsearch/pkg/tenant"
)

// services bundles the wired application stack shared by the CLI commands
// and serve mode.
type services struct {
	cfg       *config.Config
	store     *index.Store
	tenants   *tenant.Store
	cache     *cache.ResponseCache
	firehose  *impression.Firehose
	assembler *assemble.Assembler
}

// buildServices wires the full stack from the configuration file. withFirehose
// controls whether impressions are broadcast to websocket listeners.
func buildServices(ctx context.Context, configPath string, withFirehose bool) (*services, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := openIndex(cfg)
	if err != nil {
		return nil, err
	}

	tenants, err := tenant.Load(cfg.TenantsPath)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			fmt.Printf("Warning: failed to close index: %v\n", cerr)
		}
		return nil, fmt.Errorf("loading tenants: %w", err)
	}

	backend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			fmt.Printf("Warning: failed to close index: %v\n", cerr)
		}
		return nil, err
	}
	responseCache := cache.New(backend, cfg.Cache.TTL.Duration)

	client := provider.NewClient(cfg.Provider.Endpoint, cfg.Provider.AppID, cfg.Provider.Timeout.Duration)

	var firehose *impression.Firehose
	if withFirehose {
		firehose = impression.NewFirehose(0)
	}
	impressions := impression.NewLogger(firehose)

	return &services{
		cfg:       cfg,
		store:     store,
		tenants:   tenants,
		cache:     responseCache,
		firehose:  firehose,
		assembler: assemble.New(tenants, responseCache, client, store, impressions),
	}, nil
}

func (s *services) close() {
	if err := s.cache.Close(); err != nil {
		fmt.Printf("Warning: failed to close cache: %v\n", err)
	}
	if err := s.store.Close(); err != nil {
		fmt.Printf("Warning: failed to close index: %v\n", err)
	}
}

func openIndex(cfg *config.Config) (*index.Store, error) {
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	store, err := index.Open(filepath.Join(cfg.StorageDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	return store, nil
}

func newCacheBackend(ctx context.Context, cfg *config.Config) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		return cache.NewMemoryBackend(cfg.Cache.MaxEntries, cfg.Cache.TTL.Duration), nil
	case "redis":
		backend, err := cache.NewRedisBackend(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
