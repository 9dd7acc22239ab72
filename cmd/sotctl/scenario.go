package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/sot/pkg/adapters/file"
	"github.com/aretw0/sot/pkg/adapters/memory"
	"github.com/aretw0/sot/pkg/adapters/redis"
	"github.com/aretw0/sot/pkg/adapters/sqlite"
	"github.com/aretw0/sot/pkg/config"
	"github.com/aretw0/sot/pkg/persistence/middleware"
	"github.com/aretw0/sot/pkg/ports"
)

func loadScenario(path string) (*config.Scenario, *config.Built, error) {
	sc, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	built, err := sc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build scenario: %w", err)
	}
	return sc, built, nil
}

// openStore creates the snapshot store of the scenario. It returns a nil store
// when snapshots are disabled.
func openStore(cfg config.SinkConfig) (ports.SnapshotStore, func() error, error) {
	store, closer, err := openBackend(cfg)
	if err != nil || store == nil {
		return store, closer, err
	}
	var mws []middleware.Middleware
	if len(cfg.Include) > 0 || len(cfg.Exclude) > 0 {
		mw, err := middleware.NewFilterMiddleware(cfg.Include, cfg.Exclude)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.Precision > 0 {
		mw, err := middleware.NewPrecisionMiddleware(cfg.Precision)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), closer, nil
}

func openBackend(cfg config.SinkConfig) (ports.SnapshotStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Type {
	case "", "none":
		return nil, noop, nil
	case "memory":
		return memory.NewStore(memory.WithLimit(1000)), noop, nil
	case "file":
		return file.New(cfg.Path), noop, nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(".sot", "snapshots.db")
		}
		s, err := sqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		var opts []redis.Option
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		if cfg.TTL != "" {
			ttl, err := time.ParseDuration(cfg.TTL)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid sink ttl: %w", err)
			}
			opts = append(opts, redis.WithTTL(ttl))
		}
		addr := cfg.Address
		if addr == "" {
			addr = "localhost:6379"
		}
		s := redis.New(addr, "", 0, opts...)
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown sink type %q", cfg.Type)
}
