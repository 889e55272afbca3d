package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/greenbite/internal/config"
	"github.com/fastygo/greenbite/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/greenbite/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/greenbite/internal/infrastructure/redis"
	"github.com/fastygo/greenbite/internal/services/lifecycle"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/repository/memory"
	"github.com/fastygo/greenbite/repository/postgres"
	redisRepo "github.com/fastygo/greenbite/repository/redis"
)

// stores is the persistence wiring selected by STORE_DRIVER.
type stores struct {
	dir        repository.Directory
	outbox     repository.Outbox
	identities repository.IdentityRepository
	sessions   repository.SessionRepository
	feed       repository.ChangeFeed
	cache      repository.Cache
	pgPing     monitor.PingFunc
	redisPing  monitor.PingFunc
}

func openStores(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (*stores, error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &stores{
			dir:        store,
			outbox:     store,
			identities: memory.NewIdentityStore(),
			sessions:   memory.NewSessionStore(cfg.Session.TTL),
			feed:       memory.NewFeed(),
			cache:      memory.NewCache(),
		}, nil
	}

	if err := pgInfra.RunMigrations(cfg, logger); err != nil {
		return nil, err
	}

	pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	manager.RegisterStop("postgres", pool.Close)

	redisClient, err := redisInfra.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	manager.RegisterCloser("redis", redisClient)

	return &stores{
		dir:        postgres.NewDocumentRepository(pool),
		outbox:     postgres.NewOutboxRepository(pool),
		identities: postgres.NewIdentityRepository(pool),
		sessions:   redisRepo.NewSessionRepository(redisClient, cfg.Session.TTL),
		feed:       redisRepo.NewChangeFeed(redisClient, logger),
		cache:      redisRepo.NewCache(redisClient),
		pgPing:     pgInfra.Ping(pool),
		redisPing:  redisInfra.Ping(redisClient),
	}, nil
}
