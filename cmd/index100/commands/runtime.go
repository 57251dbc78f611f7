package commands

import (
	"context"
	"fmt"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/external/wikipedia"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/external/yahoo"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/index"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/marketdata"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/store"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/config"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/database"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/redis"
)

// runtime holds the wired components every command starts from.
type runtime struct {
	cfg      *config.Config
	logger   *logger.Logger
	db       *database.DB
	store    *store.Store
	cache    *redis.Cache
	redis    *redis.Client
	market   contracts.MarketData
	universe contracts.UniverseProvider
	engine   *index.Engine
}

// newRuntime loads config and connects every component. The schema is
// ensured on startup so a fresh database works without a separate step.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	st := store.New(db.Pool)
	if err := st.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, caching disabled")
		redisClient = redis.Disabled()
	}
	cache := redis.NewCache(redisClient, "index100")

	yahooClient := yahoo.NewClient(cfg, log)
	adapter := marketdata.New(yahooClient, yahooClient, cfg.Index, log)
	universe := wikipedia.NewProvider(log, cache)
	engine := index.New(st, adapter, universe, cfg.Index, log)

	return &runtime{
		cfg:      cfg,
		logger:   log,
		db:       db,
		store:    st,
		cache:    cache,
		redis:    redisClient,
		market:   adapter,
		universe: universe,
		engine:   engine,
	}, nil
}

// close releases database and cache connections.
func (rt *runtime) close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	rt.db.Close()
}
