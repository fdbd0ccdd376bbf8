package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/config"
)

// NewStore creates the store selected by cfg.Backend: json (default), sqlite, postgres or redis.
func NewStore(ctx context.Context, cfg config.QuotaConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "json", "":
		return NewJSONStore(cfg.Path, logger), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		return NewSQLStore(ctx, "sqlite3", dsn)
	case "postgres":
		if cfg.DSN == "" {
			return nil, &config.MissingSettingError{Setting: config.EnvQuotaDSN}
		}
		return NewSQLStore(ctx, "postgres", cfg.DSN)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, &config.MissingSettingError{Setting: config.EnvRedisAddr}
		}
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown quota backend: %s (supported: json, sqlite, postgres, redis)", cfg.Backend)
	}
}

// NewLimiterFromConfig creates the configured store and wraps it in a Limiter.
func NewLimiterFromConfig(ctx context.Context, cfg config.QuotaConfig, logger *zap.Logger) (*Limiter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewLimiter(store, cfg.DailyLimit, WithLogger(logger)), nil
}
