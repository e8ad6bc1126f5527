package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/config"
)

const (
	pingTimeout = 5 * time.Second
	appName     = "worldcore"
)

// DB holds the pgx pool shared by the repositories.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// poolConfig applies the [database] settings on top of the DSN.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	pc.MinConns = int32(min(cfg.MinConns, int(pc.MaxConns)))
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = appName
	}
	return pc, nil
}

// NewDB opens the pool and checks that the server answers.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", pc.ConnConfig.Host, err)
	}

	log.Info("database connected",
		zap.String("host", pc.ConnConfig.Host),
		zap.String("database", pc.ConnConfig.Database),
		zap.Int32("max_conns", pc.MaxConns))
	return &DB{Pool: pool, log: log}, nil
}

// Close releases the pool. The error return lets main combine it with
// the other shutdown errors.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}
