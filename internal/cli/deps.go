package cli

import (
	"context"
	"fmt"
	"time"

	"fe-quiz-runner/internal/app"
	"fe-quiz-runner/internal/config"
	"fe-quiz-runner/internal/infra/memory"
	pgloader "fe-quiz-runner/internal/infra/postgres"
	infraredis "fe-quiz-runner/internal/infra/redis"
	"fe-quiz-runner/internal/infra/remote"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// newStorage picks Redis when configured so every instance shares leases and
// snapshots; otherwise storage lives in this process.
func newStorage(cfg config.Config, client *redis.Client) app.Storage {
	if client == nil {
		return memory.NewStorage()
	}
	return infraredis.NewStorage(client, cfg.Redis.Prefix, config.TTLDuration(cfg.Redis.TTL, 0))
}

// bankLoader is the loader plus a cleanup for any pool it opened.
type bankLoader struct {
	memory.BankLoader
	close func()
}

// newBankLoader prefers Postgres, then the HTTP endpoint, then the local file.
func newBankLoader(ctx context.Context, cfg config.Config) (bankLoader, error) {
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return bankLoader{}, fmt.Errorf("connect postgres: %w", err)
		}
		return bankLoader{BankLoader: pgloader.NewBankLoader(pool), close: pool.Close}, nil
	case cfg.Bank.URL != "":
		timeout := config.TTLDuration(cfg.Bank.Timeout, 10*time.Second)
		return bankLoader{BankLoader: remote.NewBankLoader(cfg.Bank.URL, timeout), close: func() {}}, nil
	case cfg.Bank.File != "":
		return bankLoader{BankLoader: memory.NewFileBankLoader(cfg.Bank.File), close: func() {}}, nil
	default:
		return bankLoader{}, fmt.Errorf("no question bank source configured (postgres.url, bank.url or bank.file)")
	}
}

func newBankRepository(cfg config.Config, client *redis.Client, loader memory.BankLoader) app.BankRepository {
	ttl := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	if client != nil {
		return infraredis.NewBankRepository(client, loader, ttl)
	}
	return memory.NewBankRepository(loader, ttl)
}

// bankVersion returns the configured version token or the daily one.
func bankVersion(cfg config.Config) func() string {
	return func() string {
		if cfg.Bank.Version != "" {
			return cfg.Bank.Version
		}
		return remote.DefaultVersion(time.Now())
	}
}
