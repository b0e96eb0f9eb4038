package postgres

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/dal/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/viper"
)

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
	db   *sqlx.DB
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// DB returns a database/sql handle backed by the pool.
func (p *Client) DB() *sqlx.DB {
	return p.db
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() error {
	err := p.db.Close()
	p.pool.Close()

	return err
}

// DSNFromEnv builds the connection string from the environment and config.
func DSNFromEnv() string {
	port := viper.GetInt("postgres.port")
	if port == 0 {
		port = 5432
	}
	sslmode := viper.GetString("postgres.sslmode")
	if sslmode == "" {
		sslmode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		os.Getenv("ORDER_PGBOUNCER_HOST"),
		port,
		os.Getenv("ORDER_PG_USER"),
		os.Getenv("ORDER_PG_PASSWORD"),
		os.Getenv("ORDER_PG_DB"),
		sslmode,
	)
}

// MustNewClient creates a new Postgres client.
func MustNewClient() *Client {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewClient(ctx, DSNFromEnv())
	if err != nil {
		panic(err)
	}

	return client
}

// NewClient connects to dsn, waits for the server to answer and applies
// migrations.
func NewClient(ctx context.Context, dsn string) (*Client, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if maxConns := viper.GetInt32("postgres.max_conns"); maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	if err := migrations.Up(db.DB, migrations.Postgres); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, err
	}

	return &Client{
		pool: pool,
		db:   db,
	}, nil
}
