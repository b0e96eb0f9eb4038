package sqlite

import (
	"context"
	"fmt"
	"net/url"

	"github.com/corray333/backend-labs/idempotent-order/internal/dal/migrations"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/viper"
)

// Client represents a SQLite client.
//
// The pool is limited to one connection: SQLite has a single writer, and
// transactions start with BEGIN IMMEDIATE so concurrent requests queue for
// the connection instead of failing with SQLITE_BUSY.
type Client struct {
	db   *sqlx.DB
	path string
}

// DB returns the underlying database handle.
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Path returns the database file path.
func (c *Client) Path() string {
	return c.path
}

// Close closes the database connection for graceful shutdown.
func (c *Client) Close() error {
	return c.db.Close()
}

// MustNewClient opens the database configured by storage.sqlite.path.
func MustNewClient() *Client {
	path := viper.GetString("storage.sqlite.path")
	if path == "" {
		path = "orders.db"
	}

	client, err := NewClient(context.Background(), path)
	if err != nil {
		panic(err)
	}

	return client
}

// NewClient opens or creates the database at path and applies migrations.
func NewClient(ctx context.Context, path string) (*Client, error) {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_txlock", "immediate")

	db, err := sqlx.Open("sqlite3", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	if err := migrations.Up(db.DB, migrations.SQLite); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{
		db:   db,
		path: path,
	}, nil
}
