package rabbitmq

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

// Client represents a RabbitMQ client.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	// amqp.Channel is not safe for concurrent publishing.
	mu sync.Mutex
}

// Channel returns the underlying AMQP channel.
func (r *Client) Channel() *amqp.Channel {
	return r.channel
}

// Close closes the channel and connection for graceful shutdown.
func (r *Client) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

// URLFromEnv builds the broker URL from the environment and config.
func URLFromEnv() string {
	host := viper.GetString("rabbitmq.host")
	if host == "" {
		host = "rabbitmq"
	}
	port := viper.GetInt("rabbitmq.port")
	if port == 0 {
		port = 5672
	}

	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(os.Getenv("RABBITMQ_DEFAULT_USER"), os.Getenv("RABBITMQ_DEFAULT_PASS")),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/",
	}

	return u.String()
}

// MustNewClient creates a new RabbitMQ client.
func MustNewClient() *Client {
	client, err := NewClient(URLFromEnv())
	if err != nil {
		panic(err)
	}

	return client
}

// NewClient dials the broker and opens a channel.
func NewClient(connStr string) (*Client, error) {
	conn, err := amqp.Dial(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			slog.Error("Failed to close RabbitMQ connection", "error", cerr)
		}
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	slog.Info("RabbitMQ connected")

	return &Client{
		conn:    conn,
		channel: channel,
	}, nil
}

type DeclareExchangeConfig struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp.Table
}

// DeclareExchange declares an exchange with the given configuration.
func (r *Client) DeclareExchange(cfg DeclareExchangeConfig) error {
	kind := cfg.Kind
	if kind == "" {
		kind = amqp.ExchangeTopic
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel.ExchangeDeclare(
		cfg.Name,
		kind,
		cfg.Durable,
		cfg.AutoDelete,
		cfg.Internal,
		cfg.NoWait,
		cfg.Args,
	)
}

// Publish sends a persistent message to exchange with routingKey.
func (r *Client) Publish(exchange, routingKey, contentType string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
