package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SetDefaults registers the default value of every config key.
func SetDefaults() {
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.read_header_timeout", 5*time.Second)
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{
		"Content-Type", "Idempotency-Key", "Request-ID", "X-Debug-Fail-After-Commit",
	})
	viper.SetDefault("server.http.cors.exposed_headers", []string{"Request-ID", "Idempotent-Replayed"})
	viper.SetDefault("server.http.cors.allow_credentials", false)
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.sqlite.path", "orders.db")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.sslmode", "disable")

	viper.SetDefault("orders.max_create_attempts", 3)
	viper.SetDefault("debug.fail_after_commit_enabled", false)

	viper.SetDefault("outbox.enabled", false)
	viper.SetDefault("outbox.poll_interval", 10*time.Second)
	viper.SetDefault("outbox.retry_interval", 30*time.Second)
	viper.SetDefault("outbox.batch_size", 100)
	viper.SetDefault("outbox.max_retries", 5)
	viper.SetDefault("outbox.exchange", "orders")
	viper.SetDefault("outbox.routing_key", "order.created")

	viper.SetDefault("rabbitmq.host", "rabbitmq")
	viper.SetDefault("rabbitmq.port", 5672)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.jaeger_endpoint", "http://jaeger:14268/api/traces")
	viper.SetDefault("otel.service_name", "order-svc")

	viper.SetDefault("log.level", "info")
}

// MustInit loads envFile and the config file, then installs the logger.
// A missing .env or config file is not an error; defaults apply.
func MustInit(configFile, envFile string) {
	if err := Init(configFile, envFile); err != nil {
		panic(err)
	}
}

// Init is MustInit returning the error.
func Init(configFile, envFile string) error {
	SetDefaults()

	envMissing := false
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error while loading %s file: %w", envFile, err)
		}
		envMissing = true
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/order-svc")
		viper.AddConfigPath(".")
	}

	configMissing := false
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error while reading config file: %w", err)
		}
		configMissing = true
	}

	SetupLogger()

	if envMissing {
		slog.Warn("No env file found, using process environment", "path", envFile)
	}
	if configMissing {
		slog.Warn("No config file found, using defaults")
	} else {
		slog.Info("Config loaded", "path", viper.ConfigFileUsed())
	}

	return nil
}

func SetupLogger() {
	handler := logger.NewHandler(&slog.HandlerOptions{
		Level: ParseLevel(viper.GetString("log.level")),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}

	return level
}
