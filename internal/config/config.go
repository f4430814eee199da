package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Session  SessionConfig  `mapstructure:"session"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// RedisConfig holds redis connection configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IngestConfig holds batch ingestion configuration
type IngestConfig struct {
	MaxBatchSize int           `mapstructure:"max_batch_size"`
	DedupTTL     time.Duration `mapstructure:"dedup_ttl"`
}

// SessionConfig holds extraction session configuration
type SessionConfig struct {
	ActivePointerTTL time.Duration `mapstructure:"active_pointer_ttl"`
}

// DispatchConfig holds client-side dispatcher configuration
type DispatchConfig struct {
	Port          string        `mapstructure:"port"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	APIKey        string        `mapstructure:"api_key"`
	QueueFile     string        `mapstructure:"queue_file"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	FlushSchedule string        `mapstructure:"flush_schedule"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8090")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("ingest.max_batch_size", 1000)
	viper.SetDefault("ingest.dedup_ttl", "24h")

	viper.SetDefault("session.active_pointer_ttl", "1h")

	viper.SetDefault("dispatch.port", "8091")
	viper.SetDefault("dispatch.queue_file", "data/dispatch_queue.json")
	viper.SetDefault("dispatch.max_attempts", 5)
	viper.SetDefault("dispatch.flush_schedule", "0 * * * * *")
	viper.SetDefault("dispatch.http_timeout", "30s")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Redis
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	// Ingest
	viper.BindEnv("ingest.max_batch_size", "INGEST_MAX_BATCH_SIZE")
	viper.BindEnv("ingest.dedup_ttl", "INGEST_DEDUP_TTL")

	// Session
	viper.BindEnv("session.active_pointer_ttl", "SESSION_ACTIVE_POINTER_TTL")

	// Dispatch
	viper.BindEnv("dispatch.port", "DISPATCH_PORT")
	viper.BindEnv("dispatch.webhook_url", "DISPATCH_WEBHOOK_URL")
	viper.BindEnv("dispatch.api_key", "DISPATCH_API_KEY")
	viper.BindEnv("dispatch.queue_file", "DISPATCH_QUEUE_FILE")
	viper.BindEnv("dispatch.max_attempts", "DISPATCH_MAX_ATTEMPTS")
	viper.BindEnv("dispatch.flush_schedule", "DISPATCH_FLUSH_SCHEDULE")
	viper.BindEnv("dispatch.http_timeout", "DISPATCH_HTTP_TIMEOUT")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}

	if c.Ingest.MaxBatchSize <= 0 {
		return fmt.Errorf("ingest max batch size must be greater than 0")
	}

	if c.Session.ActivePointerTTL <= 0 {
		return fmt.Errorf("session active pointer TTL must be greater than 0")
	}

	return nil
}

// ValidateDispatcher validates the configuration needed by the dispatcher agent
func (c *Config) ValidateDispatcher() error {
	if c.Dispatch.Port == "" {
		return fmt.Errorf("dispatch port is required")
	}

	if c.Dispatch.WebhookURL == "" {
		return fmt.Errorf("dispatch webhook URL is required")
	}

	if c.Dispatch.QueueFile == "" {
		return fmt.Errorf("dispatch queue file is required")
	}

	if c.Dispatch.MaxAttempts <= 0 {
		return fmt.Errorf("dispatch max attempts must be greater than 0")
	}

	return nil
}
