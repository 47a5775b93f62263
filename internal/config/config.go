package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	FootballDataAPIKey  string        `env:"FOOTBALL_DATA_API_KEY" envDefault:"-"`
	FootballDataBaseURL string        `env:"FOOTBALL_DATA_BASE_URL" envDefault:"https://api.football-data.org/v4"`
	OpenAIAPIKey        string        `env:"OPENAI_API_KEY" envDefault:"-"`
	OpenAIModel         string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AdvisorEnabled      bool          `env:"ADVISOR_ENABLED" envDefault:"true"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout      int           `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	HTTPAddr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	Database            DatabaseConfig
	Redis               RedisConfig
	Gateway             GatewayConfig
	Verify              VerifyConfig
	Telegram            TelegramConfig
}

// DatabaseConfig selects the storage dialect and its connection parameters
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"sqlite"` // postgres or sqlite
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       int    `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"postgres"`
	Password   string `env:"DB_PASSWORD"`
	Name       string `env:"DB_NAME" envDefault:"footcast"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"footcast.db"`
}

// DSN returns the driver name and data source name for database/sql
func (c DatabaseConfig) DSN() (string, string) {
	if c.Driver == "postgres" {
		return "postgres", fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return "sqlite", c.SQLitePath
}

// RedisConfig enables the shared gateway cache when Addr is set
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// GatewayConfig tunes the provider request gateway
type GatewayConfig struct {
	MinInterval time.Duration `env:"GATEWAY_MIN_INTERVAL" envDefault:"7s"`
	MaxRetries  int           `env:"GATEWAY_MAX_RETRIES" envDefault:"2"`
}

// VerifyConfig tunes the reconciliation batch
type VerifyConfig struct {
	Interval    time.Duration `env:"VERIFY_INTERVAL" envDefault:"1h"`
	BatchSize   int           `env:"VERIFY_BATCH_SIZE" envDefault:"100"`
	WindowDays  int           `env:"VERIFY_WINDOW_DAYS" envDefault:"14"`
	LeaguePause time.Duration `env:"VERIFY_LEAGUE_PAUSE" envDefault:"6.5s"`
}

// TelegramConfig enables batch alerts when both fields are set
type TelegramConfig struct {
	BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID int64  `env:"TELEGRAM_ALERT_CHAT_ID"`
}

// Enabled reports whether alerts can be sent
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.AlertChatID != 0
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.FootballDataAPIKey = os.Getenv("FOOTBALL_DATA_API_KEY")
	cfg.FootballDataBaseURL = getEnvWithDefault("FOOTBALL_DATA_BASE_URL", "https://api.football-data.org/v4")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini")
	cfg.AdvisorEnabled = getEnvBoolWithDefault("ADVISOR_ENABLED", true) && cfg.OpenAIAPIKey != ""
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")

	cfg.Database = DatabaseConfig{
		Driver:     getEnvWithDefault("DB_DRIVER", "sqlite"),
		Host:       getEnvWithDefault("DB_HOST", "localhost"),
		Port:       getEnvIntWithDefault("DB_PORT", 5432),
		User:       getEnvWithDefault("DB_USER", "postgres"),
		Password:   os.Getenv("DB_PASSWORD"),
		Name:       getEnvWithDefault("DB_NAME", "footcast"),
		SSLMode:    getEnvWithDefault("DB_SSLMODE", "disable"),
		SQLitePath: getEnvWithDefault("SQLITE_PATH", "footcast.db"),
	}

	cfg.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvIntWithDefault("REDIS_DB", 0),
	}

	cfg.Gateway = GatewayConfig{
		MinInterval: getEnvDurationWithDefault("GATEWAY_MIN_INTERVAL", 7*time.Second),
		MaxRetries:  getEnvIntWithDefault("GATEWAY_MAX_RETRIES", 2),
	}

	cfg.Verify = VerifyConfig{
		Interval:    getEnvDurationWithDefault("VERIFY_INTERVAL", time.Hour),
		BatchSize:   getEnvIntWithDefault("VERIFY_BATCH_SIZE", 100),
		WindowDays:  getEnvIntWithDefault("VERIFY_WINDOW_DAYS", 14),
		LeaguePause: getEnvDurationWithDefault("VERIFY_LEAGUE_PAUSE", 6500*time.Millisecond),
	}

	cfg.Telegram = TelegramConfig{
		BotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		AlertChatID: int64(getEnvIntWithDefault("TELEGRAM_ALERT_CHAT_ID", 0)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Gateway.MinInterval < 0 {
		return fmt.Errorf("GATEWAY_MIN_INTERVAL must not be negative")
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("GATEWAY_MAX_RETRIES must not be negative")
	}
	if c.Verify.BatchSize <= 0 {
		return fmt.Errorf("VERIFY_BATCH_SIZE must be positive")
	}
	if c.Verify.WindowDays <= 0 {
		return fmt.Errorf("VERIFY_WINDOW_DAYS must be positive")
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// bare numbers are seconds
		if secs := getEnvFloatWithDefault(key, -1); secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultValue
}
