package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	NotifierLog   = "log"
	NotifierRedis = "redis"
	NotifierKafka = "kafka"
)

// DefaultCommissionRate is charged on top of every transfer unless configured otherwise.
var DefaultCommissionRate = decimal.RequireFromString("0.015")

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort     string
	CommissionRate decimal.Decimal
	Storage        string
	RunMigrations  bool

	Notifier      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	KafkaBrokers  []string
	KafkaTopic    string
}

// Load reads configuration from the environment, after loading a .env file if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found", "error", err)
	}

	return &Config{
		DBHost:     GetEnv("DB_HOST", "localhost"),
		DBPort:     GetEnv("DB_PORT", "5432"),
		DBUser:     GetEnv("DB_USER", "postgres"),
		DBPassword: GetEnv("DB_PASSWORD", "password"),
		DBName:     GetEnv("DB_NAME", "wallet_transfers"),
		DBSSLMode:  GetEnv("DB_SSLMODE", "disable"),

		ServerPort:     GetEnv("SERVER_PORT", "8080"),
		CommissionRate: GetDecimalEnv("WALLET_COMMISSION_RATE", DefaultCommissionRate),
		Storage:        GetEnv("STORAGE_DRIVER", StoragePostgres),
		RunMigrations:  GetBoolEnv("RUN_MIGRATIONS", true),

		Notifier:      GetEnv("NOTIFIER", NotifierLog),
		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),
		KafkaBrokers:  GetListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:    GetEnv("KAFKA_TOPIC", "transaction_completed"),
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.CommissionRate.IsNegative() || c.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate must be in [0, 1), got %s", c.CommissionRate)
	}

	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage)
	}

	switch c.Notifier {
	case NotifierLog, NotifierRedis:
	case NotifierKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka notifier requires at least one broker")
		}
	default:
		return fmt.Errorf("unknown notifier %q", c.Notifier)
	}

	return nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// GetDBURL returns the connection string in URL form, as the migrator expects it.
func (c *Config) GetDBURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetListEnv splits a comma separated variable, dropping empty items.
func GetListEnv(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}

	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
