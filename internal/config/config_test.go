package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "WALLET_COMMISSION_RATE", "STORAGE_DRIVER", "NOTIFIER"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.True(t, DefaultCommissionRate.Equal(cfg.CommissionRate))
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, NotifierLog, cfg.Notifier)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("WALLET_COMMISSION_RATE", "0.02")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("NOTIFIER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg := Load()

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.True(t, decimal.RequireFromString("0.02").Equal(cfg.CommissionRate))
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.False(t, cfg.RunMigrations)
	assert.Contains(t, cfg.GetDBConnectionString(), "host=db.internal port=6543")
	assert.Contains(t, cfg.GetDBURL(), "@db.internal:6543/")
	require.NoError(t, cfg.Validate())
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("WALLET_COMMISSION_RATE", "one percent")
	t.Setenv("REDIS_DB", "x")

	cfg := Load()

	assert.True(t, DefaultCommissionRate.Equal(cfg.CommissionRate))
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"negative rate", func(c *Config) { c.CommissionRate = decimal.NewFromInt(-1) }, true},
		{"rate of one", func(c *Config) { c.CommissionRate = decimal.NewFromInt(1) }, true},
		{"unknown storage", func(c *Config) { c.Storage = "sqlite" }, true},
		{"unknown notifier", func(c *Config) { c.Notifier = "smtp" }, true},
		{"kafka without brokers", func(c *Config) { c.Notifier = NotifierKafka; c.KafkaBrokers = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				CommissionRate: DefaultCommissionRate,
				Storage:        StoragePostgres,
				Notifier:       NotifierLog,
				KafkaBrokers:   []string{"localhost:9092"},
			}
			tt.mutate(cfg)

			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
