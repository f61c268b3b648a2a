package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3899", cfg.Port)
	assert.Equal(t, StoreArangoDB, cfg.StoreDriver)
	assert.Equal(t, "tenancy", cfg.ArangoDatabase)
	assert.Equal(t, "tenancy-backend", cfg.JWTIssuer)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, "http://localhost:8529", cfg.ArangoEndpoint())
	assert.Equal(t, "membership-events", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokersList())
	assert.False(t, cfg.AllowOwnerRemoval)
	assert.Equal(t, "*", cfg.CORSOriginsList())
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("ARANGO_URL", "http://arango:8529")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ALLOW_OWNER_REMOVAL", "true")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "http://arango:8529", cfg.ArangoEndpoint())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokersList())
	assert.True(t, cfg.AllowOwnerRemoval)
	assert.Equal(t, "http://a.test,http://b.test", cfg.CORSOriginsList())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "cost too high", env: map[string]string{"JWT_SECRET": "x", "BCRYPT_COST": "40"}},
		{name: "unknown store", env: map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "mongo"}},
		{name: "bad ttl", env: map[string]string{"JWT_SECRET": "x", "JWT_TTL": "forever"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
