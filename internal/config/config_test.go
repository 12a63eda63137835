package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func strongSecrets() map[string]string {
	return map[string]string{
		"JWT_SECRET":         strings.Repeat("a", 32),
		"JWT_REFRESH_SECRET": strings.Repeat("b", 40),
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpire)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTRefreshExpire)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "http://localhost:3000", cfg.ClientURL)
	assert.False(t, cfg.KafkaEnabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Development_AcceptsDefaultSecrets(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)
}

func TestLoad_Production_RejectsDefaultAccessSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":        "production",
		"JWT_REFRESH_SECRET": strings.Repeat("b", 40),
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be explicitly set")
}

func TestLoad_Staging_RejectsDefaultRefreshSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT": "staging",
		"JWT_SECRET":  strings.Repeat("a", 32),
	})

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_REFRESH_SECRET must be explicitly set")
}

func TestLoad_Production_RejectsShortSecret(t *testing.T) {
	envs := strongSecrets()
	envs["ENVIRONMENT"] = "production"
	envs["JWT_SECRET"] = "too-short"
	setEnvs(t, envs)

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_Production_RejectsSharedSecret(t *testing.T) {
	secret := strings.Repeat("s", 48)
	setEnvs(t, map[string]string{
		"ENVIRONMENT":        "production",
		"JWT_SECRET":         secret,
		"JWT_REFRESH_SECRET": secret,
	})

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoad_Production_AcceptsStrongSecrets(t *testing.T) {
	envs := strongSecrets()
	envs["ENVIRONMENT"] = "production"
	setEnvs(t, envs)

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidPort(t *testing.T) {
	setEnvs(t, map[string]string{"HTTP_PORT": "70000"})

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_PoolBounds(t *testing.T) {
	setEnvs(t, map[string]string{"DB_MIN_CONNS": "20", "DB_MAX_CONNS": "5"})

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds DB_MAX_CONNS")
}

func TestLoad_ListsSplitOnComma(t *testing.T) {
	setEnvs(t, map[string]string{
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestConfig_Postgres(t *testing.T) {
	setEnvs(t, map[string]string{
		"POSTGRES_HOST": "db.internal",
		"POSTGRES_DB":   "blog_test",
		"DB_MAX_CONNS":  "25",
	})

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, "blog_test", pg.DBName)
	assert.Equal(t, int32(25), pg.MaxConns)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQuery())
}
