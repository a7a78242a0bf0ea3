package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "concert-ticketing", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mock", cfg.Payment.Provider)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Database.EnableTracing)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("PAYMENT_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr())
	assert.Equal(t, 3*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Database.EnableTracing)
}

func TestLoadWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_NAME=from_file\nPAYMENT_CURRENCY=USD\n"), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.Database.DBName)
	assert.Equal(t, "usd", cfg.Payment.Currency)

	_, err = LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "stripe without key",
			env:     map[string]string{"PAYMENT_PROVIDER": "stripe"},
			wantErr: "STRIPE_SECRET_KEY",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"PAYMENT_PROVIDER": "wompi"},
			wantErr: "unknown PAYMENT_PROVIDER",
		},
		{
			name:    "short qr key",
			env:     map[string]string{"QR_SECRET": "abcd"},
			wantErr: "32 bytes",
		},
		{
			name:    "non hex qr key",
			env:     map[string]string{"QR_SECRET": "zz"},
			wantErr: "not hex",
		},
		{
			name:    "production with default secrets",
			env:     map[string]string{"APP_ENVIRONMENT": "production"},
			wantErr: "JWT_SECRET must be changed",
		},
		{
			name: "production with mock gateway",
			env: map[string]string{
				"APP_ENVIRONMENT": "production",
				"JWT_SECRET":      "prod-secret",
				"WEBHOOK_SECRET":  "prod-webhook",
			},
			wantErr: "mock payment provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got %v", err)
		})
	}
}

func TestQRConfig_Key(t *testing.T) {
	key, err := QRConfig{}.Key()
	require.NoError(t, err)
	assert.Nil(t, key)

	key, err = QRConfig{SecretHex: strings.Repeat("ab", 32)}.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
