package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	c, err := Load(nil, envMap(map[string]string{"JWT_SECRET": secret}))
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Addr)
	require.Equal(t, StoragePostgres, c.Storage)
	require.Equal(t, 168*time.Hour, c.JWTTTL)
	require.Equal(t, "taskkeeper", c.JWTIssuer)
	require.Equal(t, 12, c.BcryptCost)
	require.Equal(t, 5, c.LoginMaxFails)
	require.Equal(t, "http://localhost:3000", c.CORSOrigin)
	require.Empty(t, c.RedisAddr)
	require.False(t, c.Dev)
}

func TestLoad_EnvThenFlagsOverride(t *testing.T) {
	t.Parallel()

	env := envMap(map[string]string{
		"JWT_SECRET": secret,
		"ADDR":       ":9000",
		"JWT_TTL":    "2h",
		"STORAGE":    "memory",
		"DEV":        "true",
		"REDIS_ADDR": "localhost:6379",
	})
	c, err := Load([]string{"-addr", ":9100", "-login-max-fails", "3"}, env)
	require.NoError(t, err)
	require.Equal(t, ":9100", c.Addr)
	require.Equal(t, 2*time.Hour, c.JWTTTL)
	require.Equal(t, StorageMemory, c.Storage)
	require.True(t, c.Dev)
	require.Equal(t, 3, c.LoginMaxFails)
	require.Equal(t, "localhost:6379", c.RedisAddr)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"JWT_SECRET":      {"JWT_SECRET": "short"},
		"storage":         {"JWT_SECRET": secret, "STORAGE": "mongo"},
		"JWT_TTL":         {"JWT_SECRET": secret, "JWT_TTL": "soon"},
		"BCRYPT_COST":     {"JWT_SECRET": secret, "BCRYPT_COST": "twelve"},
		"LOGIN_MAX_FAILS": {"JWT_SECRET": secret, "LOGIN_MAX_FAILS": "0"},
	}
	for want, env := range cases {
		_, err := Load(nil, envMap(env))
		require.Error(t, err, want)
		require.True(t, strings.Contains(err.Error(), want), "%s: %v", want, err)
	}

	_, err := Load([]string{"-nope"}, envMap(map[string]string{"JWT_SECRET": secret}))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte("TK_CONFIG_TEST_KEY=from-dotenv\n"), 0o600))
	t.Setenv("TK_CONFIG_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("TK_CONFIG_TEST_KEY"))
	require.NoError(t, LoadDotEnv(p))
	require.Equal(t, "from-dotenv", os.Getenv("TK_CONFIG_TEST_KEY"))
}
