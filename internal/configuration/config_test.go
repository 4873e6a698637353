package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_File_Over_Defaults(t *testing.T) {
	req := require.New(t)

	path := writeConfig(t, `{
		"server": {"app_port": 9000, "allowed_origins": ["http://localhost:4200"]},
		"store": {"driver": "sqlite", "sqlite_path": "/tmp/chat.db"},
		"auth": {"jwt_secret": "0123456789", "token_ttl": "2h"},
		"hub": {"pong_wait": "30s"}
	}`)

	cfg, err := LoadConfig(path)
	req.NoError(err)

	req.Equal(9000, cfg.Server.AppPort)
	req.Equal(8081, cfg.Server.SocketPort)
	req.Equal([]string{"http://localhost:4200"}, cfg.Server.AllowedOrigins)
	req.Equal("sqlite", cfg.Store.Driver)
	req.Equal(2*time.Hour, cfg.Auth.TokenTTL.Std())
	req.Equal(30*time.Second, cfg.Hub.PongWait.Std())
	req.Equal(16, cfg.Hub.WorkerPoolSize)
}

func TestLoadConfig_Environment_Overrides(t *testing.T) {
	req := require.New(t)
	path := writeConfig(t, `{"auth": {"jwt_secret": "0123456789"}}`)

	t.Setenv("COURIER_SERVER_APP_PORT", "7000")
	t.Setenv("COURIER_AUTH_TOKEN_TTL", "15m")
	t.Setenv("COURIER_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	req.NoError(err)
	req.Equal(7000, cfg.Server.AppPort)
	req.Equal(15*time.Minute, cfg.Auth.TokenTTL.Std())
	req.Equal("debug", cfg.Log.Level)
}

func TestLoadConfig_Rejects_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing secret":    `{}`,
		"unknown driver":    `{"auth": {"jwt_secret": "0123456789"}, "store": {"driver": "redis"}}`,
		"mongo without uri": `{"auth": {"jwt_secret": "0123456789"}, "store": {"driver": "mongo"}}`,
		"bad duration":      `{"auth": {"jwt_secret": "0123456789", "token_ttl": "soon"}}`,
		"ping after pong":   `{"auth": {"jwt_secret": "0123456789"}, "hub": {"ping_interval": "1m"}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_Missing_File(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
