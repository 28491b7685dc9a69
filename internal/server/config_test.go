package server

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets every config variable for the duration of the test.
// t.Setenv registers the restore; the unset makes defaults apply.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "OPS_PORT", "MAX_CLIENTS", "MAX_MESSAGE_LENGTH",
		"MAX_NICKNAME_LENGTH", "MAX_ROOM_NAME_LENGTH", "MAX_MESSAGES_PER_MINUTE",
		"RATE_LIMIT_WINDOW", "DEFAULT_ROOMS", "AUTO_JOIN_ROOM", "ALLOWED_ORIGINS",
		"LOG_LEVEL", "SHUTDOWN_TIMEOUT", "SEND_BUFFER_SIZE",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 6667, cfg.Port)
	require.Equal(t, 8080, cfg.OpsPort)
	require.Equal(t, 100, cfg.MaxClients)
	require.Equal(t, 500, cfg.MaxMessageLength)
	require.Equal(t, 20, cfg.MaxNicknameLength)
	require.Equal(t, 30, cfg.MaxRoomNameLength)
	require.Equal(t, 30, cfg.MaxMessagesPerMinute)
	require.Equal(t, time.Minute, cfg.RateLimitWindow)
	require.Equal(t, []string{"general", "random", "help"}, cfg.DefaultRooms)
	require.Equal(t, "general", cfg.AutoJoinRoom)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, 64, cfg.SendBufferSize)
	require.Equal(t, "127.0.0.1:6667", cfg.Addr())
	require.Equal(t, "127.0.0.1:8080", cfg.OpsAddr())
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "7000")
	t.Setenv("MAX_MESSAGES_PER_MINUTE", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("DEFAULT_ROOMS", "lobby,dev")
	t.Setenv("AUTO_JOIN_ROOM", "lobby")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:7000", cfg.Addr())
	require.Equal(t, 5, cfg.MaxMessagesPerMinute)
	require.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	require.Equal(t, []string{"lobby", "dev"}, cfg.DefaultRooms)
	require.Equal(t, "lobby", cfg.AutoJoinRoom)
}

func TestLoadConfigSplitsListVariables(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DEFAULT_ROOMS", " general , random ,, help ")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example.com, http://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"general", "random", "help"}, cfg.DefaultRooms)
	require.Equal(t, []string{"http://a.example.com", "http://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfigRejectsOutOfRangeValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "70000")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadConfigRejectsZeroClients(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MAX_CLIENTS", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsAutoJoinOutsideDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("AUTO_JOIN_ROOM", "secret")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTO_JOIN_ROOM")
}
