// Package server provides configuration helpers that define runtime defaults,
// validation, and limits for the termchat service.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Config holds every tunable of the chat service. List-valued settings arrive
// as comma-separated variables and are split by LoadConfig; the slice fields
// are what the rest of the code consumes.
type Config struct {
	Host    string `env:"HOST,default=127.0.0.1"`
	Port    int    `env:"PORT,default=6667" validate:"min=0,max=65535"`
	OpsPort int    `env:"OPS_PORT,default=8080" validate:"min=0,max=65535"`

	MaxClients        int `env:"MAX_CLIENTS,default=100" validate:"min=1"`
	MaxMessageLength  int `env:"MAX_MESSAGE_LENGTH,default=500" validate:"min=1"`
	MaxNicknameLength int `env:"MAX_NICKNAME_LENGTH,default=20" validate:"min=2"`
	MaxRoomNameLength int `env:"MAX_ROOM_NAME_LENGTH,default=30" validate:"min=1"`

	MaxMessagesPerMinute int           `env:"MAX_MESSAGES_PER_MINUTE,default=30" validate:"min=1"`
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW,default=60s"`

	DefaultRoomsCSV string `env:"DEFAULT_ROOMS"`
	AutoJoinRoom    string `env:"AUTO_JOIN_ROOM,default=general" validate:"required"`

	AllowedOriginsCSV string `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`

	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=64" validate:"min=1"`

	DefaultRooms   []string `validate:"min=1"`
	AllowedOrigins []string
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	// The default room list carries commas, which the env tag syntax cannot
	// express, so its default lives here.
	if cfg.DefaultRoomsCSV == "" {
		cfg.DefaultRoomsCSV = "general,random,help"
	}
	cfg.DefaultRooms = splitCSV(cfg.DefaultRoomsCSV)
	cfg.AllowedOrigins = splitCSV(cfg.AllowedOriginsCSV)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if !lo.Contains(cfg.DefaultRooms, cfg.AutoJoinRoom) {
		return Config{}, fmt.Errorf("invalid configuration: AUTO_JOIN_ROOM %q is not in DEFAULT_ROOMS %v",
			cfg.AutoJoinRoom, cfg.DefaultRooms)
	}
	return cfg, nil
}

// splitCSV splits a comma-separated variable, dropping empty entries and
// surrounding whitespace.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Addr is the chat listener address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// OpsAddr is the health/metrics/gateway listener address.
func (c Config) OpsAddr() string { return fmt.Sprintf("%s:%d", c.Host, c.OpsPort) }
