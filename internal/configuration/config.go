package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. COURIER_SERVER_APP_PORT.
const EnvPrefix = "COURIER"

// Duration is a time.Duration written as "15s" in JSON and in the environment.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.Decode(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type ServerConfig struct {
	AppPort        int      `json:"app_port" envconfig:"app_port" validate:"required,min=1,max=65535"`
	SocketPort     int      `json:"socket_port" envconfig:"socket_port" validate:"required,min=1,max=65535"`
	SocketRoute    string   `json:"socket_route" envconfig:"socket_route" validate:"required"`
	AllowedOrigins []string `json:"allowed_origins" envconfig:"allowed_origins"`
	ReadTimeout    Duration `json:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout   Duration `json:"write_timeout" envconfig:"write_timeout"`
	IdleTimeout    Duration `json:"idle_timeout" envconfig:"idle_timeout"`
	ShutdownGrace  Duration `json:"shutdown_grace" envconfig:"shutdown_grace"`
}

type StoreConfig struct {
	Driver     string `json:"driver" envconfig:"driver" validate:"oneof=memory sqlite mongo"`
	SQLitePath string `json:"sqlite_path" envconfig:"sqlite_path"`
}

type MongoConfig struct {
	Uri                string `json:"uri" envconfig:"uri"`
	Database           string `json:"database" envconfig:"database"`
	MessagesCollection string `json:"messagesCollection" envconfig:"messages_collection"`
	UsersCollection    string `json:"usersCollection" envconfig:"users_collection"`
}

type AuthConfig struct {
	JWTSecret          string   `json:"jwt_secret" envconfig:"jwt_secret" validate:"required,min=8"`
	TokenTTL           Duration `json:"token_ttl" envconfig:"token_ttl"`
	Issuer             string   `json:"issuer" envconfig:"issuer" validate:"required"`
	RequireSocketToken bool     `json:"require_socket_token" envconfig:"require_socket_token"`
}

type HubConfig struct {
	WorkerPoolSize int      `json:"worker_pool_size" envconfig:"worker_pool_size" validate:"min=1"`
	LaneBuffer     int      `json:"lane_buffer" envconfig:"lane_buffer" validate:"min=1"`
	SendBuffer     int      `json:"send_buffer" envconfig:"send_buffer" validate:"min=1"`
	WriteWait      Duration `json:"write_wait" envconfig:"write_wait"`
	PongWait       Duration `json:"pong_wait" envconfig:"pong_wait"`
	PingInterval   Duration `json:"ping_interval" envconfig:"ping_interval"`
	MaxMessageSize int64    `json:"max_message_size" envconfig:"max_message_size" validate:"min=1024"`
}

type LogConfig struct {
	Level       string `json:"level" envconfig:"level" validate:"oneof=debug info warn error"`
	Development bool   `json:"development" envconfig:"development"`
}

type Config struct {
	Server ServerConfig `json:"server" envconfig:"server"`
	Store  StoreConfig  `json:"store" envconfig:"store"`
	Mongo  MongoConfig  `json:"mongo" envconfig:"mongo"`
	Auth   AuthConfig   `json:"auth" envconfig:"auth"`
	Hub    HubConfig    `json:"hub" envconfig:"hub"`
	Log    LogConfig    `json:"log" envconfig:"log"`
}

// Default returns the values used for every key the file leaves out.
func Default() Config {
	return Config{
		Server: ServerConfig{
			AppPort:       8080,
			SocketPort:    8081,
			SocketRoute:   "ws",
			ReadTimeout:   Duration(15 * time.Second),
			WriteTimeout:  Duration(15 * time.Second),
			IdleTimeout:   Duration(60 * time.Second),
			ShutdownGrace: Duration(30 * time.Second),
		},
		Store: StoreConfig{
			Driver:     "memory",
			SQLitePath: "data/courier.db",
		},
		Mongo: MongoConfig{
			Database:           "courier",
			MessagesCollection: "messages",
			UsersCollection:    "users",
		},
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
			Issuer:   "courier",
		},
		Hub: HubConfig{
			WorkerPoolSize: 16,
			LaneBuffer:     256,
			SendBuffer:     256,
			WriteWait:      Duration(10 * time.Second),
			PongWait:       Duration(20 * time.Second),
			PingInterval:   Duration(18 * time.Second),
			MaxMessageSize: 64 * 1024,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads the JSON file at configPath over the defaults, applies
// a .env file when present and then COURIER_* environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(file, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field constraints and the cross-section rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("invalid config: store.sqlite_path is required for the sqlite driver")
		}
	case "mongo":
		if c.Mongo.Uri == "" || c.Mongo.Database == "" {
			return errors.New("invalid config: mongo.uri and mongo.database are required for the mongo driver")
		}
	}

	if c.Hub.PingInterval >= c.Hub.PongWait {
		return errors.New("invalid config: hub.ping_interval must be shorter than hub.pong_wait")
	}
	return nil
}
