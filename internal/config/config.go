package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	ReadBuffer int    `mapstructure:"read_buffer"` // per-connection read chunk size in bytes
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// ProtocolConfig bounds what a single connection may ask the parser to
// buffer. Declared lengths past these ceilings are treated as malformed.
type ProtocolConfig struct {
	MaxBulkLen  int `mapstructure:"max_bulk_len"`
	MaxArrayLen int `mapstructure:"max_array_len"`
	MaxBuffered int `mapstructure:"max_buffered"`
}

// Error reports an invalid setting. It is only ever produced during
// startup, before any listener or parser exists.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("RESPD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the address and limit settings before anything binds or
// parses. Port 0 is allowed so tests can bind an ephemeral port.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 0 || port > 65535 {
		return &Error{Field: "server.port", Reason: fmt.Sprintf("invalid port %q", c.Server.Port)}
	}
	if strings.ContainsAny(c.Server.Host, " /") {
		return &Error{Field: "server.host", Reason: fmt.Sprintf("invalid host %q", c.Server.Host)}
	}
	if c.Server.ReadBuffer <= 0 {
		return &Error{Field: "server.read_buffer", Reason: "must be positive"}
	}
	if c.Protocol.MaxBulkLen < 0 || c.Protocol.MaxArrayLen < 0 || c.Protocol.MaxBuffered < 0 {
		return &Error{Field: "protocol", Reason: "limits must not be negative"}
	}
	return nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "6380")
	viper.SetDefault("server.read_buffer", 4096)

	// Logger
	viper.SetDefault("log.level", "debug")
	viper.SetDefault("log.format", "json")

	// Protocol limits, matching the reference server's proto-max-bulk-len
	viper.SetDefault("protocol.max_bulk_len", 512*1024*1024)
	viper.SetDefault("protocol.max_array_len", 1024*1024)
	viper.SetDefault("protocol.max_buffered", 0)
}
