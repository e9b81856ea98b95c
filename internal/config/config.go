package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	UploadDir        string   `mapstructure:"upload_dir" yaml:"upload_dir"`
	PublicBaseURL    string   `mapstructure:"public_base_url" yaml:"public_base_url"`
	MaxUploadSize    int64    `mapstructure:"max_upload_size" yaml:"max_upload_size"`
	AllowedFileTypes []string `mapstructure:"allowed_file_types" yaml:"allowed_file_types"`

	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ChatMessageLimit int      `mapstructure:"chat_message_limit" yaml:"chat_message_limit"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
	RoomGracePeriod   time.Duration `mapstructure:"room_grace_period" yaml:"room_grace_period"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "syncboard.db",
		UploadDir:         "uploads",
		PublicBaseURL:     "http://localhost:8080",
		MaxUploadSize:     10 << 20,
		AllowedFileTypes: []string{
			"image/png", "image/jpeg", "image/gif", "image/webp",
			"application/pdf", "text/plain",
		},
		AllowedOrigins:    []string{"*"},
		ChatMessageLimit:  50,
		HeartbeatInterval: time.Minute,
		ConnectionTimeout: 5 * time.Minute,
		RoomGracePeriod:   5 * time.Minute,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.UploadDir != "" {
		c.UploadDir = other.UploadDir
	}
	if other.PublicBaseURL != "" {
		c.PublicBaseURL = other.PublicBaseURL
	}
	if other.MaxUploadSize != 0 {
		c.MaxUploadSize = other.MaxUploadSize
	}
	if len(other.AllowedFileTypes) != 0 {
		c.AllowedFileTypes = other.AllowedFileTypes
	}
	if len(other.AllowedOrigins) != 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.ChatMessageLimit != 0 {
		c.ChatMessageLimit = other.ChatMessageLimit
	}
	if other.HeartbeatInterval != 0 {
		c.HeartbeatInterval = other.HeartbeatInterval
	}
	if other.ConnectionTimeout != 0 {
		c.ConnectionTimeout = other.ConnectionTimeout
	}
	if other.RoomGracePeriod != 0 {
		c.RoomGracePeriod = other.RoomGracePeriod
	}
}
