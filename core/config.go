package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultAPIBaseURL       = "https://discord.com/api/v10"
	DefaultInteractionsPath = "/interactions"
	DefaultHTTPAddr         = ":8080"
	DefaultMaxBodyBytes     = int64(1 << 20)
	DefaultRequestTimeout   = 30 * time.Second
	DefaultTransportKind    = "rest"
)

type ServerConfig struct {
	Addr            string        `koanf:"addr" mapstructure:"addr"`
	Path            string        `koanf:"path" mapstructure:"path"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
	ReadTimeout     time.Duration `koanf:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type RESTConfig struct {
	// Transport is the adapter kind outbound calls go through: "rest" or
	// "dry_run".
	Transport            string        `koanf:"transport" mapstructure:"transport"`
	BaseURL              string        `koanf:"base_url" mapstructure:"base_url"`
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	UserAgent            string        `koanf:"user_agent" mapstructure:"user_agent"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
	Debug  bool   `koanf:"debug" mapstructure:"debug"`
}

type SyncConfig struct {
	GuildID string `koanf:"guild_id" mapstructure:"guild_id"`
	DryRun  bool   `koanf:"dry_run" mapstructure:"dry_run"`
	Force   bool   `koanf:"force" mapstructure:"force"`
}

type Config struct {
	ServiceName   string         `koanf:"service_name" mapstructure:"service_name"`
	PublicKey     string         `koanf:"public_key" mapstructure:"public_key"`
	BotToken      string         `koanf:"bot_token" mapstructure:"bot_token"`
	AppKey        string         `koanf:"app_key" mapstructure:"app_key"`
	ApplicationID string         `koanf:"application_id" mapstructure:"application_id"`
	DefaultLocale string         `koanf:"default_locale" mapstructure:"default_locale"`
	Server        ServerConfig   `koanf:"server" mapstructure:"server"`
	REST          RESTConfig     `koanf:"rest" mapstructure:"rest"`
	Database      DatabaseConfig `koanf:"database" mapstructure:"database"`
	Sync          SyncConfig     `koanf:"sync" mapstructure:"sync"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "interactions",
		DefaultLocale: DefaultLocale,
		Server: ServerConfig{
			Addr:            DefaultHTTPAddr,
			Path:            DefaultInteractionsPath,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    DefaultRequestTimeout,
			ShutdownTimeout: 10 * time.Second,
		},
		REST: RESTConfig{
			Transport:            DefaultTransportKind,
			BaseURL:              DefaultAPIBaseURL,
			Timeout:              DefaultRequestTimeout,
			MaxResponseBodyBytes: 4 << 20,
			UserAgent:            "DiscordBot (https://github.com/goliatone/go-interactions, v1)",
		},
	}
}

// Validate checks the two required secrets. A sealed bot token is accepted
// here and unsealed later by the secret provider.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if err := ValidatePublicKey(c.PublicKey); err != nil {
		return err
	}
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("core: bot_token is required")
	}
	if id := strings.TrimSpace(c.ApplicationID); id != "" && !isSnowflake(id) {
		return fmt.Errorf("core: application_id is invalid")
	}
	if path := strings.TrimSpace(c.Server.Path); path != "" && !strings.HasPrefix(path, "/") {
		return fmt.Errorf("core: server.path must start with /")
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "sqlite", "sqlite3", "postgres":
	default:
		return fmt.Errorf("core: database.driver %q is invalid", c.Database.Driver)
	}
	return nil
}

// ValidatePublicKey checks a hex encoded Ed25519 public key.
func ValidatePublicKey(publicKey string) error {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return fmt.Errorf("core: public_key is required")
	}
	decoded, err := hex.DecodeString(publicKey)
	if err != nil {
		return fmt.Errorf("core: public_key is invalid hex: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("core: public_key is invalid: expected 32 bytes, got %d", len(decoded))
	}
	return nil
}

// ResolveApplicationID prefers the configured id and otherwise decodes it
// from token.
func (c Config) ResolveApplicationID(token string) (string, error) {
	if id := strings.TrimSpace(c.ApplicationID); id != "" {
		return id, nil
	}
	return ApplicationIDFromToken(token)
}
