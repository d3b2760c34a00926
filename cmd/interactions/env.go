package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "INTERACTIONS"

// env is the process environment. Unset values fall through to the config
// file and then to the built-in defaults.
type env struct {
	PublicKey     string `envconfig:"PUBLIC_KEY"`
	BotToken      string `envconfig:"BOT_TOKEN"`
	AppKey        string `envconfig:"APP_KEY"`
	ApplicationID string `envconfig:"APPLICATION_ID"`
	DefaultLocale string `envconfig:"DEFAULT_LOCALE"`

	HTTPAddr     string        `envconfig:"HTTP_ADDR"`
	HTTPPath     string        `envconfig:"HTTP_PATH"`
	MaxBodyBytes int64         `envconfig:"MAX_BODY_BYTES"`
	APIBaseURL   string        `envconfig:"API_BASE_URL"`
	APITimeout   time.Duration `envconfig:"API_TIMEOUT"`
	APITransport string        `envconfig:"API_TRANSPORT"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite3"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN"`
	DatabaseDebug  bool   `envconfig:"DATABASE_DEBUG"`

	GuildID  string `envconfig:"GUILD_ID"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func loadEnv() (env, error) {
	var e env
	if err := envconfig.Process(envPrefix, &e); err != nil {
		return env{}, fmt.Errorf("interactions: load environment: %w", err)
	}
	return e, nil
}

// runtimeConfig holds the values set in the environment. Zero fields do not
// override lower layers.
func (e env) runtimeConfig() core.Config {
	return core.Config{
		PublicKey:     e.PublicKey,
		BotToken:      e.BotToken,
		AppKey:        e.AppKey,
		ApplicationID: e.ApplicationID,
		DefaultLocale: e.DefaultLocale,
		Server: core.ServerConfig{
			Addr:         e.HTTPAddr,
			Path:         e.HTTPPath,
			MaxBodyBytes: e.MaxBodyBytes,
		},
		REST: core.RESTConfig{
			Transport: e.APITransport,
			BaseURL:   e.APIBaseURL,
			Timeout:   e.APITimeout,
		},
		Database: core.DatabaseConfig{
			Driver: e.DatabaseDriver,
			DSN:    e.DatabaseDSN,
			Debug:  e.DatabaseDebug,
		},
		Sync: core.SyncConfig{GuildID: e.GuildID},
	}
}

// fileLoader reads a JSON config file into the raw map decoded by cfgx.
type fileLoader struct {
	path string
}

func (l fileLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.path)
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("interactions: read config %s: %w", path, err)
	}
	values := map[string]any{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("interactions: parse config %s: %w", path, err)
	}
	return values, nil
}
