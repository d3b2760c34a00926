package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticConfigLoader serves a fixed raw map, mostly for tests and for values
// already parsed from the environment.
type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load decodes the raw map over defaults. Validation runs once all layers are
// merged, since runtime options may still supply required secrets.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw, cfgx.WithDefaults(defaults))
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			ConfigToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			ConfigToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			ConfigToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig runs provider then resolver over DefaultConfig.
func ResolveConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

// ConfigToLayerMap flattens cfg into an options layer. Zero values are
// skipped unless includeZero is set so higher layers only override what they
// actually carry.
func ConfigToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString := func(target map[string]any, key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}
	setBool := func(target map[string]any, key string, value bool) {
		if includeZero || value {
			target[key] = value
		}
	}
	setInt := func(target map[string]any, key string, value int64) {
		if includeZero || value != 0 {
			target[key] = value
		}
	}
	nested := func(key string, fill func(map[string]any)) {
		section := map[string]any{}
		fill(section)
		if len(section) > 0 {
			layer[key] = section
		}
	}

	setString(layer, "service_name", cfg.ServiceName)
	setString(layer, "public_key", cfg.PublicKey)
	setString(layer, "bot_token", cfg.BotToken)
	setString(layer, "app_key", cfg.AppKey)
	setString(layer, "application_id", cfg.ApplicationID)
	setString(layer, "default_locale", cfg.DefaultLocale)

	nested("server", func(section map[string]any) {
		setString(section, "addr", cfg.Server.Addr)
		setString(section, "path", cfg.Server.Path)
		setInt(section, "max_body_bytes", cfg.Server.MaxBodyBytes)
		if includeZero || cfg.Server.ReadTimeout != 0 {
			section["read_timeout"] = cfg.Server.ReadTimeout
		}
		if includeZero || cfg.Server.WriteTimeout != 0 {
			section["write_timeout"] = cfg.Server.WriteTimeout
		}
		if includeZero || cfg.Server.ShutdownTimeout != 0 {
			section["shutdown_timeout"] = cfg.Server.ShutdownTimeout
		}
	})
	nested("rest", func(section map[string]any) {
		setString(section, "transport", cfg.REST.Transport)
		setString(section, "base_url", cfg.REST.BaseURL)
		if includeZero || cfg.REST.Timeout != 0 {
			section["timeout"] = cfg.REST.Timeout
		}
		setInt(section, "max_response_body_bytes", cfg.REST.MaxResponseBodyBytes)
		setString(section, "user_agent", cfg.REST.UserAgent)
	})
	nested("database", func(section map[string]any) {
		setString(section, "driver", cfg.Database.Driver)
		setString(section, "dsn", cfg.Database.DSN)
		setBool(section, "debug", cfg.Database.Debug)
	})
	nested("sync", func(section map[string]any) {
		setString(section, "guild_id", cfg.Sync.GuildID)
		setBool(section, "dry_run", cfg.Sync.DryRun)
		setBool(section, "force", cfg.Sync.Force)
	})
	return layer
}
