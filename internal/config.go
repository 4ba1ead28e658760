package internal

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/novaplan/internal/catalog"
	"github.com/tuannm99/novaplan/internal/sql/optimizer"
)

const EnvPrefix = "NOVAPLAN"

type NovaPlanConfig struct {
	AppName  string `mapstructure:"app_name"`
	Database string `mapstructure:"database"`

	Grammar struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"grammar"`

	Catalog struct {
		Driver    string `mapstructure:"driver"`
		Path      string `mapstructure:"path"`
		BlockSize int    `mapstructure:"block_size"`
	} `mapstructure:"catalog"`

	Engine struct {
		ParseCacheSize int `mapstructure:"parse_cache_size"`
	} `mapstructure:"engine"`

	Optimizer struct {
		Enabled         bool `mapstructure:"enabled"`
		optimizer.Rules `mapstructure:",squash"`
	} `mapstructure:"optimizer"`

	Server struct {
		TCPAddr  string `mapstructure:"tcp_addr"`
		HTTPAddr string `mapstructure:"http_addr"`
		Debug    bool   `mapstructure:"debug"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novaplan")
	v.SetDefault("database", "default")
	v.SetDefault("grammar.path", "")
	v.SetDefault("catalog.driver", "memory")
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.block_size", catalog.DefaultBlockSize)
	v.SetDefault("engine.parse_cache_size", 256)
	v.SetDefault("optimizer.enabled", true)
	v.SetDefault("optimizer.selection_pushdown", true)
	v.SetDefault("optimizer.combine_selection", true)
	v.SetDefault("optimizer.join_reorder", true)
	v.SetDefault("optimizer.access_path", true)
	v.SetDefault("optimizer.projection_pushdown", true)
	v.SetDefault("server.tcp_addr", "127.0.0.1:8866")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads a YAML config file. An empty path yields the defaults.
// Every key can be overridden by NOVAPLAN_<KEY> with dots replaced by
// underscores, e.g. NOVAPLAN_SERVER_TCP_ADDR.
func LoadConfig(path string) (*NovaPlanConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg NovaPlanConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.Catalog.Driver {
	case "memory", "yaml", "sqlite":
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}
	if cfg.Catalog.Driver != "memory" && cfg.Catalog.Path == "" {
		return nil, fmt.Errorf("catalog driver %q needs catalog.path", cfg.Catalog.Driver)
	}
	return &cfg, nil
}

// Rules returns the rule toggles with the master switch applied.
func (c *NovaPlanConfig) Rules() optimizer.Rules {
	if !c.Optimizer.Enabled {
		return optimizer.Rules{}
	}
	return c.Optimizer.Rules
}

func (c *NovaPlanConfig) LogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// OpenCatalog builds the statistics catalog named by the catalog keys.
// The returned close func is never nil.
func (c *NovaPlanConfig) OpenCatalog() (catalog.Provider, func() error, error) {
	noop := func() error { return nil }
	switch c.Catalog.Driver {
	case "yaml":
		cat, err := catalog.LoadYAML(c.Catalog.Path, c.Catalog.BlockSize)
		if err != nil {
			return nil, noop, err
		}
		return cat, noop, nil
	case "sqlite":
		cat, err := catalog.OpenSQLite(c.Catalog.Path, c.Catalog.BlockSize)
		if err != nil {
			return nil, noop, err
		}
		return cat, cat.Close, nil
	default:
		return catalog.NewMemoryCatalog(c.Catalog.BlockSize), noop, nil
	}
}
