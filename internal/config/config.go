// Package config loads lumis settings from defaults, an optional config
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Name of the optional config file (without extension) in the working directory.
const fileName = "lumis"

// EnvPrefix prefixes environment overrides, e.g. LUMIS_LLM_MODEL.
const EnvPrefix = "LUMIS"

// Config holds every setting.
type Config struct {
	RepoURL    string `mapstructure:"repo_url"`
	WorkDir    string `mapstructure:"work_dir"`
	MemoryDir  string `mapstructure:"memory_dir"`
	CloneDepth int    `mapstructure:"clone_depth"`
	Workers    int    `mapstructure:"workers"`
	Listen     string `mapstructure:"listen"`
	TopK       int    `mapstructure:"top_k"`

	LLM   LLMConfig   `mapstructure:"llm"`
	Embed EmbedConfig `mapstructure:"embed"`
	Log   LogConfig   `mapstructure:"log"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// EmbedConfig configures the embedding provider.
type EmbedConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// LogConfig configures the default slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment bindings set.
// Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("repo_url", "")
	v.SetDefault("work_dir", "temp_project")
	v.SetDefault("memory_dir", "memory")
	v.SetDefault("clone_depth", 1)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("listen", ":5000")
	v.SetDefault("top_k", 3)

	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "stepfun/step-3.5-flash:free")
	v.SetDefault("llm.temperature", 0.2)

	v.SetDefault("embed.provider", "ollama")
	v.SetDefault("embed.base_url", "http://localhost:11434")
	v.SetDefault("embed.api_key", "")
	v.SetDefault("embed.model", "all-minilm")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by existing deployments.
	_ = v.BindEnv("repo_url", EnvPrefix+"_REPO_URL", "REPO_URL")
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPEN_ROUTER")

	return v
}

// Load reads the config file, if any, and unmarshals v. An explicit file
// must exist; otherwise lumis.yaml in the working directory is optional.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &cfg, nil
}

// Logger builds a slog logger from the log settings.
func (c LogConfig) Logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
}
