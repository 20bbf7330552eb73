package app

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"project-hunter/server/internal/observability"
	"project-hunter/server/logging"
)

// Config is the process configuration, read from PH_* environment variables.
type Config struct {
	Addr     string `env:"PH_ADDR" envDefault:":8080"`
	TickRate int    `env:"PH_TICK_RATE" envDefault:"30"`

	LootDir           string        `env:"PH_LOOT_DIR" envDefault:"data/loot"`
	LootRegistry      string        `env:"PH_LOOT_REGISTRY" envDefault:"sources.yaml"`
	LootWatchInterval time.Duration `env:"PH_LOOT_WATCH_INTERVAL" envDefault:"2s"`
	// InitialLoot lists sources dropped at the world origin on startup.
	InitialLoot []string `env:"PH_INITIAL_LOOT" envSeparator:","`
	// WorldSeed seeds the startup drops. Zero draws a fresh seed per drop.
	WorldSeed uint64 `env:"PH_WORLD_SEED"`

	LogLevel    string   `env:"PH_LOG_LEVEL" envDefault:"info"`
	LogFormat   string   `env:"PH_LOG_FORMAT" envDefault:"text"`
	LogSinks    []string `env:"PH_LOG_SINKS" envDefault:"console,memory" envSeparator:","`
	LogJSONPath string   `env:"PH_LOG_JSON_PATH"`

	// LogJSONCategories limits the json sink to these event categories.
	LogJSONCategories []string `env:"PH_LOG_JSON_CATEGORIES" envSeparator:","`
	// LogCategoryLevels overrides PH_LOG_LEVEL per category, e.g. "loot=debug".
	LogCategoryLevels map[string]string `env:"PH_LOG_CATEGORY_LEVELS" envSeparator:"," envKeyValSeparator:"="`

	Observability observability.Config
}

// LoadConfig parses the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalized()
}

func (c Config) normalized() (Config, error) {
	if c.TickRate <= 0 {
		return c, fmt.Errorf("PH_TICK_RATE must be positive, got %d", c.TickRate)
	}
	if c.LootWatchInterval < 0 {
		c.LootWatchInterval = 0
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" {
		c.LogFormat = "text"
	}
	sinks := c.LogSinks[:0]
	for _, name := range c.LogSinks {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "":
			continue
		case "console", "json", "memory":
			sinks = append(sinks, name)
		default:
			return c, fmt.Errorf("PH_LOG_SINKS: unknown sink %q", name)
		}
	}
	c.LogSinks = sinks
	sources := c.InitialLoot[:0]
	for _, id := range c.InitialLoot {
		if id = strings.TrimSpace(id); id != "" {
			sources = append(sources, id)
		}
	}
	c.InitialLoot = sources
	if _, err := logging.ParseCategorySeverity(c.LogCategoryLevels); err != nil {
		return c, fmt.Errorf("PH_LOG_CATEGORY_LEVELS: %w", err)
	}
	if slices.Contains(c.LogSinks, "json") && c.LogJSONPath == "" {
		return c, fmt.Errorf("PH_LOG_SINKS includes json but PH_LOG_JSON_PATH is empty")
	}
	return c, nil
}

// logLevel maps LogLevel onto logrus, defaulting to info.
func (c Config) logLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// loggingConfig derives the event router configuration.
func (c Config) loggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = append([]string(nil), c.LogSinks...)
	cfg.Console.Format = c.LogFormat
	cfg.JSON.FilePath = c.LogJSONPath
	cfg.JSON.Categories = append([]string(nil), c.LogJSONCategories...)
	if severity, err := logging.ParseSeverity(c.LogLevel); err == nil {
		cfg.MinimumSeverity = severity
	}
	cfg.CategorySeverity, _ = logging.ParseCategorySeverity(c.LogCategoryLevels)
	if c.Observability.ServiceName != "" {
		cfg.Fields = map[string]any{"service": c.Observability.ServiceName}
	}
	return cfg
}
