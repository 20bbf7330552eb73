package logging

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

type Config struct {
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	// CategorySeverity overrides MinimumSeverity per event category.
	CategorySeverity map[string]Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
	// Categories limits the sink to these event categories. Empty keeps all.
	Categories []string
}

type ConsoleConfig struct {
	UseColor bool
	// Format selects the console formatter: "text" or "json".
	Format string
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		Console:          ConsoleConfig{Format: "text"},
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	return maps.Clone(c.Fields)
}

// ParseSeverity maps a level name onto a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return SeverityDebug, nil
	case "", "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error", "fatal", "panic":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("logging: unknown severity %q", name)
	}
}

// ParseCategorySeverity turns category=level pairs into severity floors.
func ParseCategorySeverity(levels map[string]string) (map[string]Severity, error) {
	if len(levels) == 0 {
		return nil, nil
	}
	floors := make(map[string]Severity, len(levels))
	for category, level := range levels {
		category = strings.TrimSpace(category)
		if category == "" {
			return nil, fmt.Errorf("logging: empty category in severity override %q", level)
		}
		severity, err := ParseSeverity(level)
		if err != nil {
			return nil, fmt.Errorf("logging: category %s: %w", category, err)
		}
		floors[category] = severity
	}
	return floors, nil
}
