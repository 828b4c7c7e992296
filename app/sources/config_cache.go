package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/course-comb/app/catalog"
)

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceName := strings.TrimSuffix(filepath.Base(file), ".yml")
		if sourceName == "seed" {
			continue
		}

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", sourceName, "type", config.Type, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceName)
	sourceConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = sourceName

	if err := ValidateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("%w: source config with name '%s' not found", ErrUnknownSource, sourceName)
	}
	return sourceConfig, nil
}

// GetConfigs returns the loaded configs sorted by name.
func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		configs = append(configs, v)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Keys absent from the file keep these values.
	sourceConfig := Config{
		Settings: ConfigSettings{Enabled: true},
	}
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&sourceConfig)

	return &sourceConfig, nil
}

func applyDefaults(sourceConfig *Config) {
	if sourceConfig.Kind == "" {
		sourceConfig.Kind = KindAcademic
	}
	if sourceConfig.Settings.MaxItems == 0 {
		sourceConfig.Settings.MaxItems = 100
	}
	if sourceConfig.Settings.Timeout == 0 {
		sourceConfig.Settings.Timeout = 30
	}
	if sourceConfig.Settings.MaxPages == 0 {
		sourceConfig.Settings.MaxPages = 5
	}
	if sourceConfig.Settings.RateLimit > 0 && sourceConfig.Settings.Burst == 0 {
		sourceConfig.Settings.Burst = 1
	}
	if sourceConfig.Type == TypeAPI {
		if sourceConfig.API.MaxRetries == 0 {
			sourceConfig.API.MaxRetries = 3
		}
		if sourceConfig.API.DurationUnit == "" {
			sourceConfig.API.DurationUnit = "minutes"
		}
		if sourceConfig.API.RatingScale == 0 {
			sourceConfig.API.RatingScale = 5
		}
	}
}

var validAPIFields = map[string]bool{
	"title":       true,
	"url":         true,
	"description": true,
	"instructor":  true,
	"duration":    true,
	"level":       true,
	"category":    true,
	"thumbnail":   true,
	"rating":      true,
	"students":    true,
	"tags":        true,
	"lessons":     true,
}

func ValidateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	if sourceConfig.Name == "" {
		return fmt.Errorf("source name is required")
	}

	switch sourceConfig.Type {
	case TypeFeed, TypeScrape, TypeAPI:
		if sourceConfig.URL == "" {
			return fmt.Errorf("source URL is required")
		}
	case TypePlaceholder:
	default:
		return fmt.Errorf("invalid source type: %q", sourceConfig.Type)
	}

	switch sourceConfig.Kind {
	case KindVideo, KindAcademic, KindCommunity:
	default:
		return fmt.Errorf("invalid source kind: %q", sourceConfig.Kind)
	}

	nonNegativeFields := map[string]int{
		"max items": sourceConfig.Settings.MaxItems,
		"max pages": sourceConfig.Settings.MaxPages,
		"timeout":   sourceConfig.Settings.Timeout,
		"burst":     sourceConfig.Settings.Burst,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if sourceConfig.Settings.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}

	if _, err := catalog.ParseLevel(sourceConfig.Defaults.Level); err != nil {
		return fmt.Errorf("invalid default level: %w", err)
	}

	for i, filter := range sourceConfig.Filters {
		if !filterFields[filter.Field] {
			return fmt.Errorf("filter %d: invalid field %q", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter %d: includes or excludes required", i)
		}
	}

	switch sourceConfig.Type {
	case TypeScrape:
		if sourceConfig.Scrape.Item == "" || sourceConfig.Scrape.Title == "" {
			return fmt.Errorf("scrape sources require item and title selectors")
		}
	case TypeAPI:
		if sourceConfig.API.ItemsPath == "" {
			return fmt.Errorf("api sources require items_path")
		}
		for field := range sourceConfig.API.Fields {
			if !validAPIFields[field] {
				return fmt.Errorf("invalid api field mapping: %s", field)
			}
		}
		if sourceConfig.API.Fields["title"] == "" || sourceConfig.API.Fields["url"] == "" {
			return fmt.Errorf("api sources require title and url field paths")
		}
		switch sourceConfig.API.DurationUnit {
		case "seconds", "minutes", "hours":
		default:
			return fmt.Errorf("invalid duration unit: %q", sourceConfig.API.DurationUnit)
		}
		if sourceConfig.API.RatingScale <= 0 {
			return fmt.Errorf("rating scale must be positive")
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}

// DefaultConfigs describes the providers registered when no source
// definitions are present. None of them is implemented yet.
func DefaultConfigs() []*Config {
	defaults := []*Config{
		{Name: "opencourseware", Kind: KindAcademic},
		{Name: "saylor", Kind: KindAcademic},
		{Name: "swayam", Kind: KindAcademic},
		{Name: "telegram", Kind: KindCommunity},
		{Name: "youtube", Kind: KindVideo},
	}
	for _, c := range defaults {
		c.Type = TypePlaceholder
		c.Settings.Enabled = true
		applyDefaults(c)
	}
	return defaults
}
