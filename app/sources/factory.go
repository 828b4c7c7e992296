package sources

import (
	"fmt"
)

// BuildAdapter creates the adapter variant named by config.Type. Every HTTP
// adapter gets its own Fetcher so rate limits apply per source.
func BuildAdapter(config *Config, opts FetcherOptions) (Adapter, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config for %s: %w", config.Name, err)
	}

	switch config.Type {
	case TypePlaceholder:
		return NewPlaceholderAdapter(config), nil
	}

	fetcher := NewFetcher(opts, config.Settings.RateLimit, config.Settings.Burst)

	switch config.Type {
	case TypeFeed:
		return NewFeedAdapter(config, fetcher), nil
	case TypeScrape:
		return NewScrapeAdapter(config, fetcher), nil
	case TypeAPI:
		return NewAPIAdapter(config, fetcher), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", config.Type)
	}
}

// RegisterConfigs builds an adapter for every config and registers it.
// Configs with settings.enabled false are registered disabled.
func RegisterConfigs(registry *Registry, configs []*Config, opts FetcherOptions) error {
	for _, config := range configs {
		adapter, err := BuildAdapter(config, opts)
		if err != nil {
			return err
		}
		if err := registry.Register(adapter); err != nil {
			return err
		}
		if !config.Settings.Enabled {
			if err := registry.SetEnabled(config.Name, false); err != nil {
				return err
			}
		}
	}
	return nil
}
