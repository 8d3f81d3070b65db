package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Source is one configured feed: where to fetch it and an optional
// CSS/meta selector to try first when probing the article page for a
// representative image.
type Source struct {
	URL           string `toml:"url"`
	ImageSelector string `toml:"image_selector,omitempty"`
}

// Fetch holds ingestion cadence and concurrency settings.
type Fetch struct {
	IntervalMinutes     int  `toml:"interval_minutes"`
	StartupDelayMinutes int  `toml:"startup_delay_minutes"`
	Workers             int  `toml:"workers"`
	MaxEntries          int  `toml:"max_entries"`
	ValidateImages      bool `toml:"validate_images"`
}

// Config is the top-level TOML configuration.
type Config struct {
	Database string            `toml:"database"`
	Fetch    Fetch             `toml:"fetch"`
	Sources  map[string]Source `toml:"sources"`
}

func (f Fetch) Interval() time.Duration {
	return time.Duration(f.IntervalMinutes) * time.Minute
}

func (f Fetch) StartupDelay() time.Duration {
	return time.Duration(f.StartupDelayMinutes) * time.Minute
}

// DefaultConfig returns the built-in source registry. Adding a source
// is a configuration change, not a code change; this set mirrors the
// production deployment.
func DefaultConfig() *Config {
	return &Config{
		Database: "articles.db",
		Fetch: Fetch{
			IntervalMinutes:     60,
			StartupDelayMinutes: 60,
			Workers:             10,
			MaxEntries:          50,
		},
		Sources: map[string]Source{
			"Hodinkee": {
				URL:           "https://www.hodinkee.com/feed",
				ImageSelector: "img.article-hero",
			},
			"Worn & Wound": {
				URL:           "https://wornandwound.com/feed/",
				ImageSelector: ".post-header img.attachment-post-thumbnail, .post-content img:first-of-type",
			},
			"ABTW": {
				URL:           "https://www.ablogtowatch.com/feed/",
				ImageSelector: ".entry-content img:first-of-type, .featured-image img, meta[property=\"og:image\"]",
			},
			"Fratello": {
				URL:           "https://www.fratellowatches.com/feed/",
				ImageSelector: "meta[property=\"og:image\"]",
			},
			"Monochrome": {
				URL:           "https://monochrome-watches.com/feed/",
				ImageSelector: "meta[property=\"og:image\"]",
			},
			"Watchtime": {
				URL:           "https://www.watchtime.com/feed/",
				ImageSelector: "meta[property=\"og:image\"]",
			},
			"Time+Tide": {
				URL:           "https://timeandtidewatches.com/feed",
				ImageSelector: "meta[property=\"og:image\"]",
			},
			"Windup Watch Shop": {
				URL:           "https://windupwatchshop.com/blogs/chronicle/feed",
				ImageSelector: ".article-featured-image img, .article__image-wrapper img",
			},
		},
	}
}

// LoadConfig reads a TOML config file. Settings missing from the file
// keep their defaults; an empty path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}
