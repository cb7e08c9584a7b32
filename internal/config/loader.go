package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/yangguo/epub2audio/pkg/types"
)

// Load builds the configuration: defaults first, then the YAML file if
// a path is given, then E2A_ environment variable overrides on top
func Load(configPath string) (*types.Config, error) {
	cfg := GetDefault()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment wins over the file
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and patches zero values with
// defaults where a default is safe
func Validate(cfg *types.Config) error {
	switch cfg.Engine.Name {
	case "gtts", "edge":
	case "":
		cfg.Engine.Name = "gtts"
	default:
		return fmt.Errorf("invalid engine: %s (must be 'gtts' or 'edge')", cfg.Engine.Name)
	}

	if cfg.Storage.Adapter != "local" && cfg.Storage.Adapter != "s3" {
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}
	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	if cfg.Filter.MinChapterChars < 0 {
		return fmt.Errorf("min_chapter_chars must not be negative: %d", cfg.Filter.MinChapterChars)
	}
	if cfg.Filter.Start < 0 {
		return fmt.Errorf("start must not be negative: %d", cfg.Filter.Start)
	}
	if cfg.Filter.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %d", cfg.Filter.Limit)
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "mp3"
	}
	if cfg.Render.Jobs <= 0 {
		cfg.Render.Jobs = 1
	}
	if cfg.Render.Retries <= 0 {
		cfg.Render.Retries = 3
	}
	if cfg.Render.RetryWaitSecs <= 0 {
		cfg.Render.RetryWaitSecs = 2
	}
	if cfg.Tags.Artist == "" {
		cfg.Tags.Artist = "Unknown"
	}

	return nil
}

// GetDefault returns the built-in defaults. They match the CLI flag
// defaults, so a bare run and a run with an empty config file behave
// the same.
func GetDefault() *types.Config {
	return &types.Config{
		Output: types.OutputConfig{
			Format: "mp3",
		},
		Storage: types.StorageConfig{
			Adapter: "local",
		},
		Engine: types.EngineConfig{
			Name: "gtts",
			GTTS: types.GTTSConfig{
				Language:          "en",
				TLD:               "com",
				RequestsPerMinute: 50,
			},
			Edge: types.EdgeConfig{
				Voice:  "en-US-BrianNeural",
				Rate:   "+0%",
				Volume: "+0%",
				Pitch:  "+0Hz",
			},
		},
		Filter: types.FilterConfig{
			MinChapterChars: 200,
		},
		Render: types.RenderConfig{
			Jobs:          1,
			Retries:       3,
			RetryWaitSecs: 2,
		},
		Tags: types.TagsConfig{
			Artist: "Unknown",
		},
	}
}
