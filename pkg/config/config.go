package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config collects the runtime knobs of the engine. Values come from defaults,
// an optional noclense.yaml in the working directory, and NOCLENSE_* env vars,
// in increasing order of precedence.
type Config struct {
	ElasticsearchAddresses []string          `mapstructure:"elasticsearch_addresses"`
	LogIndexName           string            `mapstructure:"log_index_name"`
	PagedModeThreshold     int               `mapstructure:"paged_mode_threshold"`
	PageSize               int               `mapstructure:"page_size"`
	DebounceInterval       time.Duration     `mapstructure:"debounce_interval"`
	TimelineMaxEvents      int               `mapstructure:"timeline_max_events"`
	LaneBufferMs           int64             `mapstructure:"lane_buffer_ms"`
	FavoritesPath          string            `mapstructure:"favorites_path"`
	ComponentAliases       map[string]string `mapstructure:"component_aliases"`
}

const configName = "noclense"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("NOCLENSE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is a real failure.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration without touching files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("elasticsearch_addresses", []string{"http://localhost:9200"})
	v.SetDefault("log_index_name", "noclense_log_index")
	v.SetDefault("paged_mode_threshold", 50000)
	v.SetDefault("page_size", 10000)
	v.SetDefault("debounce_interval", 300*time.Millisecond)
	v.SetDefault("timeline_max_events", 2000)
	v.SetDefault("lane_buffer_ms", 2000)
	v.SetDefault("favorites_path", "noclense_favorites.json")
	v.SetDefault("component_aliases", map[string]string{})
}
