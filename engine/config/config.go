package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/trialdata/conformance/engine"

	"github.com/spf13/viper"
)

// Config stores all configuration of the validation engine.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Study        StudyConfig      `mapstructure:"study"`
	Dictionaries DictionaryConfig `mapstructure:"dictionaries"`
	Cache        CacheConfig      `mapstructure:"cache"`
	Scanner      ScannerConfig    `mapstructure:"scanner"`
}

// StudyConfig identifies the study data and the standard it is validated against.
type StudyConfig struct {
	DataDir         string `mapstructure:"dataDir"`
	Standard        string `mapstructure:"standard"`
	StandardVersion string `mapstructure:"standardVersion"`
}

// DictionaryConfig holds paths to controlled-terminology dictionaries.
type DictionaryConfig struct {
	MedDRAPath  string `mapstructure:"meddraPath"`
	WhoDrugPath string `mapstructure:"whodrugPath"`
}

// CacheConfig selects the cache backend used for derived indices and
// whole-study scan results.
type CacheConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "libsql"
	DBPath  string `mapstructure:"dbPath"`
}

// ScannerConfig bounds the concurrency of whole-study scans.
type ScannerConfig struct {
	PoolSize int `mapstructure:"poolSize"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables. Each
// call builds its own viper instance, so reloading with a different path
// never inherits state from a previous call.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Set default values
	v.SetDefault("study.dataDir", ".")
	v.SetDefault("cache.backend", internal.DefaultCacheBackend)
	v.SetDefault("cache.dbPath", internal.DefaultCacheDBPath)
	v.SetDefault("scanner.poolSize", internal.DefaultPoolSize)

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. dictionaries.meddraPath becomes DICTIONARIES_MEDDRAPATH

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	AppConfig = Config{}
	if err := v.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
