package engine

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config and cache directory resolution
	DefaultAppName       = "conformance"
	DefaultConfigPath    = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCacheDir      = filepath.Join(DefaultConfigPath, ".cache")
	DefaultCacheDBPath   = filepath.Join(DefaultCacheDir, "operations.db")
	DefaultGlobalConfig  = filepath.Join(DefaultConfigPath, "config.yaml")
	DefaultCacheBackend  = "memory"
	DefaultPoolSize      = 10
	DefaultDomainKeyword = "--" // placeholder replaced with the domain code in variable names
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
