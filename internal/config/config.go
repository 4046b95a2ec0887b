package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
	"golang.hedera.com/solo-peakwatch/pkg/sniff"
)

// Config holds the global configuration for the application.
type Config struct {
	// Log contains logging-related configuration.
	Log *logx.LoggingConfig
	// Watchdog contains the measurement protocol configuration.
	Watchdog *WatchdogConfig
	// Profiling contains the in-process runtime stats capture configuration.
	Profiling *sniff.ProfilingConfig
	// History contains the local run-history store configuration.
	History *HistoryConfig
	// Sinks contains the run-result sink configuration.
	Sinks *SinkConfig
}

// WatchdogConfig holds the configuration for the sampler/orchestrator
// protocol.
type WatchdogConfig struct {
	// Interval is the sampling interval forwarded to the sampler (e.g., "10ms").
	Interval string
	// HandshakeTimeout bounds the wait for the sampler to publish its pid.
	HandshakeTimeout string
	// FlushWait bounds the wait for the sampler to flush its report after signaling.
	FlushWait string
	// ArtifactDir is the directory for handshake/report artifacts. Defaults to the OS temp dir.
	ArtifactDir string
	// SamplerPath overrides the sampler executable; empty means self-exec.
	SamplerPath string
}

// HistoryConfig holds the configuration for the bbolt-backed run history.
type HistoryConfig struct {
	// Enabled turns run-history persistence on.
	Enabled bool
	// Path is the database file location.
	Path string
}

// SinkConfig holds the configuration for run-result sinks.
type SinkConfig struct {
	// LocalDir contains the local directory sink configuration.
	LocalDir *LocalDirConfig
	// S3 contains the S3 bucket sink configuration.
	S3 *BucketConfig
}

// LocalDirConfig holds the configuration for a local directory sink.
type LocalDirConfig struct {
	// Enabled indicates whether the local directory sink is enabled.
	Enabled bool
	// Path is the path to the local directory.
	Path string
	// Mode is the file mode for the directory.
	Mode os.FileMode
}

// BucketConfig holds the configuration for an S3 bucket sink.
type BucketConfig struct {
	// Enabled indicates whether the bucket sink is enabled.
	Enabled bool
	// Bucket is the name of the bucket.
	Bucket string
	// Region is the region of the bucket.
	Region string
	// Prefix is the prefix for objects in the bucket.
	Prefix string
	// Endpoint is the endpoint for the bucket.
	Endpoint string
	// AccessKey names the environment variable holding the access key.
	AccessKey string
	// SecretKey names the environment variable holding the secret key.
	SecretKey string
	// UseSSL enables SSL for the bucket connection.
	UseSSL bool
}

var config = defaultConfig()

func defaultConfig() Config {
	return Config{
		Log: logx.Default(),
		Watchdog: &WatchdogConfig{
			Interval:         "10ms",
			HandshakeTimeout: "5s",
			FlushWait:        "2s",
		},
		Profiling: &sniff.ProfilingConfig{},
		History:   &HistoryConfig{},
		Sinks:     &SinkConfig{},
	}
}

// Initialize loads the configuration from the specified file. An empty path
// resets to defaults, which lets the sampler process run without any config
// file.
//
// Parameters:
//   - path: The path to the configuration file, or "" for defaults.
//
// Returns:
//   - An error if the configuration cannot be loaded.
func Initialize(path string) error {
	config = defaultConfig()
	if path == "" {
		return nil
	}

	viper.Reset()
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("peakwatch")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	initializeNestedStructs()
	overrideWithEnvVars()

	return nil
}

// initializeNestedStructs ensures all nested structs are initialized.
func initializeNestedStructs() {
	defaults := defaultConfig()
	if config.Log == nil {
		config.Log = defaults.Log
	}
	if config.Watchdog == nil {
		config.Watchdog = defaults.Watchdog
	}
	if config.Profiling == nil {
		config.Profiling = defaults.Profiling
	}
	if config.History == nil {
		config.History = defaults.History
	}
	if config.Sinks == nil {
		config.Sinks = defaults.Sinks
	}
	if config.Sinks.LocalDir == nil {
		config.Sinks.LocalDir = &LocalDirConfig{}
	}
	if config.Sinks.S3 == nil {
		config.Sinks.S3 = &BucketConfig{}
	}
}

// overrideWithEnvVars resolves credential fields through environment
// variables so secrets never live in the config file itself.
func overrideWithEnvVars() {
	if config.Sinks.S3.AccessKey != "" {
		config.Sinks.S3.AccessKey = os.Getenv(config.Sinks.S3.AccessKey)
	}
	if config.Sinks.S3.SecretKey != "" {
		config.Sinks.S3.SecretKey = os.Getenv(config.Sinks.S3.SecretKey)
	}
}

// Get returns the loaded configuration.
func Get() Config {
	return config
}
