package config

import (
	"time"

	"github.com/pkg/errors"
)

// ValidateBucketConfig validates the S3 bucket configuration.
//
// Parameters:
//   - bucketConfig: The configuration to validate.
//
// Returns:
//   - An error if any required field is missing, otherwise nil.
func ValidateBucketConfig(bucketConfig BucketConfig) error {
	if bucketConfig.AccessKey == "" {
		return errors.New("missing AccessKey in configuration")
	}
	if bucketConfig.SecretKey == "" {
		return errors.New("missing SecretKey in configuration")
	}
	if bucketConfig.Bucket == "" {
		return errors.New("missing Bucket in configuration")
	}
	if bucketConfig.Region == "" {
		return errors.New("missing Region in configuration")
	}
	if bucketConfig.Endpoint == "" {
		return errors.New("missing Endpoint in configuration")
	}
	return nil
}

// ValidateWatchdogConfig validates the watchdog protocol configuration.
// Duration fields must parse and the sampling interval must be strictly
// positive.
func ValidateWatchdogConfig(cfg WatchdogConfig) error {
	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return errors.Wrap(err, "invalid sampling interval")
	}
	if interval <= 0 {
		return errors.Errorf("sampling interval must be positive, got %s", interval)
	}

	if cfg.HandshakeTimeout != "" {
		if _, err := time.ParseDuration(cfg.HandshakeTimeout); err != nil {
			return errors.Wrap(err, "invalid handshake timeout")
		}
	}

	if cfg.FlushWait != "" {
		if _, err := time.ParseDuration(cfg.FlushWait); err != nil {
			return errors.Wrap(err, "invalid flush wait")
		}
	}

	return nil
}

// ValidateHistoryConfig validates the run-history configuration.
func ValidateHistoryConfig(cfg HistoryConfig) error {
	if cfg.Enabled && cfg.Path == "" {
		return errors.New("history is enabled but no database path is configured")
	}
	return nil
}
