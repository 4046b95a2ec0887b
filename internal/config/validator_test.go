package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validBucketConfig() BucketConfig {
	return BucketConfig{
		Enabled:   true,
		Bucket:    "peakwatch",
		Region:    "us-east-1",
		Endpoint:  "localhost:9000",
		AccessKey: "access",
		SecretKey: "secret",
	}
}

func TestValidateBucketConfig(t *testing.T) {
	assert.NoError(t, ValidateBucketConfig(validBucketConfig()))

	for _, tc := range []struct {
		name   string
		mutate func(*BucketConfig)
	}{
		{"missing access key", func(c *BucketConfig) { c.AccessKey = "" }},
		{"missing secret key", func(c *BucketConfig) { c.SecretKey = "" }},
		{"missing bucket", func(c *BucketConfig) { c.Bucket = "" }},
		{"missing region", func(c *BucketConfig) { c.Region = "" }},
		{"missing endpoint", func(c *BucketConfig) { c.Endpoint = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBucketConfig()
			tc.mutate(&cfg)
			assert.Error(t, ValidateBucketConfig(cfg))
		})
	}
}

func TestValidateWatchdogConfig(t *testing.T) {
	assert.NoError(t, ValidateWatchdogConfig(WatchdogConfig{
		Interval:         "10ms",
		HandshakeTimeout: "5s",
		FlushWait:        "2s",
	}))

	assert.Error(t, ValidateWatchdogConfig(WatchdogConfig{Interval: "bogus"}))
	assert.Error(t, ValidateWatchdogConfig(WatchdogConfig{Interval: "0s"}))
	assert.Error(t, ValidateWatchdogConfig(WatchdogConfig{Interval: "-5ms"}))
	assert.Error(t, ValidateWatchdogConfig(WatchdogConfig{Interval: "10ms", HandshakeTimeout: "soon"}))
	assert.Error(t, ValidateWatchdogConfig(WatchdogConfig{Interval: "10ms", FlushWait: "later"}))
}

func TestValidateHistoryConfig(t *testing.T) {
	assert.NoError(t, ValidateHistoryConfig(HistoryConfig{}))
	assert.NoError(t, ValidateHistoryConfig(HistoryConfig{Enabled: true, Path: "/tmp/h.db"}))
	assert.Error(t, ValidateHistoryConfig(HistoryConfig{Enabled: true}))
}
