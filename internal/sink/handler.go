// Package sink persists run results. Sinks are fan-out targets for the
// measurement output: a failure to store never invalidates the measurement
// itself.
package sink

import (
	"encoding/json"
	"fmt"

	"golang.hedera.com/solo-peakwatch/internal/core"
)

const (
	TypeLocalDir = "LocalDir"
	TypeS3       = "S3"
)

// handler carries the identity shared by all sink implementations.
type handler struct {
	id       string
	sinkType string
}

func (h *handler) Info() string {
	return h.id
}

func (h *handler) Type() string {
	return h.sinkType
}

// encodeRun renders a run result as the JSON document every sink stores.
func encodeRun(run *core.RunResult) ([]byte, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run result: %w", err)
	}

	return append(data, '\n'), nil
}

// objectName is the canonical name of a stored run document.
func objectName(run *core.RunResult) string {
	return fmt.Sprintf("run-%s.json", run.RunID)
}
