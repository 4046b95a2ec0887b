package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.hedera.com/solo-peakwatch/internal/config"
	"golang.hedera.com/solo-peakwatch/internal/core"
	"golang.hedera.com/solo-peakwatch/pkg/fsx"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

type localDirSink struct {
	*handler
	cfg config.LocalDirConfig
}

// NewLocalDir creates a sink that writes run documents into a local
// directory, creating it on first use.
func NewLocalDir(id string, cfg config.LocalDirConfig) (core.Sink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("local dir sink requires a path")
	}

	mode := cfg.Mode
	if mode == 0 {
		mode = 0755
	}
	cfg.Mode = mode

	return &localDirSink{
		handler: &handler{id: id, sinkType: TypeLocalDir},
		cfg:     cfg,
	}, nil
}

func (l *localDirSink) Store(ctx context.Context, run *core.RunResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(l.cfg.Path, l.cfg.Mode); err != nil {
		return "", fmt.Errorf("failed to create sink directory: %w", err)
	}

	data, err := encodeRun(run)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(l.cfg.Path, objectName(run))
	if err := fsx.WriteFileAtomic(dest, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write run document: %w", err)
	}

	logx.As().Info().
		Str("sink", l.Info()).
		Str("run_id", run.RunID).
		Str("dest", dest).
		Msg("Stored run result")

	return dest, nil
}
