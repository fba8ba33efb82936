package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/config"
)

// New builds the backend selected by cfg. It returns nil for the "none"
// backend.
func New(ctx context.Context, cfg config.PublishConfig) (Backend, error) {
	switch cfg.Backend {
	case config.PublishNone, "":
		return nil, nil
	case config.PublishLocal:
		s, err := NewLocalStorage(cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.PublishS3:
		s, err := NewS3Storage(ctx, S3Options{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Prefix:   cfg.S3.Prefix,
			Endpoint: cfg.S3.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("publish: unknown backend %q", cfg.Backend)
	}
}

// Key returns the artifact path of a script: <maintenance>/<run>/<filename>.
func Key(maintenanceID, runID, filename string) string {
	return path.Join(maintenanceID, runID, filename)
}

// Files uploads local files under prefix and returns the artifact paths in
// the order given. It stops at the first failure.
func Files(ctx context.Context, backend Backend, prefix string, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return keys, fmt.Errorf("publish: read %s: %w", file, err)
		}
		key := path.Join(prefix, filepath.Base(file))
		if err := backend.Write(ctx, key, data); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
