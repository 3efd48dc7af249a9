package archive

import (
	"context"
	"fmt"

	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/storage"
	"github.com/querydesk/querydesk/internal/storage/local"
	"github.com/querydesk/querydesk/internal/storage/s3"
)

// OpenObjectStore builds the backend named by cfg.Backend.
func OpenObjectStore(ctx context.Context, cfg config.ArchiveConfig) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case config.ArchiveBackendLocal, "":
		return local.New(cfg.Dir)
	case config.ArchiveBackendS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported archive backend %q", cfg.Backend)
	}
}
