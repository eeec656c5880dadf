package storage

import (
	"context"
	"log/slog"
)

// BlobRemover deletes a stored blob by key.
type BlobRemover interface {
	Remove(ctx context.Context, key string) error
}

// Cleaner releases blobs orphaned when a lesson or its payload is destroyed.
// Removal is best-effort: failures are logged and never propagate to the
// delete that triggered them.
type Cleaner struct {
	store  BlobRemover
	logger *slog.Logger
}

// NewCleaner constructs a best-effort blob cleaner.
func NewCleaner(store BlobRemover, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{store: store, logger: logger}
}

// Cleanup removes each key, logging and continuing past failures.
func (c *Cleaner) Cleanup(ctx context.Context, keys []string) {
	if c == nil || c.store == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := c.store.Remove(ctx, key); err != nil {
			c.logger.Warn("orphan blob cleanup failed", "key", key, "error", err)
			continue
		}
		c.logger.Info("orphan blob removed", "key", key)
	}
}
