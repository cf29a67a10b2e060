// snapshot_publisher.go implements the SnapshotPublisher background job, which periodically
// exports the directory listing as JSON to object storage so a static CDN can serve it.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/storage"
	"github.com/philanthrohub/directory/internal/telemetry"
	"github.com/philanthrohub/directory/pkg/checksum"
)

const snapshotContentType = "application/json"

// OrganizationLister is the read side of the directory the publisher exports.
type OrganizationLister interface {
	List(ctx context.Context) ([]models.Organization, error)
}

// SnapshotPublisher periodically uploads the directory listing to object storage
type SnapshotPublisher struct {
	lister   OrganizationLister
	store    storage.Storage
	key      string
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once

	mu           sync.Mutex
	lastChecksum string
}

// NewSnapshotPublisher creates a new snapshot publishing job
func NewSnapshotPublisher(lister OrganizationLister, store storage.Storage, key string, interval time.Duration) *SnapshotPublisher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &SnapshotPublisher{
		lister:   lister,
		store:    store,
		key:      key,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs the publisher until Stop is called or ctx is cancelled.
func (p *SnapshotPublisher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("snapshot publisher started", "interval", p.interval, "key", p.key)

	p.runPublish(ctx)

	for {
		select {
		case <-ticker.C:
			p.runPublish(ctx)
		case <-p.stopChan:
			slog.Info("snapshot publisher stopped")
			return
		case <-ctx.Done():
			slog.Info("snapshot publisher context cancelled")
			return
		}
	}
}

// Stop stops the publisher. It is safe to call more than once.
func (p *SnapshotPublisher) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

func (p *SnapshotPublisher) runPublish(ctx context.Context) {
	uploaded, err := p.Publish(ctx)
	switch {
	case err != nil:
		telemetry.SnapshotPublishesTotal.WithLabelValues(telemetry.PublishFailed).Inc()
		slog.Error("snapshot publish failed", "key", p.key, "error", err)
	case uploaded:
		telemetry.SnapshotPublishesTotal.WithLabelValues(telemetry.PublishUploaded).Inc()
	default:
		telemetry.SnapshotPublishesTotal.WithLabelValues(telemetry.PublishUnchanged).Inc()
	}
}

// Publish exports the current listing and uploads it when its content differs
// from what was last published. It reports whether an upload happened.
func (p *SnapshotPublisher) Publish(ctx context.Context) (bool, error) {
	orgs, err := p.lister.List(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list organizations: %w", err)
	}

	payload, err := json.MarshalIndent(orgs, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	sum := checksum.Sum(payload)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastChecksum == "" {
		// After a restart, compare against the object already in storage.
		same, err := p.matchesStored(ctx, sum)
		if err != nil {
			return false, err
		}
		if same {
			p.lastChecksum = sum
		}
	}
	if p.lastChecksum == sum {
		slog.Debug("snapshot unchanged, skipping upload", "key", p.key, "checksum", sum)
		return false, nil
	}

	result, err := p.store.Upload(ctx, p.key, bytes.NewReader(payload), snapshotContentType)
	if err != nil {
		return false, fmt.Errorf("failed to upload snapshot: %w", err)
	}
	p.lastChecksum = result.Checksum

	slog.Info("snapshot published",
		"key", result.Path,
		"organizations", len(orgs),
		"bytes", result.Size,
		"checksum", result.Checksum,
	)
	return true, nil
}

func (p *SnapshotPublisher) matchesStored(ctx context.Context, sum string) (bool, error) {
	rc, err := p.store.Download(ctx, p.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read published snapshot: %w", err)
	}
	defer rc.Close()

	same, err := checksum.VerifySHA256(rc, sum)
	if err != nil {
		return false, fmt.Errorf("failed to hash published snapshot: %w", err)
	}
	return same, nil
}
