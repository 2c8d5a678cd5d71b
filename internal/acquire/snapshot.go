package acquire

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/copygate/internal/adcopy"
)

// SnapshotRecorder writes raw HTML into a blob store under a content-addressed path, so
// identical bodies share one object.
type SnapshotRecorder struct {
	store  adcopy.BlobStore
	prefix string
}

var _ Snapshotter = (*SnapshotRecorder)(nil)

// NewSnapshotRecorder creates a SnapshotRecorder writing under prefix.
func NewSnapshotRecorder(store adcopy.BlobStore, prefix string) *SnapshotRecorder {
	return &SnapshotRecorder{store: store, prefix: strings.Trim(prefix, "/")}
}

// ObjectPath returns <prefix>/<hash[:2]>/<hash>.html.
func (s *SnapshotRecorder) ObjectPath(contentHash string) string {
	shard := contentHash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return path.Join(s.prefix, shard, contentHash+".html")
}

// Snapshot stores acq's body and returns the blob URI.
func (s *SnapshotRecorder) Snapshot(ctx context.Context, acq adcopy.Acquisition) (string, error) {
	if acq.ContentHash == "" {
		return "", fmt.Errorf("snapshot %s: content hash is required", acq.URL)
	}
	contentType := acq.Response.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	uri, err := s.store.PutObject(ctx, s.ObjectPath(acq.ContentHash), contentType, bytes.NewReader(acq.Response.Body))
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", acq.URL, err)
	}
	return uri, nil
}

// Record implements adcopy.Recorder.
func (s *SnapshotRecorder) Record(ctx context.Context, acq adcopy.Acquisition) error {
	_, err := s.Snapshot(ctx, acq)
	return err
}
