package adcopy

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves the raw body of a landing page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Extractor pulls language and metadata signals out of a fetched document. The URL is the
// caller-supplied one, never the post-redirect location.
type Extractor interface {
	Extract(html []byte, headers http.Header, originalURL string) Extraction
}

// Resolver arbitrates language signals into one decision.
type Resolver interface {
	Resolve(signals LanguageSignals) Resolution
}

// Recorder observes successful live acquisitions (snapshots, audit rows).
type Recorder interface {
	Record(ctx context.Context, acquisition Acquisition) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Hasher computes digests for cache keys and snapshot paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces acquisition and request IDs.
type IDGenerator interface {
	NewID() (string, error)
}
