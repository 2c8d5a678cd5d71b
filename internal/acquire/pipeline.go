// Package acquire turns a landing page URL into page signals: cache lookup, live fetch,
// signal extraction, language resolution, and cache population. It never fails; a page that
// cannot be fetched yields the default English payload with a diagnostic.
package acquire

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/pagecache"
)

// Cache is the page cache contract used by the pipeline.
type Cache interface {
	GetOrCompute(ctx context.Context, rawURL string, compute pagecache.ComputeFunc) (adcopy.PageSignals, error)
}

// Snapshotter stores the raw body of a live acquisition and returns where it went.
type Snapshotter interface {
	Snapshot(ctx context.Context, acq adcopy.Acquisition) (string, error)
}

// Options holds the pipeline collaborators.
type Options struct {
	Cache     Cache
	Fetcher   adcopy.Fetcher
	Extractor adcopy.Extractor
	Resolver  adcopy.Resolver
	Snapshots Snapshotter
	Recorders []adcopy.Recorder
	Hasher    adcopy.Hasher
	IDs       adcopy.IDGenerator
	Clock     adcopy.Clock
	Logger    *zap.Logger
	// RecordTimeout bounds each recorder call.
	RecordTimeout time.Duration
}

// Pipeline wires the acquisition stages together.
type Pipeline struct {
	cache         Cache
	fetcher       adcopy.Fetcher
	extractor     adcopy.Extractor
	resolver      adcopy.Resolver
	snapshots     Snapshotter
	recorders     []adcopy.Recorder
	hasher        adcopy.Hasher
	ids           adcopy.IDGenerator
	clock         adcopy.Clock
	logger        *zap.Logger
	recordTimeout time.Duration
}

// New builds a Pipeline. Cache and Recorders are optional.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recordTimeout := opts.RecordTimeout
	if recordTimeout <= 0 {
		recordTimeout = 5 * time.Second
	}
	return &Pipeline{
		cache:         opts.Cache,
		fetcher:       opts.Fetcher,
		extractor:     opts.Extractor,
		resolver:      opts.Resolver,
		snapshots:     opts.Snapshots,
		recorders:     opts.Recorders,
		hasher:        opts.Hasher,
		ids:           opts.IDs,
		clock:         opts.Clock,
		logger:        logger.Named("acquire"),
		recordTimeout: recordTimeout,
	}
}

// Acquire returns page signals for rawURL. The result is always well formed.
func (p *Pipeline) Acquire(ctx context.Context, rawURL string) adcopy.PageSignals {
	compute := func(ctx context.Context) (adcopy.PageSignals, error) {
		return p.live(ctx, rawURL)
	}

	var (
		page adcopy.PageSignals
		err  error
	)
	if p.cache != nil {
		page, err = p.cache.GetOrCompute(ctx, rawURL, compute)
	} else {
		page, err = compute(ctx)
	}
	if err != nil {
		p.logger.Warn("acquisition failed, returning default", zap.String("url", rawURL), zap.Error(err))
		return adcopy.DefaultPageSignals(err.Error())
	}
	return page
}

func (p *Pipeline) live(ctx context.Context, rawURL string) (adcopy.PageSignals, error) {
	resp, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return adcopy.PageSignals{}, err
	}

	extraction := p.extractor.Extract(resp.Body, resp.Headers, rawURL)
	resolution := p.resolver.Resolve(extraction.Language)
	page := Assemble(extraction, resolution)

	p.logger.Info("page acquired",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.String("language", page.Language),
		zap.String("source", resolution.Source),
	)

	if p.snapshots != nil || len(p.recorders) > 0 {
		p.record(ctx, rawURL, resp, page)
	}
	return page, nil
}

// Assemble builds the caller-facing payload. Open Graph values win over their plain HTML
// counterparts.
func Assemble(extraction adcopy.Extraction, resolution adcopy.Resolution) adcopy.PageSignals {
	meta := extraction.Metadata
	return adcopy.PageSignals{
		Language:        resolution.Language,
		DetectedCode:    adcopy.OptionalString(resolution.Code),
		Title:           adcopy.OptionalString(adcopy.FirstNonEmpty(meta.OGTitle, meta.Title)),
		MetaDescription: adcopy.OptionalString(adcopy.FirstNonEmpty(meta.OGDescription, meta.MetaDescription)),
		SiteName:        adcopy.OptionalString(meta.SiteName),
		H1:              adcopy.OptionalString(meta.H1),
		Signals:         extraction.Language.Raw(),
	}
}

func (p *Pipeline) record(ctx context.Context, rawURL string, resp adcopy.FetchResponse, page adcopy.PageSignals) {
	acq := adcopy.Acquisition{
		URL:           rawURL,
		NormalizedURL: adcopy.NormalizeURL(rawURL),
		Response:      resp,
		Page:          page,
	}
	if p.clock != nil {
		acq.FetchedAt = p.clock.Now()
	} else {
		acq.FetchedAt = time.Now().UTC()
	}
	if p.ids != nil {
		id, err := p.ids.NewID()
		if err != nil {
			p.logger.Warn("acquisition id unavailable", zap.Error(err))
		}
		acq.ID = id
	}
	if p.hasher != nil {
		digest, err := p.hasher.Hash(resp.Body)
		if err != nil {
			p.logger.Warn("content hash unavailable", zap.Error(err))
		}
		acq.ContentHash = digest
	}

	if p.snapshots != nil {
		sctx, cancel := p.recordContext(ctx)
		uri, err := p.snapshots.Snapshot(sctx, acq)
		cancel()
		if err != nil {
			p.logger.Warn("snapshot failed", zap.String("url", rawURL), zap.Error(err))
		}
		acq.BlobURI = uri
	}

	for _, rec := range p.recorders {
		rctx, cancel := p.recordContext(ctx)
		err := rec.Record(rctx, acq)
		cancel()
		if err != nil {
			p.logger.Warn("acquisition recorder failed",
				zap.String("url", rawURL), zap.String("id", acq.ID), zap.Error(err))
		}
	}
}

// recordContext detaches from the request deadline so a slow fetch does not starve the
// recorders, while still bounding each call.
func (p *Pipeline) recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.recordTimeout)
}
