package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/fetcher"
	collyfetcher "github.com/JakeFAU/copygate/internal/fetcher/colly"
	"github.com/JakeFAU/copygate/internal/hash/sha256"
	kvmemory "github.com/JakeFAU/copygate/internal/kv/memory"
	"github.com/JakeFAU/copygate/internal/language"
	"github.com/JakeFAU/copygate/internal/pagecache"
	"github.com/JakeFAU/copygate/internal/signals"
	blobmemory "github.com/JakeFAU/copygate/internal/storage/memory"
)

const frenchPage = `<html lang="en"><head>
<title>Boutique</title>
<meta property="og:title" content="Chaussures de randonnée">
<meta name="description" content="Livraison gratuite sur toutes les chaussures.">
<meta property="og:site_name" content="Montagne">
</head><body><h1>Nouveautés</h1></body></html>`

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	resp  adcopy.FetchResponse
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (adcopy.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return adcopy.FetchResponse{}, f.err
	}
	resp := f.resp
	resp.URL = rawURL
	return resp, nil
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type captureRecorder struct {
	mu   sync.Mutex
	got  []adcopy.Acquisition
	fail bool
}

func (r *captureRecorder) Record(_ context.Context, acq adcopy.Acquisition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, acq)
	if r.fail {
		return errors.New("recorder down")
	}
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "acq-1", nil }

func newPipeline(t *testing.T, f adcopy.Fetcher, opts Options) *Pipeline {
	t.Helper()
	clock := fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	if opts.Cache == nil {
		opts.Cache = pagecache.New(kvmemory.New(clock), sha256.New(), pagecache.Config{}, nil)
	}
	opts.Fetcher = f
	opts.Extractor = signals.New(nil)
	opts.Resolver = language.NewResolver(nil, nil)
	opts.Hasher = sha256.New()
	opts.IDs = fixedIDs{}
	opts.Clock = clock
	return New(opts)
}

func TestAcquireLiveThenCached(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{resp: adcopy.FetchResponse{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Language": {"fr"}},
		Body:       []byte(frenchPage),
	}}
	p := newPipeline(t, f, Options{})
	ctx := context.Background()

	page := p.Acquire(ctx, "https://example.com/")
	assert.False(t, page.FromCache)
	assert.Equal(t, "French", page.Language)
	require.NotNil(t, page.DetectedCode)
	assert.Equal(t, "fr", *page.DetectedCode)
	require.NotNil(t, page.Title)
	assert.Equal(t, "Chaussures de randonnée", *page.Title)
	require.NotNil(t, page.MetaDescription)
	assert.Equal(t, "Livraison gratuite sur toutes les chaussures.", *page.MetaDescription)
	assert.Equal(t, "Montagne", *page.SiteName)
	assert.Equal(t, "Nouveautés", *page.H1)
	assert.Equal(t, "fr", *page.Signals["headerLang"])
	assert.Nil(t, page.Signals["ogLocale"])
	assert.Empty(t, page.Error)

	cached := p.Acquire(ctx, "HTTPS://EXAMPLE.COM")
	assert.True(t, cached.FromCache)
	assert.Equal(t, "French", cached.Language)
	assert.Equal(t, 1, f.Calls(), "a cache hit must not fetch")
}

func TestAcquireFetchFailureReturnsDefaultAndIsNotCached(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{err: fetcher.NewError("https://slow.example", fetcher.ErrTimeout, context.DeadlineExceeded)}
	p := newPipeline(t, f, Options{})
	ctx := context.Background()

	page := p.Acquire(ctx, "https://slow.example")
	assert.Equal(t, "English", page.Language)
	assert.Nil(t, page.DetectedCode)
	assert.Nil(t, page.Title)
	assert.Nil(t, page.MetaDescription)
	assert.Nil(t, page.SiteName)
	assert.Nil(t, page.H1)
	assert.False(t, page.FromCache)
	assert.Contains(t, page.Error, "fetch timed out")

	_ = p.Acquire(ctx, "https://slow.example")
	assert.Equal(t, 2, f.Calls(), "failures must not be cached")
}

func TestAcquireNonHTMLBodyKeepsURLSignals(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0xff, 0xd8})
	}))
	t.Cleanup(srv.Close)

	f := collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second}, nil)
	page := newPipeline(t, f, Options{}).Acquire(context.Background(), srv.URL+"/de/logo.png")

	assert.Empty(t, page.Error)
	assert.Equal(t, "German", page.Language)
	require.NotNil(t, page.DetectedCode)
	assert.Equal(t, "de", *page.DetectedCode)
	assert.Nil(t, page.Title)
	assert.Nil(t, page.H1)
}

func TestAcquireEmptyPageDefaultsToEnglish(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{resp: adcopy.FetchResponse{StatusCode: http.StatusOK, Body: []byte("not html at all")}}
	page := newPipeline(t, f, Options{}).Acquire(context.Background(), "https://example.com")

	assert.Equal(t, "English", page.Language)
	require.NotNil(t, page.DetectedCode)
	assert.Equal(t, "en", *page.DetectedCode)
	assert.Nil(t, page.Title)
	assert.Empty(t, page.Error)
}

func TestAcquireRecordsSnapshotAndAudit(t *testing.T) {
	t.Parallel()

	body := []byte(frenchPage)
	f := &stubFetcher{resp: adcopy.FetchResponse{
		StatusCode: http.StatusOK,
		FinalURL:   "https://example.fr/accueil",
		Headers:    http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       body,
	}}
	blobs := blobmemory.NewBlobStore()
	snapshots := NewSnapshotRecorder(blobs, "pages/")
	audit := &captureRecorder{}
	p := newPipeline(t, f, Options{Snapshots: snapshots, Recorders: []adcopy.Recorder{audit}})

	page := p.Acquire(context.Background(), "https://example.fr/")
	assert.Equal(t, "Chaussures de randonnée", *page.Title)

	digest := sha256.New().HashString(frenchPage)
	stored, contentType, ok := blobs.Object("pages/" + digest[:2] + "/" + digest + ".html")
	require.True(t, ok)
	assert.Equal(t, body, stored)
	assert.Equal(t, "text/html; charset=utf-8", contentType)

	require.Len(t, audit.got, 1)
	acq := audit.got[0]
	assert.Equal(t, "acq-1", acq.ID)
	assert.Equal(t, "https://example.fr/", acq.URL)
	assert.Equal(t, "https://example.fr", acq.NormalizedURL)
	assert.Equal(t, digest, acq.ContentHash)
	assert.Equal(t, "memory://pages/"+digest[:2]+"/"+digest+".html", acq.BlobURI)
	assert.Equal(t, "https://example.fr/accueil", acq.Response.FinalURL)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), acq.FetchedAt)

	_ = p.Acquire(context.Background(), "https://example.fr")
	assert.Len(t, audit.got, 1, "cache hits are not recorded")
}

func TestRecorderFailureIsIgnored(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{resp: adcopy.FetchResponse{StatusCode: http.StatusOK, Body: []byte(frenchPage)}}
	audit := &captureRecorder{fail: true}
	p := newPipeline(t, f, Options{Recorders: []adcopy.Recorder{audit}})

	page := p.Acquire(context.Background(), "https://example.com")
	assert.Equal(t, "French", page.Language)
	assert.Empty(t, page.Error)
	require.Len(t, audit.got, 1)
	assert.Empty(t, audit.got[0].BlobURI)
}

func TestAcquireWithoutCache(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{resp: adcopy.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`<html lang="pl">`)}}
	p := New(Options{
		Fetcher:   f,
		Extractor: signals.New(nil),
		Resolver:  language.NewResolver(nil, nil),
	})

	for range 2 {
		page := p.Acquire(context.Background(), "https://example.pl")
		assert.Equal(t, "Polish", page.Language)
	}
	assert.Equal(t, 2, f.Calls())
}

func TestSnapshotRecorderPaths(t *testing.T) {
	t.Parallel()

	s := NewSnapshotRecorder(blobmemory.NewBlobStore(), "/snapshots/html/")
	assert.Equal(t, "snapshots/html/ab/abcdef.html", s.ObjectPath("abcdef"))
	assert.Equal(t, "a/a.html", NewSnapshotRecorder(nil, "").ObjectPath("a"))

	_, err := s.Snapshot(context.Background(), adcopy.Acquisition{URL: "https://example.com"})
	assert.ErrorContains(t, err, "content hash is required")

	err = s.Record(context.Background(), adcopy.Acquisition{URL: "u", ContentHash: "ff00", Response: adcopy.FetchResponse{Body: []byte("x")}})
	assert.NoError(t, err)
}
