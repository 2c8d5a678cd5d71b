// Package collyfetcher implements adcopy.Fetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/fetcher"
	"github.com/JakeFAU/copygate/internal/metrics"
)

// Defaults mirror a current desktop Chrome so sites serve their regular markup.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.5"
	DefaultTimeout        = 8 * time.Second
	DefaultMaxBodyBytes   = 5 << 20
)

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxBodyBytes   int
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = DefaultAcceptLanguage
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Fetcher implements adcopy.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

var _ adcopy.Fetcher = (*Fetcher)(nil)

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.DetectCharset(),
		colly.MaxBodySize(cfg.MaxBodyBytes),
		colly.UserAgent(cfg.UserAgent),
	)
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger.Named("fetcher"),
	}
}

// Fetch retrieves rawURL. Non-2xx responses are returned with their body, and bodies that are
// not valid UTF-8 are repaired rather than rejected; only transport failures and the deadline
// are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (adcopy.FetchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var (
		result   adcopy.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(ctx, start, &result, &fetchErr)

	err := f.runCollector(ctx, collector, rawURL, &fetchErr)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveFetch("error", elapsed)
		f.logger.Warn("fetch failed", zap.String("url", rawURL), zap.Duration("elapsed", elapsed), zap.Error(err))
		return adcopy.FetchResponse{}, err
	}
	if !utf8.Valid(result.Body) {
		f.logger.Debug("repairing non-UTF-8 body",
			zap.String("url", rawURL),
			zap.String("content_type", result.Headers.Get("Content-Type")),
		)
		result.Body = bytes.ToValidUTF8(result.Body, []byte("\uFFFD"))
	}

	result.URL = rawURL
	metrics.ObserveFetch("ok", elapsed)
	f.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.String("final_url", result.FinalURL),
		zap.Int("status", result.StatusCode),
		zap.Int("bytes", len(result.Body)),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	start time.Time,
	result *adcopy.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	collector.SetRequestTimeout(f.cfg.Timeout)
	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *adcopy.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", DefaultAccept)
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = adcopy.FetchResponse{
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return classify(url, ctx.Err())
	case err := <-done:
		if err != nil {
			return classify(url, err)
		}
		if *fetchErr != nil {
			return classify(url, *fetchErr)
		}
		return nil
	}
}

func classify(url string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return fetcher.NewError(url, fetcher.ErrCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fetcher.NewError(url, fetcher.ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fetcher.NewError(url, fetcher.ErrTimeout, err)
	default:
		return fetcher.NewError(url, fetcher.ErrNetwork, err)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
