package adcopy

import (
	"net/http"
	"time"
)

// DefaultLanguage is returned whenever no signal resolves to a known language.
const DefaultLanguage = "English"

// PageSignals is the metadata returned for one landing page. The JSON names match the
// payload the browser client already consumes.
type PageSignals struct {
	Language        string             `json:"language"`
	DetectedCode    *string            `json:"detectedLangCode"`
	Title           *string            `json:"title"`
	MetaDescription *string            `json:"metaDescription"`
	SiteName        *string            `json:"siteName"`
	H1              *string            `json:"h1"`
	Signals         map[string]*string `json:"signals,omitempty"`
	FromCache       bool               `json:"cached"`
	Error           string             `json:"error,omitempty"`
}

// DefaultPageSignals is the well-formed payload produced when acquisition fails outright.
func DefaultPageSignals(diagnostic string) PageSignals {
	return PageSignals{
		Language: DefaultLanguage,
		Error:    diagnostic,
	}
}

// LanguageSignals holds every language hint pulled from a page, its headers, and the
// caller-supplied URL. Empty strings mean the hint was absent.
type LanguageSignals struct {
	HTMLLang        string
	OGLocale        string
	ContentLanguage string
	Hreflang        string
	URLPathCode     string
	URLPathCode3    string
	URLPathMapped3  string
	SubdomainCode   string
	TLD             string
	TLDCode         string
}

// URLPath returns the path-derived language code, preferring the two-letter form.
func (s LanguageSignals) URLPath() string {
	if s.URLPathCode != "" {
		return s.URLPathCode
	}
	return s.URLPathMapped3
}

// Raw renders the signals for observability. Every signal considered is kept, absent ones as nil.
func (s LanguageSignals) Raw() map[string]*string {
	return map[string]*string{
		"htmlLang":      OptionalString(s.HTMLLang),
		"ogLocale":      OptionalString(s.OGLocale),
		"headerLang":    OptionalString(s.ContentLanguage),
		"hreflang":      OptionalString(s.Hreflang),
		"urlLang":       OptionalString(s.URLPath()),
		"urlLang3":      OptionalString(s.URLPathCode3),
		"subdomainLang": OptionalString(s.SubdomainCode),
		"tldLang":       OptionalString(s.TLDCode),
		"tld":           OptionalString(s.TLD),
	}
}

// PageMetadata is the descriptive (non-language) content pulled from a page.
type PageMetadata struct {
	Title           string
	OGTitle         string
	MetaDescription string
	OGDescription   string
	SiteName        string
	H1              string
}

// Extraction is everything the signal extractor found in one document.
type Extraction struct {
	Language LanguageSignals
	Metadata PageMetadata
}

// Resolution is the outcome of language arbitration.
type Resolution struct {
	Language string
	Code     string
	Source   string
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Acquisition describes one live fetch that produced page signals. It is handed to
// recorders; cache hits never produce one.
type Acquisition struct {
	ID            string
	URL           string
	NormalizedURL string
	Response      FetchResponse
	ContentHash   string
	BlobURI       string
	Page          PageSignals
	FetchedAt     time.Time
}

// OptionalString converts an empty string into nil.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FirstNonEmpty returns the first non-empty value.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
