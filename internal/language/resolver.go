package language

import (
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/metrics"
)

// Signal names reported in Resolution.Source.
const (
	SourceHTMLLang        = "html_lang"
	SourceURLPath         = "url_path"
	SourceSubdomain       = "subdomain"
	SourceOGLocale        = "og_locale"
	SourceContentLanguage = "content_language"
	SourceHreflang        = "hreflang"
	SourceTLD             = "tld"
	SourceDefault         = "default"
)

// DefaultCode is chosen when no signal is present.
const DefaultCode = "en"

// Resolver picks one language out of possibly disagreeing signals.
type Resolver struct {
	tables *Tables
	logger *zap.Logger
}

var _ adcopy.Resolver = (*Resolver)(nil)

// NewResolver creates a Resolver over tables. Nil tables fall back to DefaultTables.
func NewResolver(tables *Tables, logger *zap.Logger) *Resolver {
	if tables == nil {
		tables = DefaultTables()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tables: tables, logger: logger.Named("language")}
}

// Resolve applies the precedence rules. A declared non-English <html lang> always wins.
// Otherwise the first present of URL path, subdomain, og:locale, Content-Language, hreflang
// and TLD decides, with an English <html lang> as the last explicit hint.
func (r *Resolver) Resolve(signals adcopy.LanguageSignals) adcopy.Resolution {
	code, source := pick(signals)
	res := adcopy.Resolution{
		Language: r.DisplayName(code),
		Code:     code,
		Source:   source,
	}
	metrics.ObserveLanguageResolution(source)
	r.logger.Debug("language resolved",
		zap.String("code", res.Code),
		zap.String("language", res.Language),
		zap.String("source", res.Source),
	)
	return res
}

func pick(s adcopy.LanguageSignals) (string, string) {
	if s.HTMLLang != "" && !IsEnglish(s.HTMLLang) {
		return s.HTMLLang, SourceHTMLLang
	}
	candidates := []struct {
		code   string
		source string
	}{
		{s.URLPath(), SourceURLPath},
		{s.SubdomainCode, SourceSubdomain},
		{s.OGLocale, SourceOGLocale},
		{s.ContentLanguage, SourceContentLanguage},
		{s.Hreflang, SourceHreflang},
		{s.TLDCode, SourceTLD},
		{s.HTMLLang, SourceHTMLLang},
	}
	for _, c := range candidates {
		if c.code != "" {
			return c.code, c.source
		}
	}
	return DefaultCode, SourceDefault
}

// IsEnglish reports whether a language tag starts with "en", case-insensitively.
func IsEnglish(code string) bool {
	return strings.HasPrefix(strings.ToLower(code), "en")
}

// DisplayName maps a raw language tag to its display name, falling back to English. Only the
// first entry of a comma-separated list is considered; underscores are treated as hyphens.
func (r *Resolver) DisplayName(code string) string {
	if name, ok := r.tables.Lookup(code); ok {
		return name
	}
	return adcopy.DefaultLanguage
}

// Lookup maps a raw language tag to its display name using t.
func (t *Tables) Lookup(code string) (string, bool) {
	key := CanonicalTag(code)
	if key == "" {
		return "", false
	}
	if name, ok := t.DisplayNames[key]; ok {
		return name, true
	}
	primary, _, _ := strings.Cut(key, "-")
	name, ok := t.DisplayNames[primary]
	return name, ok
}

// CanonicalTag lowercases a tag, keeps the first comma-separated entry, and turns the first
// underscore into a hyphen.
func CanonicalTag(code string) string {
	first, _, _ := strings.Cut(strings.ToLower(code), ",")
	return strings.Replace(strings.TrimSpace(first), "_", "-", 1)
}
