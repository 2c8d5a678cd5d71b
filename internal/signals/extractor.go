package signals

import (
	"net/http"
	"strings"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/language"
)

// Extractor applies the rule set. It holds only compiled patterns and lookup tables, so one
// instance serves all requests.
type Extractor struct {
	tables *language.Tables
	rules  map[string]Rule
}

var _ adcopy.Extractor = (*Extractor)(nil)

// New compiles the rule set against tables. Nil tables use language.DefaultTables.
func New(tables *language.Tables) *Extractor {
	if tables == nil {
		tables = language.DefaultTables()
	}
	rules := []Rule{
		newRule(RuleHTMLLang, `(?i)<html[^>]+lang=["']([^"']+)["']`),
		MetaRule(RuleOGLocale, "property", "og:locale", 1),
		newRule(RuleHreflang, `(?i)hreflang=["']([^"']+)["']`),
		PathCodeRule(RuleURLPath, tables.PathCodes),
		PathCode3Rule(RuleURLPath3, tables.ISO3Codes()),
		SubdomainRule(RuleSubdomain, tables.SubdomainCodes),
		TLDRule(RuleTLD),
		ElementTextRule(RuleTitle, "title", 3),
		MetaRule(RuleOGTitle, "property", "og:title", 1),
		MetaRule(RuleMetaDescription, "name", "description", 10),
		MetaRule(RuleOGDescription, "property", "og:description", 1),
		MetaRule(RuleOGSiteName, "property", "og:site_name", 1),
		ElementTextRule(RuleH1, "h1", 3),
	}
	e := &Extractor{tables: tables, rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		e.rules[r.Name] = r
	}
	return e
}

// Rule returns the named rule.
func (e *Extractor) Rule(name string) (Rule, bool) {
	r, ok := e.rules[name]
	return r, ok
}

// Extract runs every rule. URL-derived signals come from originalURL only, never from a
// redirect target.
func (e *Extractor) Extract(body []byte, headers http.Header, originalURL string) adcopy.Extraction {
	html := string(body)
	find := func(name, s string) string {
		return e.rules[name].Find(s)
	}

	lang := adcopy.LanguageSignals{
		HTMLLang:        find(RuleHTMLLang, html),
		OGLocale:        find(RuleOGLocale, html),
		ContentLanguage: strings.TrimSpace(headers.Get("Content-Language")),
		Hreflang:        SelectHreflang(e.rules[RuleHreflang].FindAll(html)),
		URLPathCode:     strings.ToLower(find(RuleURLPath, originalURL)),
		URLPathCode3:    strings.ToLower(find(RuleURLPath3, originalURL)),
		SubdomainCode:   strings.ToLower(find(RuleSubdomain, originalURL)),
		TLD:             strings.ToLower(find(RuleTLD, originalURL)),
	}
	if lang.URLPathCode3 != "" {
		// Unmapped three-letter codes are dropped.
		lang.URLPathMapped3 = e.tables.ISO3[lang.URLPathCode3]
	}
	if lang.TLD != "" {
		lang.TLDCode = e.tables.TLDCodes[lang.TLD]
	}

	meta := adcopy.PageMetadata{
		Title:           strings.TrimSpace(find(RuleTitle, html)),
		OGTitle:         find(RuleOGTitle, html),
		MetaDescription: find(RuleMetaDescription, html),
		OGDescription:   find(RuleOGDescription, html),
		SiteName:        find(RuleOGSiteName, html),
		H1:              strings.TrimSpace(find(RuleH1, html)),
	}

	return adcopy.Extraction{Language: lang, Metadata: meta}
}

// SelectHreflang picks the first alternate that is neither English nor x-default, falling back
// to the first one listed.
func SelectHreflang(tags []string) string {
	for _, tag := range tags {
		if !language.IsEnglish(tag) && !strings.EqualFold(tag, "x-default") {
			return tag
		}
	}
	if len(tags) > 0 {
		return tags[0]
	}
	return ""
}
