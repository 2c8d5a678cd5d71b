// Package signals pulls language hints and descriptive metadata out of raw landing page HTML
// with a fixed set of named, case-insensitive pattern rules. Absence of a match is an empty
// value, never an error.
package signals

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule names.
const (
	RuleHTMLLang        = "htmlLang"
	RuleOGLocale        = "ogLocale"
	RuleHreflang        = "hreflang"
	RuleURLPath         = "urlPath"
	RuleURLPath3        = "urlPath3"
	RuleSubdomain       = "subdomain"
	RuleTLD             = "tld"
	RuleTitle           = "title"
	RuleOGTitle         = "ogTitle"
	RuleMetaDescription = "metaDescription"
	RuleOGDescription   = "ogDescription"
	RuleOGSiteName      = "ogSiteName"
	RuleH1              = "h1"
)

// Rule is a named extraction with one or more alternative patterns. The first capture group
// of the first matching alternative is the result.
type Rule struct {
	Name         string
	Alternatives []*regexp.Regexp
}

// Find returns the first match of the rule in s, or "".
func (r Rule) Find(s string) string {
	for _, re := range r.Alternatives {
		if m := re.FindStringSubmatch(s); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

// FindAll returns every match of every alternative, in alternative order.
func (r Rule) FindAll(s string) []string {
	var out []string
	for _, re := range r.Alternatives {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if len(m) > 1 && m[1] != "" {
				out = append(out, m[1])
			}
		}
	}
	return out
}

func newRule(name string, patterns ...string) Rule {
	alts := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		alts = append(alts, regexp.MustCompile(p))
	}
	return Rule{Name: name, Alternatives: alts}
}

// MetaRule matches a <meta> tag identified by attr=value and captures its content. Two
// alternatives cover content placed after or before the identifying attribute. minLen
// bounds the captured content length from below.
func MetaRule(name, attr, value string, minLen int) Rule {
	v := regexp.QuoteMeta(value)
	content := `([^"']+)`
	if minLen > 1 {
		content = fmt.Sprintf(`([^"']{%d,}?)`, minLen)
	}
	return newRule(name,
		`(?i)<meta[^>]+`+attr+`=["']`+v+`["'][^>]+content=["']`+content+`["']`,
		`(?i)<meta[^>]+content=["']`+content+`["'][^>]+`+attr+`=["']`+v+`["']`,
	)
}

// ElementTextRule captures the text of a <tag> element that has at least minLen characters and
// no nested markup.
func ElementTextRule(name, tag string, minLen int) Rule {
	return newRule(name, fmt.Sprintf(`(?i)<%s[^>]*>([^<]{%d,})</%s>`, tag, minLen, tag))
}

// PathCodeRule matches a language code as a URL path segment, optionally followed by a
// regional suffix ("/de/", "/de-at/", "/de_AT", "/de").
func PathCodeRule(name string, codes []string) Rule {
	return newRule(name, `(?i)/(`+alternation(codes)+`)(?:[/\-_]|$)`)
}

// PathCode3Rule matches a three-letter language code delimited by slashes or underscores.
func PathCode3Rule(name string, codes []string) Rule {
	return newRule(name, `(?i)[/_](`+alternation(codes)+`)(?:[/_]|$)`)
}

// SubdomainRule matches a language code as the first host label.
func SubdomainRule(name string, codes []string) Rule {
	return newRule(name, `(?i)https?://(`+alternation(codes)+`)\.`)
}

// TLDRule captures the first two-letter label followed by a slash or the end of the URL.
func TLDRule(name string) Rule {
	return newRule(name, `(?i)\.([a-z]{2})(?:/|$)`)
}

func alternation(codes []string) string {
	quoted := make([]string, 0, len(codes))
	for _, c := range codes {
		quoted = append(quoted, regexp.QuoteMeta(c))
	}
	return strings.Join(quoted, "|")
}
