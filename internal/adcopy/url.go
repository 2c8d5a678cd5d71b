package adcopy

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL folds case and strips a single trailing slash so that URLs differing only in
// those respects share one cache entry. Queries and fragments are left as typed.
func NormalizeURL(rawURL string) string {
	return strings.TrimSuffix(strings.ToLower(rawURL), "/")
}

// ValidateTargetURL checks that a caller-supplied URL is an absolute http(s) URL.
func ValidateTargetURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}
