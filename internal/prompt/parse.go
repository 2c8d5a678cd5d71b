package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Ad is the structured ad returned by the model.
type Ad struct {
	Campaign     string   `json:"campaign"`
	AdGroup      string   `json:"adGroup"`
	Headlines    []string `json:"headlines"`
	Descriptions []string `json:"descriptions"`
	Path1        string   `json:"path1"`
	Path2        string   `json:"path2"`
}

// ErrNoJSON is returned when the completion contains no JSON object.
var ErrNoJSON = errors.New("completion contains no JSON object")

var (
	fencePattern         = regexp.MustCompile("```(?:json)?")
	objectPattern        = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
	quoteReplacer        = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`)
)

// ParseAdCopy extracts the ad from a completion. It tolerates markdown fences, surrounding
// prose, trailing commas, and typographic quotes.
func ParseAdCopy(text string) (Ad, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
	raw := objectPattern.FindString(cleaned)
	if raw == "" {
		return Ad{}, ErrNoJSON
	}
	raw = trailingCommaPattern.ReplaceAllString(raw, "$1")
	raw = quoteReplacer.Replace(raw)

	var ad Ad
	if err := json.Unmarshal([]byte(raw), &ad); err != nil {
		return Ad{}, fmt.Errorf("decode ad copy: %w", err)
	}
	return ad, nil
}

// Violations lists assets that exceed their platform limits.
func (a Ad) Violations() []string {
	var out []string
	check := func(kind string, i int, s string, limit int) {
		if n := len([]rune(s)); n > limit {
			out = append(out, fmt.Sprintf("%s %d is %d characters (limit %d)", kind, i+1, n, limit))
		}
	}
	for i, h := range a.Headlines {
		check("headline", i, h, HeadlineLimit)
	}
	for i, d := range a.Descriptions {
		check("description", i, d, DescriptionLimit)
	}
	check("path", 0, a.Path1, PathLimit)
	check("path", 1, a.Path2, PathLimit)
	return out
}
