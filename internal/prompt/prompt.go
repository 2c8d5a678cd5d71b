// Package prompt builds the instructions sent to the generative service for responsive
// search ad copy and for single-asset refinement.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/JakeFAU/copygate/internal/adcopy"
)

// Asset length limits enforced by the ad platform.
const (
	HeadlineLimit    = 30
	DescriptionLimit = 90
	PathLimit        = 15

	HeadlineCount    = 15
	DescriptionCount = 4
)

// RefineMaxTokens is the completion budget for a single-asset rewrite.
const RefineMaxTokens = 200

// AdCopyInput is everything the generation prompt is built from.
type AdCopyInput struct {
	URL      string
	Page     adcopy.PageSignals
	Keywords []string
	// KeywordHeadlines is how many headlines should carry a keyword. Zero picks a default.
	KeywordHeadlines int
	// KeywordDescriptions is how many descriptions should carry a keyword. Zero means none.
	KeywordDescriptions int
	Year                int
}

type adCopyView struct {
	AdCopyInput
	Language     string
	Metadata     string
	Keywords     []string
	HeadlineMax  int
	DescMax      int
	PathMax      int
	Headlines    int
	Descriptions int
}

var adCopyTemplate = template.Must(template.New("adcopy").Funcs(template.FuncMap{"join": strings.Join}).Parse(`You are a Google Ads expert. Generate RSA ad copy for this landing page.
CURRENT YEAR: {{.Year}}. Always use this year for any seasonal or time-based references, never reference past years.

URL: {{.URL}}

PAGE METADATA (use this as your primary source of truth for the product, brand and USPs):
{{if .Metadata}}{{.Metadata}}{{else}}No metadata available. Infer from the URL structure.{{end}}

OUTPUT LANGUAGE: {{.Language}}
CRITICAL: You MUST write ALL headlines and descriptions in {{.Language}}.
Do not mix languages. Do not use English if the language is not English.

Return ONLY valid JSON, no prose, no markdown fences:
{
  "campaign": "short campaign name",
  "adGroup": "short ad group name",
  "headlines": ["h1","h2","h3","h4","h5","h6","h7","h8","h9","h10","h11","h12","h13","h14","h15"],
  "descriptions": ["d1","d2","d3","d4"],
  "path1": "short-path",
  "path2": "sub-path"
}
{{if .Keywords}}
KEYWORDS TO INCLUDE:
Keywords pool: {{join .Keywords ", "}}
- Distribute these keywords naturally across exactly {{.KeywordHeadlines}} of the {{.Headlines}} headlines
- Treat the keywords as a pool and spread them across those {{.KeywordHeadlines}} headlines; a keyword may repeat if needed to fill the target
- A keyword may be the entire headline if it fits within {{.HeadlineMax}} chars, or combined naturally with other words
- Do NOT force a keyword if it would cause the headline to exceed {{.HeadlineMax}} characters; rephrase or use a shorter form
{{- if gt .KeywordDescriptions 0}}
- Also include keywords naturally in {{.KeywordDescriptions}} of the {{.Descriptions}} descriptions
{{- end}}
- Keywords must appear in the OUTPUT LANGUAGE; translate or adapt them if needed
{{end}}
STRICT rules:
- Exactly {{.Headlines}} headlines, each ≤ {{.HeadlineMax}} characters (hard limit)
- Exactly {{.Descriptions}} descriptions, each ≤ {{.DescMax}} characters (hard limit)
- path1 and path2: ≤ {{.PathMax}} chars, no spaces, URL-safe
- Base ALL copy on the page metadata above; do not invent features not mentioned
- Vary headline types: brand, benefits, CTAs, features, social proof, urgency
- Descriptions: aim for 82-90 characters, complete sentences, never cut mid-word
- If it would exceed {{.DescMax}} chars, rephrase to fit cleanly`))

// AdCopy renders the generation prompt.
func AdCopy(in AdCopyInput) (string, error) {
	view := adCopyView{
		AdCopyInput:  in,
		Language:     adcopy.FirstNonEmpty(in.Page.Language, adcopy.DefaultLanguage),
		Metadata:     metadataBlock(in.Page),
		Keywords:     cleanKeywords(in.Keywords),
		HeadlineMax:  HeadlineLimit,
		DescMax:      DescriptionLimit,
		PathMax:      PathLimit,
		Headlines:    HeadlineCount,
		Descriptions: DescriptionCount,
	}
	if view.KeywordHeadlines <= 0 {
		view.KeywordHeadlines = min(len(view.Keywords)*2, HeadlineCount)
	}
	view.KeywordHeadlines = min(view.KeywordHeadlines, HeadlineCount)
	view.KeywordDescriptions = min(view.KeywordDescriptions, DescriptionCount)

	var b strings.Builder
	if err := adCopyTemplate.Execute(&b, view); err != nil {
		return "", fmt.Errorf("render ad copy prompt: %w", err)
	}
	return b.String(), nil
}

func metadataBlock(page adcopy.PageSignals) string {
	var lines []string
	add := func(label string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			lines = append(lines, label+": "+*v)
		}
	}
	add("Page title", page.Title)
	add("Brand/site name", page.SiteName)
	add("Meta description", page.MetaDescription)
	add("Main page headline (H1)", page.H1)
	return strings.Join(lines, "\n")
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// RefineInput describes one asset rewrite.
type RefineInput struct {
	Current       string
	Instruction   string
	Limit         int
	IsDescription bool
	Language      string
	URL           string
}

// Refine renders the single-asset refinement prompt.
func Refine(in RefineInput) string {
	kind := "headline"
	if in.IsDescription {
		kind = "description"
	}
	return fmt.Sprintf(`You are refining a single Google Ads %s.

Current text: %q
Refinement instruction: %q
Character limit: %d characters (hard limit, NEVER exceed this)
Language: %s. Output MUST be in this language.
Page context: %s

Return ONLY the refined text: no quotes, no explanation, no punctuation outside the text itself.
The refined text must be %d characters or fewer. Count carefully.`,
		kind,
		in.Current,
		in.Instruction,
		in.Limit,
		adcopy.FirstNonEmpty(in.Language, adcopy.DefaultLanguage),
		adcopy.FirstNonEmpty(in.URL, "not provided"),
		in.Limit,
	)
}

// Truncate cuts s to at most limit characters.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
