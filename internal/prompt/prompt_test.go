package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/copygate/internal/adcopy"
)

func TestAdCopyIncludesMetadataAndLanguage(t *testing.T) {
	t.Parallel()

	page := adcopy.PageSignals{
		Language:        "German",
		Title:           adcopy.OptionalString("Wanderschuhe"),
		SiteName:        adcopy.OptionalString("Bergsport"),
		MetaDescription: adcopy.OptionalString("Kostenloser Versand"),
	}
	got, err := AdCopy(AdCopyInput{
		URL:                 "https://example.de/schuhe",
		Page:                page,
		Keywords:            []string{" wanderschuhe ", "", "bergschuhe"},
		KeywordDescriptions: 9,
		Year:                2026,
	})
	require.NoError(t, err)

	assert.Contains(t, got, "CURRENT YEAR: 2026.")
	assert.Contains(t, got, "URL: https://example.de/schuhe")
	assert.Contains(t, got, "Page title: Wanderschuhe\nBrand/site name: Bergsport\nMeta description: Kostenloser Versand")
	assert.NotContains(t, got, "Main page headline")
	assert.Contains(t, got, "OUTPUT LANGUAGE: German")
	assert.Contains(t, got, "ALL headlines and descriptions in German")
	assert.Contains(t, got, "Keywords pool: wanderschuhe, bergschuhe")
	assert.Contains(t, got, "exactly 4 of the 15 headlines")
	assert.Contains(t, got, "in 4 of the 4 descriptions")
	assert.Contains(t, got, "each ≤ 30 characters")
	assert.Contains(t, got, "each ≤ 90 characters")
	assert.Contains(t, got, "≤ 15 chars")
}

func TestAdCopyWithoutMetadataOrKeywords(t *testing.T) {
	t.Parallel()

	got, err := AdCopy(AdCopyInput{URL: "https://example.com", Year: 2026})
	require.NoError(t, err)
	assert.Contains(t, got, "No metadata available. Infer from the URL structure.")
	assert.Contains(t, got, "OUTPUT LANGUAGE: English")
	assert.NotContains(t, got, "KEYWORDS TO INCLUDE")
}

func TestRefine(t *testing.T) {
	t.Parallel()

	got := Refine(RefineInput{
		Current:       "Schnelle Lieferung",
		Instruction:   "more urgent",
		Limit:         30,
		IsDescription: false,
		Language:      "German",
	})
	assert.True(t, strings.HasPrefix(got, "You are refining a single Google Ads headline."))
	assert.Contains(t, got, `Current text: "Schnelle Lieferung"`)
	assert.Contains(t, got, "Character limit: 30 characters")
	assert.Contains(t, got, "Language: German.")
	assert.Contains(t, got, "Page context: not provided")

	desc := Refine(RefineInput{Current: "x", Instruction: "y", Limit: 90, IsDescription: true, URL: "https://e.com"})
	assert.Contains(t, desc, "Google Ads description")
	assert.Contains(t, desc, "Language: English.")
	assert.Contains(t, desc, "Page context: https://e.com")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Grüß", Truncate("Grüße", 4))
	assert.Equal(t, "short", Truncate("short", 30))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}

func TestParseAdCopy(t *testing.T) {
	t.Parallel()

	text := "Here you go:\n```json\n{\n  \"campaign\": “Hiking”,\n  \"adGroup\": \"Boots\",\n" +
		"  \"headlines\": [\"Buy Boots\", \"Free Shipping\",],\n  \"descriptions\": [\"Great boots.\"],\n" +
		"  \"path1\": \"boots\", \"path2\": \"sale\"\n}\n```"
	ad, err := ParseAdCopy(text)
	require.NoError(t, err)
	assert.Equal(t, "Hiking", ad.Campaign)
	assert.Equal(t, []string{"Buy Boots", "Free Shipping"}, ad.Headlines)
	assert.Equal(t, "sale", ad.Path2)
	assert.Empty(t, ad.Violations())

	_, err = ParseAdCopy("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseAdCopy("{broken")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseAdCopy(`{"headlines": nope}`)
	assert.ErrorContains(t, err, "decode ad copy")
}

func TestViolations(t *testing.T) {
	t.Parallel()

	ad := Ad{
		Headlines:    []string{"ok", strings.Repeat("x", 31)},
		Descriptions: []string{strings.Repeat("ü", 90)},
		Path1:        strings.Repeat("p", 16),
	}
	assert.Equal(t, []string{
		"headline 2 is 31 characters (limit 30)",
		"path 1 is 16 characters (limit 15)",
	}, ad.Violations())
}
