// Package language arbitrates the language hints found on a landing page into one output
// language for ad copy.
package language

import (
	"sort"
	"sync"
)

// Tables holds the static lookup data used by extraction and resolution. A Tables value is
// never mutated after construction and is safe to share between goroutines.
type Tables struct {
	// DisplayNames maps lowercase language tags (primary or regional) to English names.
	DisplayNames map[string]string
	// TLDCodes maps country-code TLDs to the dominant language code.
	TLDCodes map[string]string
	// ISO3 maps ISO-639-2 path segments to ISO-639-1 codes.
	ISO3 map[string]string
	// PathCodes are the two-letter codes recognised as URL path segments.
	PathCodes []string
	// SubdomainCodes are the codes recognised as a leading subdomain label.
	SubdomainCodes []string
}

var (
	defaultTables     *Tables
	defaultTablesOnce sync.Once
)

// DefaultTables returns the built-in tables, constructing them on first use.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		defaultTables = buildDefaultTables()
	})
	return defaultTables
}

// ISO3Codes returns the keys of the ISO-639-2 table, sorted.
func (t *Tables) ISO3Codes() []string {
	codes := make([]string, 0, len(t.ISO3))
	for code := range t.ISO3 {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func buildDefaultTables() *Tables {
	names := map[string]string{}
	add := func(name string, tags ...string) {
		for _, tag := range tags {
			names[tag] = name
		}
	}
	add("German", "de", "de-de", "de-at", "de-ch")
	add("French", "fr", "fr-fr", "fr-ch", "fr-be")
	add("Italian", "it", "it-it", "it-ch")
	add("Spanish", "es", "es-es", "es-mx", "es-ar")
	add("Portuguese", "pt", "pt-br", "pt-pt")
	add("Romanian", "ro", "ro-ro")
	add("Dutch", "nl", "nl-nl", "nl-be")
	add("Swedish", "sv", "sv-se")
	add("Danish", "da", "da-dk")
	add("Norwegian", "nb", "no", "nn")
	add("Finnish", "fi", "fi-fi")
	add("Icelandic", "is", "is-is")
	add("Polish", "pl", "pl-pl")
	add("Czech", "cs", "cs-cz")
	add("Slovak", "sk", "sk-sk")
	add("Croatian", "hr", "hr-hr")
	add("Serbian", "sr", "sr-rs")
	add("Bulgarian", "bg", "bg-bg")
	add("Ukrainian", "uk", "uk-ua")
	add("Russian", "ru", "ru-ru")
	add("Slovenian", "sl", "sl-si")
	add("Hungarian", "hu", "hu-hu")
	add("Greek", "el", "el-gr")
	add("Turkish", "tr", "tr-tr")
	add("Lithuanian", "lt", "lt-lt")
	add("Latvian", "lv", "lv-lv")
	add("Estonian", "et", "et-ee")
	add("Chinese", "zh", "zh-cn", "zh-tw", "zh-hk")
	add("Japanese", "ja", "ja-jp")
	add("Korean", "ko", "ko-kr")
	add("Arabic", "ar", "ar-sa", "ar-ae")
	add("English", "en", "en-us", "en-gb", "en-au")

	return &Tables{
		DisplayNames: names,
		TLDCodes: map[string]string{
			"dk": "da", "se": "sv", "no": "nb", "fi": "fi", "is": "is",
			"de": "de", "at": "de", "ch": "de",
			"fr": "fr", "be": "fr", "it": "it", "es": "es",
			"pt": "pt", "mx": "es", "ar": "es", "co": "es",
			"nl": "nl", "pl": "pl", "cz": "cs", "sk": "sk",
			"hu": "hu", "ro": "ro", "hr": "hr", "bg": "bg",
			"gr": "el", "rs": "sr", "ua": "uk", "lt": "lt",
			"lv": "lv", "ee": "et", "si": "sl",
			"cn": "zh", "tw": "zh", "hk": "zh", "jp": "ja", "kr": "ko",
			"sa": "ar", "ae": "ar", "eg": "ar",
			"br": "pt", "ru": "ru", "tr": "tr",
		},
		ISO3: map[string]string{
			"svk": "sk", "cze": "cs", "pol": "pl", "deu": "de", "fra": "fr",
			"ita": "it", "esp": "es", "nld": "nl", "por": "pt", "swe": "sv",
			"dan": "da", "nor": "nb", "fin": "fi", "hun": "hu", "ron": "ro",
			"hrv": "hr", "srp": "sr", "bul": "bg", "ell": "el", "ukr": "uk",
			"rus": "ru", "tur": "tr", "zho": "zh", "jpn": "ja", "kor": "ko",
			"ara": "ar", "isl": "is", "lit": "lt", "lav": "lv", "est": "et",
			"slk": "sk", "slv": "sl",
		},
		PathCodes: []string{
			"de", "fr", "it", "es", "nl", "pt", "pl", "sv", "da", "fi", "no", "nb",
			"cs", "sk", "hu", "ro", "hr", "bg", "el", "sr", "uk", "ru", "tr",
			"zh", "ja", "ko", "ar", "is", "lt", "lv", "et", "sl", "en",
		},
		SubdomainCodes: []string{
			"de", "fr", "it", "es", "nl", "pt", "pl", "sv", "da", "fi", "no", "nb",
			"cs", "sk", "hu", "ro", "hr", "bg", "el", "sr", "uk", "ru", "tr",
			"zh", "ja", "ko", "ar", "is", "lt", "lv", "et", "sl",
		},
	}
}
