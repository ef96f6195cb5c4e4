package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// TermSets are the keyword lists for one language.
type TermSets struct {
	Administrative     []string `yaml:"administrative"`
	GovernorateMarkers []string `yaml:"governorate_markers"`
	FineGrained        []string `yaml:"fine_grained"`
}

// Keywords holds a TermSets per language. Only en and ar are read; mixed
// text is checked against both.
type Keywords map[models.Language]TermSets

// DefaultKeywords returns the built-in keyword sets.
func DefaultKeywords() (Keywords, error) {
	return ParseKeywords(defaultKeywordsYAML)
}

// LoadKeywords reads keyword sets from a YAML file with the same layout as the
// built-in one.
func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords %s: %w", path, err)
	}
	return ParseKeywords(data)
}

// ParseKeywords decodes keyword sets from YAML.
func ParseKeywords(data []byte) (Keywords, error) {
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	for _, lang := range []models.Language{models.LanguageEnglish, models.LanguageArabic} {
		if _, ok := kw[lang]; !ok {
			return nil, fmt.Errorf("parse keywords: missing %q section", lang)
		}
	}
	return kw, nil
}

// arabicPrefixes are the attached particles and articles a keyword may carry
// in running Arabic text ("بالحي", "والشارع").
var arabicPrefixes = []string{"", "ال", "و", "ب", "ل", "ف", "ك", "وال", "بال", "فال", "كال", "لل"}

// termSet is a normalized, ready-to-match keyword list.
type termSet struct {
	terms    []string
	prefixes []string
}

func compileTerms(terms []string, lang models.Language) termSet {
	ts := termSet{prefixes: []string{""}}
	if lang == models.LanguageArabic {
		ts.prefixes = arabicPrefixes
	}
	for _, t := range terms {
		if n := normalize(t); n != "" {
			ts.terms = append(ts.terms, n)
		}
	}
	return ts
}

// match reports whether any term appears in normalized text as whole words.
func (ts termSet) match(text string) bool {
	if text == "" {
		return false
	}
	padded := " " + text + " "
	for _, term := range ts.terms {
		for _, p := range ts.prefixes {
			if strings.Contains(padded, " "+p+term+" ") {
				return true
			}
		}
	}
	return false
}

var alefVariants = strings.NewReplacer("أ", "ا", "إ", "ا", "آ", "ا", "ٱ", "ا")

// normalize NFC-normalizes and case-folds text, drops the combining marks left
// over (Arabic diacritics), unifies alef forms and turns every non letter/digit
// run into one space.
func normalize(s string) string {
	s = alefVariants.Replace(cases.Fold().String(norm.NFC.String(s)))

	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r), r == 'ـ':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
