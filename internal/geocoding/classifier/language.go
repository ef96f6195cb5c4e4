// Package classifier decides the script of a location string and whether it
// needs a coarse (bulk) or fine-grained (premium) geocoding backend.
//
// Both decisions are pure: the same input always yields the same output.
package classifier

import (
	"unicode"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

// arabicRanges covers the Arabic block plus its supplement, extended-A and
// presentation forms.
var arabicRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

// DetectLanguage returns ar or en when only one script is present, mixed when
// both are, and en for empty text or text with neither script.
func DetectLanguage(text string) models.Language {
	var arabic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(arabicRanges, r):
			arabic++
		case unicode.IsLetter(r) && unicode.Is(unicode.Latin, r):
			latin++
		}
	}

	switch {
	case arabic > 0 && latin > 0:
		return models.LanguageMixed
	case arabic > 0:
		return models.LanguageArabic
	default:
		return models.LanguageEnglish
	}
}
