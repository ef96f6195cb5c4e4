package classifier

import (
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

type compiledSets struct {
	administrative termSet
	governorate    termSet
	fineGrained    termSet
}

// Classifier decides whether a location is simple (governorate or major city)
// or complex (anything finer, or an ambiguous combination).
type Classifier struct {
	sets map[models.Language]compiledSets
}

// New compiles kw into a Classifier.
func New(kw Keywords) *Classifier {
	c := &Classifier{sets: make(map[models.Language]compiledSets, len(kw))}
	for lang, ts := range kw {
		c.sets[lang] = compiledSets{
			administrative: compileTerms(ts.Administrative, lang),
			governorate:    compileTerms(ts.GovernorateMarkers, lang),
			fineGrained:    compileTerms(ts.FineGrained, lang),
		}
	}
	return c
}

// NewDefault returns a Classifier using the built-in keyword sets.
func NewDefault() *Classifier {
	kw, err := DefaultKeywords()
	if err != nil {
		// the embedded file is part of the build
		panic(err)
	}
	return New(kw)
}

// Classify applies, in order:
//  1. any fine-grained term in the name or admin division: complex
//  2. name is administrative and no admin division: simple
//  3. both administrative, or the admin division is governorate-level: simple
//  4. exactly one of name/admin division is administrative: complex
//  5. an admin division is present: complex; otherwise simple
//
// An empty lang is detected from the place name.
func (c *Classifier) Classify(placeName, adminDivision string, lang models.Language) models.Complexity {
	if lang == "" {
		lang = DetectLanguage(placeName)
	}
	sets := c.setsFor(lang)
	name := normalize(placeName)
	admin := normalize(adminDivision)

	if anyMatch(sets, name, func(s compiledSets) termSet { return s.fineGrained }) ||
		anyMatch(sets, admin, func(s compiledSets) termSet { return s.fineGrained }) {
		return models.ComplexityComplex
	}

	// rules 2 and 5 agree when there is no admin division
	if admin == "" {
		return models.ComplexitySimple
	}

	nameAdmin := anyMatch(sets, name, func(s compiledSets) termSet { return s.administrative })
	adminAdmin := anyMatch(sets, admin, func(s compiledSets) termSet { return s.administrative })
	governorateLevel := anyMatch(sets, admin, func(s compiledSets) termSet { return s.governorate })
	if (nameAdmin && adminAdmin) || governorateLevel {
		return models.ComplexitySimple
	}
	return models.ComplexityComplex
}

// IsComplex is shorthand for Classify(...) == complex.
func (c *Classifier) IsComplex(placeName, adminDivision string, lang models.Language) bool {
	return c.Classify(placeName, adminDivision, lang) == models.ComplexityComplex
}

func (c *Classifier) setsFor(lang models.Language) []compiledSets {
	var out []compiledSets
	switch lang {
	case models.LanguageArabic:
		if s, ok := c.sets[models.LanguageArabic]; ok {
			out = append(out, s)
		}
	case models.LanguageMixed:
		for _, l := range []models.Language{models.LanguageEnglish, models.LanguageArabic} {
			if s, ok := c.sets[l]; ok {
				out = append(out, s)
			}
		}
	default:
		if s, ok := c.sets[models.LanguageEnglish]; ok {
			out = append(out, s)
		}
	}
	return out
}

func anyMatch(sets []compiledSets, text string, pick func(compiledSets) termSet) bool {
	for _, s := range sets {
		if pick(s).match(text) {
			return true
		}
	}
	return false
}
