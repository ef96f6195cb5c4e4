// Package merge combines an existing violation record with a complementary
// incoming one, field by field.
package merge

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	pstrings "github.com/modullar/violations-tracker-backend-sub003/pkg/platform/strings"
)

// Field names a mergeable part of a record.
type Field string

const (
	FieldDescription            Field = "description"
	FieldCasualties             Field = "casualties"
	FieldVictims                Field = "victims"
	FieldTags                   Field = "tags"
	FieldMediaLinks             Field = "media_links"
	FieldSourceURLs             Field = "source_urls"
	FieldPerpetratorAffiliation Field = "perpetrator_affiliation"
	FieldLocation               Field = "location"
	FieldType                   Field = "type"
)

// Strategy selects the fields a merge touches; every other field keeps the
// existing value.
type Strategy struct {
	Fields []Field
}

// DefaultStrategy merges everything except the record type.
func DefaultStrategy() Strategy {
	return Strategy{Fields: []Field{
		FieldDescription,
		FieldCasualties,
		FieldVictims,
		FieldTags,
		FieldMediaLinks,
		FieldSourceURLs,
		FieldPerpetratorAffiliation,
		FieldLocation,
	}}
}

// Merge returns a new record built from existing with incoming's
// information folded in. Neither input is modified.
//
//   - description: per language, the longer text (ties keep existing)
//   - casualties: the maximum
//   - victims: existing, then incoming victims not structurally equal to one already present
//   - tags: existing, then incoming tags sharing no localized form with one already present
//   - media_links, source_urls: ordered union without empty strings
//   - anything else: incoming when existing is empty or incoming is strictly longer
//
// UpdatedBy is taken from incoming when set.
func Merge(existing, incoming models.ViolationRecord, strategy Strategy) models.ViolationRecord {
	out := existing.Clone()

	for _, f := range strategy.Fields {
		switch f {
		case FieldDescription:
			out.Description = mergeLocalized(existing.Description, incoming.Description, longer)
		case FieldCasualties:
			out.Casualties = max(existing.Casualties, incoming.Casualties)
		case FieldVictims:
			out.Victims = mergeVictims(existing.Victims, incoming.Victims)
		case FieldTags:
			out.Tags = mergeTags(existing.Tags, incoming.Tags)
		case FieldMediaLinks:
			out.MediaLinks = mergeLinks(existing.MediaLinks, incoming.MediaLinks)
		case FieldSourceURLs:
			out.SourceURLs = mergeLinks(existing.SourceURLs, incoming.SourceURLs)
		case FieldPerpetratorAffiliation:
			out.PerpetratorAffiliation = preferIncoming(existing.PerpetratorAffiliation, incoming.PerpetratorAffiliation)
		case FieldType:
			out.Type = preferIncoming(existing.Type, incoming.Type)
		case FieldLocation:
			out.Location = mergeLocation(existing.Location, incoming.Location)
		}
	}

	if incoming.UpdatedBy != "" {
		out.UpdatedBy = incoming.UpdatedBy
	}
	return out
}

func mergeLocalized(existing, incoming models.LocalizedText, pick func(a, b string) string) models.LocalizedText {
	return models.LocalizedText{
		En: pick(existing.En, incoming.En),
		Ar: pick(existing.Ar, incoming.Ar),
	}
}

// longer keeps existing on ties.
func longer(existing, incoming string) string {
	if utf8.RuneCountInString(incoming) > utf8.RuneCountInString(existing) {
		return incoming
	}
	return existing
}

func preferIncoming(existing, incoming string) string {
	if strings.TrimSpace(existing) == "" && strings.TrimSpace(incoming) != "" {
		return incoming
	}
	return longer(existing, incoming)
}

func mergeLocation(existing, incoming models.Location) models.Location {
	out := models.Location{
		Name:                   mergeLocalized(existing.Name, incoming.Name, preferIncoming),
		AdministrativeDivision: mergeLocalized(existing.AdministrativeDivision, incoming.AdministrativeDivision, preferIncoming),
	}
	switch {
	case existing.Coordinates != nil:
		c := *existing.Coordinates
		out.Coordinates = &c
	case incoming.Coordinates != nil:
		c := *incoming.Coordinates
		out.Coordinates = &c
	}
	return out
}

func mergeVictims(existing, incoming []models.Victim) []models.Victim {
	out := slices.Clone(existing)
	for _, v := range incoming {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func mergeTags(existing, incoming []models.LocalizedText) []models.LocalizedText {
	out := slices.Clone(existing)
	for _, tag := range incoming {
		if tag.IsEmpty() {
			continue
		}
		dup := slices.ContainsFunc(out, func(t models.LocalizedText) bool {
			return sameForm(t.En, tag.En) || sameForm(t.Ar, tag.Ar)
		})
		if !dup {
			out = append(out, tag)
		}
	}
	return out
}

func sameForm(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func mergeLinks(existing, incoming []string) []string {
	out := pstrings.Union(existing, incoming)
	if len(out) == 0 && existing == nil {
		return nil
	}
	return out
}
