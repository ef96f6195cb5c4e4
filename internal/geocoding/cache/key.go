// Package cache derives the fingerprint geocoding results are stored under.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

// Key returns the hex SHA-256 of the normalized query. Place name and admin
// division are NFC-normalized, case-folded and whitespace-collapsed, so
// "  DAMASCUS  " and "damascus" share a key. Each component is length
// prefixed before hashing.
func Key(placeName, adminDivision string, lang models.Language) string {
	h := sha256.New()
	for _, part := range []string{Normalize(placeName), Normalize(adminDivision), string(lang)} {
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KeyFor is Key over SearchTerms.
func KeyFor(terms models.SearchTerms) string {
	return Key(terms.PlaceName, terms.AdminDivision, terms.Language)
}

// Normalize is the text canonicalization Key applies to each component.
func Normalize(s string) string {
	// a Caser is stateful, so one per call
	s = cases.Fold().String(norm.NFC.String(s))
	return strings.Join(strings.Fields(s), " ")
}
