package idhash

import (
	"crypto/sha256"
	"fmt"
	"math"
	"strings"

	"github.com/mr-tron/base58"

	"transit-synth/internal/domain"
)

// fingerprintVersion prefixes the normalized form. Bump it when normalization changes.
const fingerprintVersion = "v1"

// coordinatePrecision is the number of decimals kept for latitude/longitude (~1.1 km).
const coordinatePrecision = 2

// NormalizeBirthData returns the canonical string form of birth data.
// Formula: v1|date|time|confidence|lat|lon|tz
// Birth time is dropped when confidence is unknown. SubjectID, city and country
// do not participate: semantically identical birth data maps to one key.
func NormalizeBirthData(b domain.BirthData) string {
	birthTime := "-"
	if b.TimeConfidence != domain.ConfidenceUnknown && b.BirthTime != "" {
		birthTime = strings.TrimSpace(b.BirthTime)
	}

	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		fingerprintVersion,
		b.CalendarDate().Format("2006-01-02"),
		birthTime,
		strings.ToLower(strings.TrimSpace(string(b.TimeConfidence))),
		formatCoordinate(b.Place.Latitude),
		formatCoordinate(b.Place.Longitude),
		strings.TrimSpace(b.Place.TimeZone),
	)
}

// Fingerprint computes a deterministic cache key for birth data using SHA256.
// Returns the base58-encoded hash.
func Fingerprint(b domain.BirthData) string {
	hash := sha256.Sum256([]byte(NormalizeBirthData(b)))
	return base58.Encode(hash[:])
}

func formatCoordinate(v float64) string {
	scale := math.Pow(10, coordinatePrecision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // collapse negative zero
	}
	return fmt.Sprintf("%.*f", coordinatePrecision, r)
}
