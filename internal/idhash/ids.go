package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"transit-synth/internal/domain"
)

// themeNamespace scopes theme UUIDs.
var themeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("transit-synth/theme"))

// ComputeAspectID computes a deterministic aspect id using SHA256.
// Formula: SHA256(transiting|type|natal|start)
// Returns the first 16 hex characters.
func ComputeAspectID(a domain.TransitAspect) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		a.Transiting,
		a.Type,
		a.Natal,
		domain.Day(a.Window.Start).Format("2006-01-02"),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}

// ComputeThemeID computes a stable theme identifier (UUID v5) from its focus area,
// its date range and the sorted contributing aspect ids.
func ComputeThemeID(focus domain.FocusArea, r domain.DateRange, aspectIDs []string) string {
	ids := make([]string, len(aspectIDs))
	copy(ids, aspectIDs)
	sort.Strings(ids)

	data := fmt.Sprintf("%s|%s|%s|%s",
		focus,
		domain.Day(r.Start).Format("2006-01-02"),
		domain.Day(r.End).Format("2006-01-02"),
		strings.Join(ids, ","),
	)
	return uuid.NewSHA1(themeNamespace, []byte(data)).String()
}
