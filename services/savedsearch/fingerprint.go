package savedsearch

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// Fingerprint is a stable hash over a result set's "category:id" refs.
// Identical sets always hash identically regardless of ordering, which is
// what lets the alert engine detect changes between runs.
func Fingerprint(refs []string) string {
	sorted := slices.Clone(refs)
	slices.Sort(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}
