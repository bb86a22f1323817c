package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey canonicalizes section and side names so that visually equal
// names land in the same counter bucket.
func NormalizeKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
