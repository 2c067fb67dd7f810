package pricelist

import (
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeKey derives the stable identity key for a product name. The same
// display name with different country flags must stay distinct, so a
// non-empty flag is appended as a suffix.
func NormalizeKey(name, flag string) string {
	key := strings.TrimSpace(spaceRe.ReplaceAllString(strings.ToLower(name), " "))
	if flag != "" {
		key += "|" + flag
	}
	return key
}
