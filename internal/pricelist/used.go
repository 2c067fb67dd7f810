package pricelist

import (
	"regexp"
	"strings"
)

var usageHintRe = regexp.MustCompile(`(\d+)\s*(?:год|года|лет|месяц|месяца|недел)`)

// UsedAttrs scans a secondhand listing's name for duration and completeness
// phrases. Best-effort annotation only; never authoritative for pricing or
// availability.
func UsedAttrs(name string) map[string]string {
	s := strings.ToLower(name)
	attrs := map[string]string{}
	if m := usageHintRe.FindString(s); m != "" {
		attrs["usage_hint"] = m
	}
	if strings.Contains(s, "полный комплект") {
		attrs["kit"] = "full"
	}
	if strings.Contains(s, "без короб") {
		attrs["kit"] = "no_box"
	}
	return attrs
}
