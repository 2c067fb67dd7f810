package pricelist

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Item is one purchasable candidate extracted from a price line.
type Item struct {
	Name  string
	Price int64
	Flag  string
}

// Price lines look like "<name> <sep> <price> <trailing>". The name is
// matched greedily so the rightmost separator before a numeric token wins,
// which keeps model codes like "WF-1000XM5" inside the name. Whitespace
// around the separator is optional for both retail and wholesale posts.
var lineRe = regexp.MustCompile(`^[ \t]*(.+)[ \t]*[-:\x{2013}\x{2014}\x{2011}][ \t]*([\d \t.,]{2,})(.*)$`)

// Two regional-indicator codepoints form one country flag.
var (
	flagRe      = regexp.MustCompile(`[\x{1F1E6}-\x{1F1FF}]{2}`)
	flagStripRe = regexp.MustCompile(`[\x{1F1E6}-\x{1F1FF}]{2}[ \t]*`)
)

var nonPriceRe = regexp.MustCompile(`[^0-9.]`)

const (
	maxPrice       = 5_000_000
	overpricedFrom = 2_000_000
)

const nameCutset = "•.–—-: \t"

// Parse extracts items from every line of a source post. Lines that do not
// match the grammar or fail sanity checks are skipped, never errors.
func Parse(text string) []Item {
	var items []Item
	for _, raw := range strings.Split(text, "\n") {
		items = append(items, parseLine(raw)...)
	}
	return items
}

// parseLine returns zero or more items for one raw line. A line carrying
// several country flags fans out into one item per flag, identical in name
// and price; the flags are stripped from the emitted name.
func parseLine(raw string) []Item {
	m := lineRe.FindStringSubmatch(strings.TrimRight(raw, "\r"))
	if m == nil {
		return nil
	}
	name := strings.TrimSpace(m[1])
	rest := m[3]

	price, ok := normalizePrice(m[2])
	if !ok {
		return nil
	}

	flags := flagRe.FindAllString(rest, -1)
	flags = append(flags, flagRe.FindAllString(name, -1)...)

	clean := strings.TrimSpace(flagStripRe.ReplaceAllString(name, ""))
	clean = strings.Trim(clean, nameCutset)
	if utf8.RuneCountInString(clean) < 2 {
		return nil
	}

	if len(flags) == 0 {
		return []Item{{Name: clean, Price: price}}
	}
	items := make([]Item, 0, len(flags))
	for _, f := range flags {
		items = append(items, Item{Name: clean, Price: price, Flag: f})
	}
	return items
}

// normalizePrice canonicalizes noisy price text into a whole-unit amount.
// Spaces and commas are noise; a dot is a thousands separator when the part
// after it has three digits or more, and sub-unit noise when shorter.
// Amounts over two million that divide evenly by 1000 are assumed to carry
// accidental extra zeros and are divided down.
func normalizePrice(s string) (int64, bool) {
	s = nonPriceRe.ReplaceAllString(s, "")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		parts := strings.Split(s, ".")
		if len(parts) == 2 && len(parts[1]) >= 1 && len(parts[1]) <= 2 {
			s = parts[0]
		} else {
			s = strings.Join(parts, "")
		}
	}
	if s == "" {
		return 0, false
	}
	price, err := strconv.ParseInt(s, 10, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	// Only ever divide by 1000, never by 100: "50000000" reads as 50000
	// with three stray zeros, not as a sub-unit amount.
	if price > overpricedFrom && price%1000 == 0 && price/1000 <= maxPrice {
		price /= 1000
	}
	if price > maxPrice {
		return 0, false
	}
	return price, true
}
