package scrape

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Listing is one marketplace listing as captured from the search page,
// before any analysis runs.
type Listing struct {
	ListingID   string
	Title       string
	Price       float64
	PriceRaw    string
	Location    string
	Condition   string
	URL         string
	ImageURL    string
	Description string
	SellerName  string
	PostedTime  string
	AgeDays     int // -1 when unknown
	IsPending   bool
	ScrapedAt   time.Time
}

var (
	priceJunkRe    = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?\s*`)
	partnerRe      = regexp.MustCompile(`(?i)^Partner\s+listing\s*`)
	inclPrefixRe   = regexp.MustCompile(`(?i)^Incl\s+\d+\s+`)
	locSuffixRe    = regexp.MustCompile(`\s+[A-Z][a-z]+,\s*[A-Z]{2}\s*$`)
	listedSuffixRe = regexp.MustCompile(`(?i)\s*Listed\s+.*$`)
	dimSuffixRe    = regexp.MustCompile(`\s+\d+(?:\.\d+)?\s*[xX]\s*\d+(?:\.\d+)?(?:mm|cm|in)?\s*$`)
	nonNumericRe   = regexp.MustCompile(`[^\d.]`)
	postedAgeRe    = regexp.MustCompile(`(?i)(?:listed\s+)?(\d+)\s*(minute|hour|day|week|month)s?\s*ago`)
)

// ParsePrice extracts a numeric price from strings like "$1,234" or
// "Free". Returns ok=false when no number can be found.
func ParsePrice(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	if s == "free" {
		return 0, true
	}
	cleaned := nonNumericRe.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// CleanTitle strips marketplace junk from a listing title so it can be
// used as a resale search query. Keeps the leading product name, drops
// prices, locations and trailing dimension specs.
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}
	cleaned := partnerRe.ReplaceAllString(title, "")
	cleaned = priceJunkRe.ReplaceAllString(cleaned, "")
	cleaned = inclPrefixRe.ReplaceAllString(cleaned, "")
	cleaned = locSuffixRe.ReplaceAllString(cleaned, "")
	cleaned = listedSuffixRe.ReplaceAllString(cleaned, "")
	cleaned = dimSuffixRe.ReplaceAllString(cleaned, "")

	if len(cleaned) > 80 {
		truncated := cleaned[:80]
		if i := strings.LastIndex(truncated, " "); i > 50 {
			cleaned = truncated[:i]
		} else {
			cleaned = truncated
		}
	}
	return strings.TrimSpace(strings.Join(strings.Fields(cleaned), " "))
}

// ParsePostedAge turns "2 days ago" style text into whole days.
// Returns -1 when the text does not carry an age.
func ParsePostedAge(text string) int {
	m := postedAgeRe.FindStringSubmatch(text)
	if m == nil {
		return -1
	}
	n, _ := strconv.Atoi(m[1])
	switch strings.ToLower(m[2]) {
	case "minute":
		return 0
	case "hour":
		if n < 12 {
			return 0
		}
		return 1
	case "day":
		return n
	case "week":
		return n * 7
	case "month":
		return n * 30
	}
	return -1
}

// IsShipped reports whether the listing is a non-local shipped item.
func (l *Listing) IsShipped() bool {
	loc := strings.ToLower(l.Location)
	title := strings.ToLower(l.Title)
	return strings.Contains(loc, "ship") || strings.Contains(title, "ship") ||
		strings.Contains(loc, "delivery")
}

// FilterOptions controls which listings survive Filter.
type FilterOptions struct {
	MaxAgeDays     int // 0 disables the age filter
	ExcludePending bool
	ExcludeShipped bool
}

// Filter drops listings that fail the age, pending or shipped checks.
// Listings with unknown age pass the age filter.
func Filter(listings []Listing, opts FilterOptions) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if opts.ExcludePending && l.IsPending {
			continue
		}
		if opts.ExcludeShipped && l.IsShipped() {
			continue
		}
		if opts.MaxAgeDays > 0 && l.AgeDays > opts.MaxAgeDays {
			continue
		}
		out = append(out, l)
	}
	return out
}

// SortByPrice orders listings cheapest first, with free items last so
// that priced bargains are analyzed before giveaway noise.
func SortByPrice(listings []Listing) []Listing {
	priced := make([]Listing, 0, len(listings))
	free := make([]Listing, 0)
	for _, l := range listings {
		if l.Price == 0 {
			free = append(free, l)
		} else {
			priced = append(priced, l)
		}
	}
	sort.SliceStable(priced, func(i, j int) bool { return priced[i].Price < priced[j].Price })
	return append(priced, free...)
}
