package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Item statuses. Every analyzed listing keeps a row in the report so
// drops and misses stay auditable.
const (
	StatusOpportunity = "opportunity"
	StatusMatched     = "matched"
	StatusNoMatch     = "no_match"
	StatusDropped     = "dropped"
	StatusSkipped     = "skipped"
)

// Item is one listing's outcome within a scan.
type Item struct {
	ListingID       string
	Title           string
	AskingPrice     float64
	Location        string
	URL             string
	ImageURL        string
	IdentifiedAs    string
	IdentifySource  string
	DropReason      string
	ReferencePrice  float64
	MedianPrice     float64
	SampleCount     int
	MatchConfidence float64
	PickupCost      float64
	PickupKnown     bool
	Profit          float64
	ProfitPercent   float64
	IsOpportunity   bool
	Status          string
}

// Report collects everything a scan produced.
type Report struct {
	Timestamp   time.Time
	SearchTerms []string
	ZipCode     string
	RadiusMiles int

	TotalListings int
	Identified    int
	Matched       int
	Opportunities int
	Dropped       int
	NoMatch       int
	Skipped       int

	Items    []Item
	Errors   []string
	Duration time.Duration
}

func New(searchTerms []string, zipCode string, radiusMiles int) *Report {
	return &Report{
		Timestamp:   time.Now(),
		SearchTerms: searchTerms,
		ZipCode:     zipCode,
		RadiusMiles: radiusMiles,
	}
}

// Add records an item and updates the counters.
func (r *Report) Add(item Item) {
	r.Items = append(r.Items, item)
	r.TotalListings++
	if item.IdentifiedAs != "" {
		r.Identified++
	}
	switch item.Status {
	case StatusOpportunity:
		r.Opportunities++
		r.Matched++
	case StatusMatched:
		r.Matched++
	case StatusNoMatch:
		r.NoMatch++
	case StatusDropped:
		r.Dropped++
	case StatusSkipped:
		r.Skipped++
	}
}

// TopOpportunities returns the flagged items, best profit first.
func (r *Report) TopOpportunities() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.IsOpportunity {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Profit > out[j].Profit })
	return out
}

// Summary renders the console report.
func (r *Report) Summary() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\nSCAN REPORT  %s\n%s\n", line, r.Timestamp.Format("2006-01-02 15:04:05"), line)
	fmt.Fprintf(&b, "Search: %s | %s within %d miles\n", strings.Join(r.SearchTerms, ", "), r.ZipCode, r.RadiusMiles)
	fmt.Fprintf(&b, "Listings: %d | Identified: %d | Matched: %d | Opportunities: %d | Dropped: %d | Skipped: %d\n",
		r.TotalListings, r.Identified, r.Matched, r.Opportunities, r.Dropped, r.Skipped)
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration.Round(time.Second))

	opps := r.TopOpportunities()
	if len(opps) > 0 {
		b.WriteString("\nTOP OPPORTUNITIES:\n")
		for i, it := range opps {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "%2d. %s\n", i+1, truncate(it.Title, 50))
			fmt.Fprintf(&b, "    Ask $%.2f | Ref $%.2f (%d comps) | Profit $%.2f (%.1f%%)\n",
				it.AskingPrice, it.ReferencePrice, it.SampleCount, it.Profit, it.ProfitPercent)
			if !it.PickupKnown {
				b.WriteString("    Pickup cost unknown (no distance in listing)\n")
			} else if it.PickupCost > 0 {
				fmt.Fprintf(&b, "    Pickup fuel $%.2f\n", it.PickupCost)
			}
			if it.URL != "" {
				fmt.Fprintf(&b, "    %s\n", it.URL)
			}
		}
	} else {
		b.WriteString("\nNo opportunities met the thresholds.\n")
	}

	if len(r.Errors) > 0 {
		b.WriteString("\nERRORS:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	b.WriteString(line + "\n")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
