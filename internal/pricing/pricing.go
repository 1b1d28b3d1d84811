// Package pricing turns search terms into verified sold-price
// statistics. Candidates come from pluggable retrieval sources; a match
// verifier decides which candidates may enter the statistics.
package pricing

import (
	"context"
	"log"
	"sort"

	"flipscan/internal/identify"
	"flipscan/internal/match"
)

// ComparableSample is one sold listing fetched from a resale source.
type ComparableSample struct {
	Query      string // search query that retrieved it, set by the aggregator
	Title      string
	Price      float64
	Shipping   float64
	TotalPrice float64
	Condition  string
	SoldDate   string
	URL        string
	ImageURL   string
	Source     string
}

// Aggregate is the statistics over the surviving samples.
type Aggregate struct {
	Query   string
	Source  string
	Average float64
	Median  float64
	Min     float64
	Max     float64
	Count   int
}

// Reference picks the price used for profit math. The minimum is the
// conservative default; the average systematically overstates what a
// resale would actually fetch.
func (a *Aggregate) Reference(useLowest bool) float64 {
	if useLowest {
		return a.Min
	}
	return a.Average
}

// Source retrieves sold comparables. An empty result is not an error;
// errors mean transport failure.
type Source interface {
	Name() string
	Search(ctx context.Context, query, condition string, limit int) ([]ComparableSample, error)
}

// Verifier is the subset of match.Verifier the aggregator needs.
type Verifier interface {
	Compare(ctx context.Context, local, sold match.Candidate) match.Verdict
}

// Options tunes one lookup.
type Options struct {
	Condition            string
	MaxQueries           int
	MaxCandidatesPerTerm int
	SkipVerification     bool
	// OnVerdict, when set, observes every verification outcome. Used
	// for persistence; the aggregator itself keeps no state.
	OnVerdict func(sample ComparableSample, verdict match.Verdict)
}

// Request carries the local listing and its identified search terms.
type Request struct {
	Title       string
	Description string
	ImageURL    string
	Terms       []identify.Result
}

// Aggregator runs retrieval, verification and aggregation.
type Aggregator struct {
	source   Source
	verifier Verifier
	opts     Options
}

func NewAggregator(source Source, verifier Verifier, opts Options) *Aggregator {
	if opts.MaxQueries <= 0 {
		opts.MaxQueries = 3
	}
	if opts.MaxCandidatesPerTerm <= 0 {
		opts.MaxCandidatesPerTerm = 5
	}
	return &Aggregator{source: source, verifier: verifier, opts: opts}
}

// Lookup fetches comparables for every term, verifies them and computes
// statistics. Returns nil when nothing survives: the caller must treat
// that as "no price available", never as zero.
func (a *Aggregator) Lookup(ctx context.Context, req Request) (*Aggregate, error) {
	if len(req.Terms) == 0 {
		return nil, nil
	}

	queries := make([]string, 0, len(req.Terms))
	for _, t := range req.Terms {
		if !t.Dropped() {
			queries = append(queries, t.SearchTerm)
		}
	}
	if len(queries) == 0 {
		return nil, nil
	}
	if len(queries) > a.opts.MaxQueries {
		queries = queries[:a.opts.MaxQueries]
	}

	seen := make(map[string]bool)
	var candidates []ComparableSample
	for _, q := range queries {
		samples, err := a.source.Search(ctx, q, a.opts.Condition, a.opts.MaxCandidatesPerTerm)
		if err != nil {
			log.Printf("pricing: search %q failed: %v", q, err)
			continue
		}
		count := 0
		for _, s := range samples {
			if count >= a.opts.MaxCandidatesPerTerm {
				break
			}
			if s.URL != "" && seen[s.URL] {
				continue
			}
			if s.URL != "" {
				seen[s.URL] = true
			}
			s.Query = q
			candidates = append(candidates, s)
			count++
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// An image-grounded term was already visually confirmed, so
	// re-verifying each candidate buys nothing.
	skip := a.opts.SkipVerification || req.Terms[0].Source == identify.SourceImage

	var survivors []ComparableSample
	if skip || a.verifier == nil {
		if len(candidates) > a.opts.MaxCandidatesPerTerm {
			candidates = candidates[:a.opts.MaxCandidatesPerTerm]
		}
		survivors = candidates
	} else {
		limit := a.opts.MaxCandidatesPerTerm * a.opts.MaxQueries
		for _, c := range candidates {
			if len(survivors) >= limit {
				break
			}
			verdict := a.verifier.Compare(ctx,
				match.Candidate{Title: req.Title, Description: req.Description, ImageURL: req.ImageURL},
				match.Candidate{Title: c.Title, ImageURL: c.ImageURL, Price: c.TotalPrice})
			if a.opts.OnVerdict != nil {
				a.opts.OnVerdict(c, verdict)
			}
			if verdict.IsMatch {
				survivors = append(survivors, c)
			}
		}
	}
	if len(survivors) == 0 {
		return nil, nil
	}

	agg := aggregate(survivors)
	agg.Query = queries[0]
	agg.Source = a.source.Name()
	return agg, nil
}

// aggregate computes the statistics. Median is the lower-middle element
// for even counts.
func aggregate(samples []ComparableSample) *Aggregate {
	prices := make([]float64, len(samples))
	sum := 0.0
	for i, s := range samples {
		prices[i] = s.TotalPrice
		sum += s.TotalPrice
	}
	sort.Float64s(prices)

	return &Aggregate{
		Average: sum / float64(len(prices)),
		Median:  prices[(len(prices)-1)/2],
		Min:     prices[0],
		Max:     prices[len(prices)-1],
		Count:   len(prices),
	}
}
