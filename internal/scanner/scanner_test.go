package scanner

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"flipscan/internal/config"
	"flipscan/internal/identify"
	"flipscan/internal/llm"
	"flipscan/internal/match"
	"flipscan/internal/pricing"
	"flipscan/internal/report"
	"flipscan/internal/scrape"
)

type fakeListings struct {
	byQuery map[string][]scrape.Listing
	queries []string
}

func (f *fakeListings) Search(ctx context.Context, query string) ([]scrape.Listing, error) {
	f.queries = append(f.queries, query)
	return f.byQuery[query], nil
}

func (f *fakeListings) FetchDetail(ctx context.Context, l *scrape.Listing) error { return nil }

type fakeComps struct {
	byTerm map[string][]pricing.ComparableSample
	terms  []string
}

func (f *fakeComps) Name() string { return "fake" }

func (f *fakeComps) Search(ctx context.Context, query, condition string, limit int) ([]pricing.ComparableSample, error) {
	f.terms = append(f.terms, query)
	return f.byTerm[query], nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Categories:            []string{"nintendo"},
		ZipCode:               "15213",
		RadiusMiles:           25,
		MinProfitDollars:      30,
		MinProfitPercent:      20,
		MarketplaceFeePercent: 13.25,
		ShippingEstimate:      15,
		UseLowestSoldPrice:    true,
		EbayCondition:         "used",
		MaxSearchQueries:      3,
		MaxCandidatesPerTerm:  5,
		MaxListingsPerScan:    50,
		InitialBatchSize:      10,
		BatchExtendBy:         25,
		TextModel:             "qwen2.5",
	}
}

// identifyClient wires the cascade so that a known title synthesizes to a
// specific term and everything else falls through to a drop.
func identifyClient() *llm.FakeClient {
	return llm.NewFakeClient().
		Respond("MULTIPLE DISTINCT ITEMS", "MULTI_ITEM: NO").
		Respond("LISTING TITLE: Nintendo Switch OLED White", "Nintendo Switch OLED").
		Respond(`TERM: "Nintendo Switch OLED"`, "YES\nREASON: Nintendo product line").
		Respond("LISTING TITLE: Acme Widget A", "Acme Widget A").
		Respond(`TERM: "Acme Widget A"`, "YES\nREASON: branded widget")
}

func matchClient() *llm.FakeClient {
	f := llm.NewFakeClient()
	f.Default = "LOCAL_ITEM: item\nSOLD_ITEM: item\nPROBABILITY: 90\nREASONING: same product"
	return f
}

func comps(prices ...float64) []pricing.ComparableSample {
	var out []pricing.ComparableSample
	for i, p := range prices {
		out = append(out, pricing.ComparableSample{
			Title:      "Nintendo Switch OLED",
			Price:      p,
			TotalPrice: p,
			URL:        string(rune('a'+i)) + "-url",
		})
	}
	return out
}

func newTestScanner(cfg *config.Config, listings *fakeListings, prices *fakeComps, sink EventSink) *Scanner {
	return New(cfg, Deps{
		Source:     listings,
		Identifier: identify.NewGenerator(identifyClient(), nil),
		Prices:     prices,
		Verifier:   match.NewVerifier(matchClient(), 0.6),
		Notifier:   nil,
		Events:     sink,
	})
}

func TestRunScanFlagsOpportunity(t *testing.T) {
	listings := &fakeListings{byQuery: map[string][]scrape.Listing{
		"nintendo": {
			{ListingID: "l1", Title: "Nintendo Switch OLED White", Price: 180,
				Location: "Pittsburgh, PA", AgeDays: 1},
			{ListingID: "l2", Title: "Nintendo Switch ships fast", Price: 150,
				Location: "Ships to you", AgeDays: 1},
		},
	}}
	prices := &fakeComps{byTerm: map[string][]pricing.ComparableSample{
		"Nintendo Switch OLED": comps(300, 320, 340),
	}}
	sink := &recordingSink{}

	s := newTestScanner(testConfig(), listings, prices, sink)
	rep, err := s.RunScan(context.Background())
	require.NoError(t, err)

	// The shipped listing is filtered before analysis.
	require.Equal(t, 1, rep.TotalListings)
	require.Equal(t, 1, rep.Opportunities)

	opps := rep.TopOpportunities()
	require.Len(t, opps, 1)
	require.Equal(t, "l1", opps[0].ListingID)
	require.Equal(t, "Nintendo Switch OLED", opps[0].IdentifiedAs)
	require.Equal(t, 300.0, opps[0].ReferencePrice)
	// 300 * 0.8675 - 15 = 245.25 net, minus 180 ask.
	require.InDelta(t, 65.25, opps[0].Profit, 0.01)
	require.False(t, opps[0].PickupKnown)

	require.Contains(t, sink.types(), "scan_started")
	require.Contains(t, sink.types(), "opportunity")
	require.Contains(t, sink.types(), "scan_finished")
}

func TestRunScanAnalyzesCheapestFirst(t *testing.T) {
	listings := &fakeListings{byQuery: map[string][]scrape.Listing{
		"nintendo": {
			{ListingID: "dear", Title: "Nintendo Switch OLED White", Price: 400, AgeDays: 1},
			{ListingID: "cheap", Title: "Nintendo Switch OLED White", Price: 180, AgeDays: 1},
		},
	}}
	prices := &fakeComps{byTerm: map[string][]pricing.ComparableSample{
		"Nintendo Switch OLED": comps(300, 320),
	}}
	cfg := testConfig()
	cfg.InitialBatchSize = 1

	s := newTestScanner(cfg, listings, prices, nil)
	rep, err := s.RunScan(context.Background())
	require.NoError(t, err)

	// The cheaper listing is analyzed in the first batch, flags an
	// opportunity and stops the scan before the expensive one, which is
	// reported as skipped.
	require.Equal(t, 2, rep.TotalListings)
	require.Equal(t, "cheap", rep.Items[0].ListingID)
	require.Equal(t, report.StatusOpportunity, rep.Items[0].Status)
	require.Equal(t, report.StatusSkipped, rep.Items[1].Status)
}

func TestRunScanAdaptiveBatchExtends(t *testing.T) {
	listings := &fakeListings{byQuery: map[string][]scrape.Listing{
		"nintendo": {
			{ListingID: "dud", Title: "Acme Widget A", Price: 5, AgeDays: 1},
			{ListingID: "hit", Title: "Nintendo Switch OLED White", Price: 180, AgeDays: 1},
			{ListingID: "never", Title: "Nintendo Switch OLED White", Price: 200, AgeDays: 1},
		},
	}}
	prices := &fakeComps{byTerm: map[string][]pricing.ComparableSample{
		"Nintendo Switch OLED": comps(300, 320),
		// "Acme Widget A" has no comparables at all.
	}}
	cfg := testConfig()
	cfg.InitialBatchSize = 1
	cfg.BatchExtendBy = 1

	s := newTestScanner(cfg, listings, prices, nil)
	rep, err := s.RunScan(context.Background())
	require.NoError(t, err)

	// First batch finds nothing, the batch extends, the second listing
	// hits, and the third is recorded as skipped without being analyzed.
	require.Equal(t, 3, rep.TotalListings)
	require.Equal(t, 1, rep.Opportunities)
	require.Equal(t, 1, rep.Skipped)
	require.Equal(t, report.StatusNoMatch, rep.Items[0].Status)
	require.Equal(t, report.StatusOpportunity, rep.Items[1].Status)
	require.Equal(t, report.StatusSkipped, rep.Items[2].Status)
	require.Equal(t, "never", rep.Items[2].ListingID)
}

func TestRunScanEmptyMarketIsNotAnError(t *testing.T) {
	listings := &fakeListings{byQuery: map[string][]scrape.Listing{}}
	sink := &recordingSink{}

	s := newTestScanner(testConfig(), listings, &fakeComps{}, sink)
	rep, err := s.RunScan(context.Background())

	// A market with nothing for sale is an empty report, not a failure.
	require.NoError(t, err)
	require.Equal(t, 0, rep.TotalListings)
	require.Empty(t, rep.Errors)
	require.Contains(t, sink.types(), "scan_finished")
}

func TestRunScanDropsUnidentifiable(t *testing.T) {
	listings := &fakeListings{byQuery: map[string][]scrape.Listing{
		"nintendo": {
			{ListingID: "vague", Title: "Box of misc stuff", Price: 10, AgeDays: 1},
		},
	}}
	s := newTestScanner(testConfig(), listings, &fakeComps{}, nil)
	rep, err := s.RunScan(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, rep.TotalListings)
	require.Equal(t, 1, rep.Dropped)
	require.Equal(t, report.StatusDropped, rep.Items[0].Status)
	require.Empty(t, referencePrices(rep))
}

func referencePrices(rep *report.Report) []float64 {
	var out []float64
	for _, it := range rep.Items {
		if it.ReferencePrice > 0 {
			out = append(out, it.ReferencePrice)
		}
	}
	return out
}

func TestSearchQueriesDedup(t *testing.T) {
	cfg := testConfig()
	cfg.Categories = []string{"nintendo", "nintendo", "ps5"}
	s := New(cfg, Deps{})
	got := s.searchQueries(context.Background())
	require.Equal(t, []string{"nintendo", "ps5"}, got)
}
