package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"flipscan/internal/identify"
	"flipscan/internal/match"
)

// fakeSource returns canned samples per query and counts calls.
type fakeSource struct {
	byQuery map[string][]ComparableSample
	calls   int
	err     error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(ctx context.Context, query, condition string, limit int) ([]ComparableSample, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuery[query], nil
}

// acceptAll matches everything; rejectAll nothing.
type fixedVerifier struct {
	verdict match.Verdict
	calls   int
}

func (v *fixedVerifier) Compare(ctx context.Context, local, sold match.Candidate) match.Verdict {
	v.calls++
	return v.verdict
}

func sample(url string, total float64) ComparableSample {
	return ComparableSample{Title: "item", URL: url, Price: total, TotalPrice: total}
}

func terms(source string, ts ...string) []identify.Result {
	var out []identify.Result
	for _, t := range ts {
		out = append(out, identify.Result{SearchTerm: t, Source: source})
	}
	return out
}

func TestLookupAggregatesVerifiedSamples(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]ComparableSample{
		"switch oled": {sample("u1", 200), sample("u2", 180), sample("u3", 260), sample("u4", 220)},
	}}
	v := &fixedVerifier{verdict: match.Verdict{IsMatch: true, Confidence: 0.9}}
	agg := NewAggregator(src, v, Options{MaxQueries: 3, MaxCandidatesPerTerm: 5})

	res, err := agg.Lookup(context.Background(), Request{
		Title: "Nintendo Switch OLED",
		Terms: terms(identify.SourceText, "switch oled"),
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 4, res.Count)
	require.Equal(t, 180.0, res.Min)
	require.Equal(t, 260.0, res.Max)
	// Even count takes the lower-middle element.
	require.Equal(t, 200.0, res.Median)
	require.InDelta(t, 215.0, res.Average, 0.001)
	require.True(t, res.Min <= res.Median && res.Median <= res.Max)
}

func TestLookupIsIdempotent(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]ComparableSample{
		"q": {sample("u1", 100), sample("u2", 150), sample("u3", 120)},
	}}
	v := &fixedVerifier{verdict: match.Verdict{IsMatch: true}}
	agg := NewAggregator(src, v, Options{})

	req := Request{Title: "x", Terms: terms(identify.SourceText, "q")}
	first, err := agg.Lookup(context.Background(), req)
	require.NoError(t, err)
	second, err := agg.Lookup(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLookupDedupesByURLAcrossTerms(t *testing.T) {
	shared := sample("same-url", 100)
	src := &fakeSource{byQuery: map[string][]ComparableSample{
		"a": {shared, sample("u2", 140)},
		"b": {shared, sample("u3", 160)},
	}}
	v := &fixedVerifier{verdict: match.Verdict{IsMatch: true}}
	agg := NewAggregator(src, v, Options{})

	res, err := agg.Lookup(context.Background(), Request{
		Title: "x", Terms: terms(identify.SourceText, "a", "b"),
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
}

func TestLookupNoSurvivorsMeansNoResult(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]ComparableSample{
		"q": {sample("u1", 100), sample("u2", 200)},
	}}
	v := &fixedVerifier{verdict: match.Verdict{IsMatch: false}}
	agg := NewAggregator(src, v, Options{})

	res, err := agg.Lookup(context.Background(), Request{
		Title: "x", Terms: terms(identify.SourceText, "q"),
	})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestLookupSkipsVerificationForImageTerms(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]ComparableSample{
		"q": {sample("u1", 100)},
	}}
	v := &fixedVerifier{verdict: match.Verdict{IsMatch: false}}
	agg := NewAggregator(src, v, Options{})

	res, err := agg.Lookup(context.Background(), Request{
		Title: "x", Terms: terms(identify.SourceImage, "q"),
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 1, res.Count)
	require.Zero(t, v.calls)
}

func TestLookupEmptyRetrievalMeansNoResult(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]ComparableSample{}}
	agg := NewAggregator(src, &fixedVerifier{}, Options{})

	res, err := agg.Lookup(context.Background(), Request{
		Title: "x", Terms: terms(identify.SourceText, "q"),
	})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestLookupSurvivesTransportError(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	agg := NewAggregator(src, &fixedVerifier{}, Options{})

	res, err := agg.Lookup(context.Background(), Request{
		Title: "x", Terms: terms(identify.SourceText, "q"),
	})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestLookupRespectsMaxQueries(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]ComparableSample{}}
	agg := NewAggregator(src, nil, Options{MaxQueries: 2})

	agg.Lookup(context.Background(), Request{
		Title: "x", Terms: terms(identify.SourceText, "a", "b", "c", "d"),
	})
	require.Equal(t, 2, src.calls)
}

func TestLookupReportsVerdicts(t *testing.T) {
	src := &fakeSource{byQuery: map[string][]ComparableSample{
		"q": {sample("u1", 100), sample("u2", 200)},
	}}
	v := &fixedVerifier{verdict: match.Verdict{IsMatch: true, Confidence: 0.8}}

	var seen []string
	agg := NewAggregator(src, v, Options{
		OnVerdict: func(s ComparableSample, verdict match.Verdict) {
			seen = append(seen, s.URL)
		},
	})
	_, err := agg.Lookup(context.Background(), Request{
		Title: "x", Terms: terms(identify.SourceText, "q"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u2"}, seen)
}

func TestReferencePrefersMin(t *testing.T) {
	a := &Aggregate{Average: 150, Min: 100}
	require.Equal(t, 100.0, a.Reference(true))
	require.Equal(t, 150.0, a.Reference(false))
}

func TestBuildSoldURL(t *testing.T) {
	e := NewEbaySource()
	u := e.BuildSoldURL("nintendo switch", "used")
	require.Contains(t, u, "_nkw=nintendo+switch")
	require.Contains(t, u, "LH_Sold=1")
	require.Contains(t, u, "LH_Complete=1")
	require.Contains(t, u, "LH_ItemCondition=3000")

	require.NotContains(t, e.BuildSoldURL("x", "any"), "LH_ItemCondition")
	require.Contains(t, e.BuildSoldURL("x", "new"), "LH_ItemCondition=1000")
}
