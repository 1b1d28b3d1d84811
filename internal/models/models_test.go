package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordPriceAppendsObservations(t *testing.T) {
	opp := &Opportunity{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, opp.RecordPrice(180, base))
	require.NoError(t, opp.RecordPrice(175, base.Add(12*time.Hour)))

	h := opp.History()
	require.Len(t, h, 2)
	require.Equal(t, 180.0, h[0].Price)
	require.Equal(t, 175.0, h[1].Price)
	require.True(t, h[1].SeenAt.After(h[0].SeenAt))
}

func TestRecordPriceEvictsOldestAtCap(t *testing.T) {
	opp := &Opportunity{}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxPriceHistory+5; i++ {
		require.NoError(t, opp.RecordPrice(float64(100+i), base.Add(time.Duration(i)*time.Hour)))
	}

	h := opp.History()
	require.Len(t, h, MaxPriceHistory)
	// The five oldest observations were evicted.
	require.Equal(t, 105.0, h[0].Price)
	require.Equal(t, float64(100+MaxPriceHistory+4), h[len(h)-1].Price)
}

func TestHistorySurvivesRoundTrip(t *testing.T) {
	opp := &Opportunity{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, opp.RecordPrice(42.50, at))

	// History is stored as JSON in a text column; decode it fresh from
	// the serialized form as a reload from the database would.
	reloaded := &Opportunity{PriceHistory: opp.PriceHistory}
	h := reloaded.History()
	require.Len(t, h, 1)
	require.Equal(t, 42.50, h[0].Price)
	require.True(t, at.Equal(h[0].SeenAt))
}

func TestHistoryToleratesCorruptLog(t *testing.T) {
	opp := &Opportunity{PriceHistory: "{not json"}
	require.Nil(t, opp.History())

	// A corrupt log is overwritten by the next observation.
	require.NoError(t, opp.RecordPrice(99, time.Now()))
	require.Len(t, opp.History(), 1)
}
