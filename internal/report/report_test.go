package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *Report {
	r := New([]string{"nintendo switch"}, "15213", 25)
	r.Add(Item{
		ListingID: "1", Title: "Switch OLED", AskingPrice: 180,
		IdentifiedAs: "nintendo switch oled", ReferencePrice: 280, SampleCount: 5,
		Profit: 52.90, ProfitPercent: 29.4, IsOpportunity: true,
		PickupKnown: true, PickupCost: 4.20, Status: StatusOpportunity,
	})
	r.Add(Item{
		ListingID: "2", Title: "Old TV", AskingPrice: 60,
		IdentifiedAs: "samsung tv", ReferencePrice: 70, SampleCount: 3,
		Profit: -10, Status: StatusMatched,
	})
	r.Add(Item{
		ListingID: "3", Title: "Misc box of stuff", AskingPrice: 10,
		DropReason: "too vague", Status: StatusDropped,
	})
	r.Add(Item{
		ListingID: "4", Title: "Big profit no distance", AskingPrice: 100,
		IdentifiedAs: "herman miller aeron", ReferencePrice: 400, SampleCount: 4,
		Profit: 230, ProfitPercent: 200, IsOpportunity: true,
		PickupKnown: false, Status: StatusOpportunity,
	})
	return r
}

func TestAddUpdatesCounts(t *testing.T) {
	r := sampleReport()
	require.Equal(t, 4, r.TotalListings)
	require.Equal(t, 3, r.Identified)
	require.Equal(t, 3, r.Matched)
	require.Equal(t, 2, r.Opportunities)
	require.Equal(t, 1, r.Dropped)
}

func TestAddCountsSkippedListings(t *testing.T) {
	r := sampleReport()
	r.Add(Item{ListingID: "5", Title: "Never analyzed", Status: StatusSkipped})

	require.Equal(t, 5, r.TotalListings)
	require.Equal(t, 1, r.Skipped)
	// Skipped listings stay out of the match and opportunity counts.
	require.Equal(t, 3, r.Matched)
	require.Equal(t, 2, r.Opportunities)
	require.Contains(t, r.Summary(), "Skipped: 1")
}

func TestTopOpportunitiesSortedByProfit(t *testing.T) {
	opps := sampleReport().TopOpportunities()
	require.Len(t, opps, 2)
	require.Equal(t, "4", opps[0].ListingID)
	require.Equal(t, "1", opps[1].ListingID)
}

func TestSummaryMentionsUnknownPickup(t *testing.T) {
	s := sampleReport().Summary()
	require.Contains(t, s, "TOP OPPORTUNITIES")
	require.Contains(t, s, "Pickup cost unknown")
	require.Contains(t, s, "Opportunities: 2")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.xlsx")
	require.NoError(t, sampleReport().WriteXLSX(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Scan")
	require.NoError(t, err)
	require.Len(t, rows, 5) // header + 4 items

	require.Equal(t, xlsxHeaders, rows[0][:len(xlsxHeaders)])
	// Opportunities come first, best profit on top.
	require.Equal(t, "4", rows[1][0])
	require.True(t, strings.Contains(strings.Join(rows[1], " "), "unknown"))
	require.Equal(t, "1", rows[2][0])
}
