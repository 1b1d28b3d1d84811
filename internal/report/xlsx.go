package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var xlsxHeaders = []string{
	"Listing ID", "Title", "Asking Price", "Identified As", "Source",
	"Reference Price", "Median Price", "Comps", "Match Confidence",
	"Pickup Cost", "Profit", "Profit %", "Status", "Location", "URL",
}

// WriteXLSX exports the full item table to an Excel workbook for offline
// review. One row per analyzed listing, opportunities first.
func (r *Report) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Scan"
	f.SetSheetName("Sheet1", sheet)

	for col, h := range xlsxHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	items := r.TopOpportunities()
	for _, it := range r.Items {
		if !it.IsOpportunity {
			items = append(items, it)
		}
	}

	for row, it := range items {
		pickup := any(it.PickupCost)
		if !it.PickupKnown {
			pickup = "unknown"
		}
		values := []any{
			it.ListingID, it.Title, it.AskingPrice, it.IdentifiedAs, it.IdentifySource,
			it.ReferencePrice, it.MedianPrice, it.SampleCount, it.MatchConfidence,
			pickup, it.Profit, it.ProfitPercent, it.Status, it.Location, it.URL,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "D", "D", 30); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report workbook: %w", err)
	}
	return nil
}
