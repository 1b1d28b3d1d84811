package scanner

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"flipscan/internal/arbitrage"
	"flipscan/internal/config"
	"flipscan/internal/identify"
	"flipscan/internal/models"
	"flipscan/internal/pricing"
)

// RecheckResult is the outcome of revisiting one tracked opportunity.
type RecheckResult struct {
	OpportunityID uint
	ListingID     string
	Title         string
	OldReference  float64
	NewReference  float64
	OldProfit     float64
	NewProfit     float64
	PriceChanged  bool
	NewStatus     string
	StillViable   bool
}

// RecheckStatus summarizes the tracked opportunity table.
type RecheckStatus struct {
	Total           int64 `json:"total"`
	Active          int64 `json:"active"`
	Expired         int64 `json:"expired"`
	Sold            int64 `json:"sold"`
	CheckedRecently int64 `json:"checked_recently"`
}

// Rechecker revisits active opportunities on a staleness schedule,
// refreshes their comparable prices and retires the ones that stopped
// being profitable. Meant to run twice daily.
type Rechecker struct {
	cfg       *config.Config
	db        *gorm.DB
	prices    pricing.Source
	evaluator *arbitrage.Evaluator
}

func NewRechecker(cfg *config.Config, db *gorm.DB, prices pricing.Source) *Rechecker {
	return &Rechecker{
		cfg:    cfg,
		db:     db,
		prices: prices,
		evaluator: arbitrage.NewEvaluator(
			cfg.MarketplaceFeePercent, cfg.ShippingEstimate,
			cfg.MinProfitDollars, cfg.MinProfitPercent),
	}
}

// Status reports counts for the tracking dashboard.
func (r *Rechecker) Status() (RecheckStatus, error) {
	var st RecheckStatus
	m := r.db.Model(&models.Opportunity{})
	if err := m.Count(&st.Total).Error; err != nil {
		return st, err
	}
	r.db.Model(&models.Opportunity{}).Where("status = ?", models.OpportunityActive).Count(&st.Active)
	r.db.Model(&models.Opportunity{}).Where("status = ?", models.OpportunityExpired).Count(&st.Expired)
	r.db.Model(&models.Opportunity{}).Where("status = ?", models.OpportunitySold).Count(&st.Sold)
	cutoff := time.Now().Add(-time.Duration(r.cfg.RecheckMinHours * float64(time.Hour)))
	r.db.Model(&models.Opportunity{}).Where("last_checked_at >= ?", cutoff).Count(&st.CheckedRecently)
	return st, nil
}

// stale returns active opportunities not checked within the staleness
// window, best profit first.
func (r *Rechecker) stale() ([]models.Opportunity, error) {
	cutoff := time.Now().Add(-time.Duration(r.cfg.RecheckMinHours * float64(time.Hour)))
	var opps []models.Opportunity
	err := r.db.
		Where("status = ? AND last_checked_at < ?", models.OpportunityActive, cutoff).
		Order("profit DESC").
		Limit(r.cfg.RecheckLimit).
		Find(&opps).Error
	return opps, err
}

// Run rechecks every stale opportunity once.
func (r *Rechecker) Run(ctx context.Context) ([]RecheckResult, error) {
	opps, err := r.stale()
	if err != nil {
		return nil, err
	}
	if len(opps) == 0 {
		log.Printf("recheck: nothing stale")
		return nil, nil
	}
	log.Printf("recheck: revisiting %d opportunities", len(opps))

	var results []RecheckResult
	for i := range opps {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res := r.recheckOne(ctx, &opps[i])
		results = append(results, res)
	}
	return results, nil
}

func (r *Rechecker) recheckOne(ctx context.Context, opp *models.Opportunity) RecheckResult {
	res := RecheckResult{
		OpportunityID: opp.ID,
		ListingID:     opp.ListingID,
		Title:         opp.Title,
		OldReference:  opp.ReferencePrice,
		OldProfit:     opp.Profit,
	}

	// The stored term was already verified when the opportunity was
	// flagged, so the refresh trusts it and skips per-sample matching.
	agg := pricing.NewAggregator(r.prices, nil, pricing.Options{
		Condition:            r.cfg.EbayCondition,
		MaxQueries:           1,
		MaxCandidatesPerTerm: r.cfg.MaxCandidatesPerTerm,
		SkipVerification:     true,
	})
	fresh, err := agg.Lookup(ctx, pricing.Request{
		Title: opp.Title,
		Terms: []identify.Result{{SearchTerm: opp.SearchTerm, Source: identify.SourceText}},
	})
	if err != nil || fresh == nil {
		// No comparables this round. Keep the opportunity but note the
		// check so the next pass waits the full window again.
		log.Printf("recheck: no fresh comparables for %s", opp.SearchTerm)
		opp.LastCheckedAt = time.Now()
		r.save(opp)
		res.NewReference = opp.ReferencePrice
		res.NewProfit = opp.Profit
		res.NewStatus = opp.Status
		res.StillViable = true
		return res
	}

	reference := fresh.Reference(r.cfg.UseLowestSoldPrice)
	var pickup *arbitrage.PickupCost
	if opp.PickupKnown {
		pickup = &arbitrage.PickupCost{FuelCost: opp.PickupCost}
	}
	eval := r.evaluator.Evaluate(opp.AskingPrice, reference, pickup)

	res.NewReference = reference
	res.NewProfit = eval.Profit
	res.PriceChanged = reference != opp.ReferencePrice
	res.StillViable = eval.IsOpportunity

	opp.ReferencePrice = reference
	opp.MedianPrice = fresh.Median
	opp.MaxPrice = fresh.Max
	opp.SampleCount = fresh.Count
	opp.NetResale = eval.NetAfterFees
	opp.Profit = eval.Profit
	opp.ProfitPercent = eval.ProfitPercent
	opp.LastCheckedAt = time.Now()
	if !eval.IsOpportunity {
		opp.Status = models.OpportunityExpired
	}
	if err := opp.RecordPrice(reference, time.Now()); err != nil {
		log.Printf("recheck: record price for %s failed: %v", opp.ListingID, err)
	}
	r.save(opp)

	res.NewStatus = opp.Status
	if res.PriceChanged {
		log.Printf("recheck: %s profit $%.2f -> $%.2f", truncateTitle(opp.Title), res.OldProfit, res.NewProfit)
	}
	return res
}

func (r *Rechecker) save(opp *models.Opportunity) {
	if err := r.db.Save(opp).Error; err != nil {
		log.Printf("recheck: save %s failed: %v", opp.ListingID, err)
	}
}

func truncateTitle(s string) string {
	if len(s) > 40 {
		return s[:40]
	}
	return s
}
