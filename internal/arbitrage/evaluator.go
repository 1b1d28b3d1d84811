package arbitrage

import (
	"fmt"
	"math"
)

// Evaluator turns an asking price and a resale reference price into a
// profit decision using the marketplace fee and shipping model.
type Evaluator struct {
	FeePercent       float64 // marketplace final value fee, e.g. 13.25
	ShippingEstimate float64 // flat outbound shipping cost in dollars
	MinProfitDollars float64
	MinProfitPercent float64
}

func NewEvaluator(feePercent, shippingEstimate, minProfitDollars, minProfitPercent float64) *Evaluator {
	return &Evaluator{
		FeePercent:       feePercent,
		ShippingEstimate: shippingEstimate,
		MinProfitDollars: minProfitDollars,
		MinProfitPercent: minProfitPercent,
	}
}

// Evaluation is the full cost and margin breakdown for one listing.
type Evaluation struct {
	AskingPrice    float64
	ReferencePrice float64
	PickupCost     float64
	PickupKnown    bool
	NetAfterFees   float64
	TotalCost      float64
	Profit         float64
	ProfitPercent  float64
	IsOpportunity  bool
}

func (e Evaluation) String() string {
	verdict := "pass"
	if e.IsOpportunity {
		verdict = "OPPORTUNITY"
	}
	return fmt.Sprintf("%s: profit $%.2f (%.1f%%) on $%.2f ask vs $%.2f ref",
		verdict, e.Profit, e.ProfitPercent, e.AskingPrice, e.ReferencePrice)
}

// Evaluate computes the profit decision for a listing. pickup may be nil,
// which marks the pickup leg as unknown; the cost is then excluded from
// the arithmetic but PickupKnown is false so downstream consumers can
// surface the caveat instead of treating the trip as free.
func (ev *Evaluator) Evaluate(askingPrice, referencePrice float64, pickup *PickupCost) Evaluation {
	result := Evaluation{
		AskingPrice:    askingPrice,
		ReferencePrice: referencePrice,
	}
	if pickup != nil {
		result.PickupCost = pickup.FuelCost
		result.PickupKnown = true
	}

	fees := referencePrice * (ev.FeePercent / 100)
	result.NetAfterFees = round2(referencePrice - fees - ev.ShippingEstimate)
	result.TotalCost = round2(askingPrice + result.PickupCost)
	result.Profit = round2(result.NetAfterFees - result.TotalCost)

	if result.TotalCost > 0 {
		result.ProfitPercent = round1(result.Profit / result.TotalCost * 100)
	}

	// Either threshold alone qualifies: high-value low-margin deals clear
	// the dollar bar, cheap flips clear the percent bar.
	result.IsOpportunity = result.Profit >= ev.MinProfitDollars ||
		result.ProfitPercent >= ev.MinProfitPercent
	return result
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
