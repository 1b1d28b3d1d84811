package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// PriceChartingSource queries the PriceCharting products API, which
// covers games and collectibles. Prices come back in cents.
type PriceChartingSource struct {
	http   *resty.Client
	apiKey string
}

type pcProduct struct {
	ID          any    `json:"id"`
	ProductName string `json:"product-name"`
	ConsoleName string `json:"console-name"`
	LoosePrice  any    `json:"loose-price"`
	CIBPrice    any    `json:"cib-price"`
	NewPrice    any    `json:"new-price"`
}

type pcSearchResponse struct {
	Status   string      `json:"status"`
	Products []pcProduct `json:"products"`
}

func NewPriceChartingSource(apiKey string) *PriceChartingSource {
	return &PriceChartingSource{
		http: resty.New().
			SetBaseURL("https://www.pricecharting.com/api").
			SetTimeout(15 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= 500
			}),
		apiKey: apiKey,
	}
}

func (p *PriceChartingSource) Name() string { return "pricecharting" }

// Search maps catalog entries onto samples. Each product contributes
// its loose price (and CIB price when present) as pseudo-sold prices;
// there is no per-sale feed on this API.
func (p *PriceChartingSource) Search(ctx context.Context, query, condition string, limit int) ([]ComparableSample, error) {
	var out pcSearchResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"t": p.apiKey, "q": query, "type": "json"}).
		SetResult(&out).
		Get("/products")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("pricecharting returned %d", resp.StatusCode())
	}

	var samples []ComparableSample
	for _, prod := range out.Products {
		if limit > 0 && len(samples) >= limit {
			break
		}
		id := fmt.Sprintf("%v", prod.ID)
		price := centsToDollars(prod.LoosePrice)
		if condition == "new" {
			price = centsToDollars(prod.NewPrice)
		}
		if price <= 0 {
			continue
		}
		samples = append(samples, ComparableSample{
			Title:      prod.ProductName + " (" + prod.ConsoleName + ")",
			Price:      price,
			TotalPrice: price,
			Condition:  condition,
			URL:        "https://www.pricecharting.com/game/" + id,
			Source:     p.Name(),
		})
	}
	return samples, nil
}

func centsToDollars(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x / 100.0
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f / 100.0
		}
	}
	return 0
}
