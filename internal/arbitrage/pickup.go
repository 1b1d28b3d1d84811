package arbitrage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"gorm.io/gorm"

	"flipscan/internal/models"
)

// DefaultGasPrice is the national average fallback, updated periodically.
const DefaultGasPrice = 3.25

// gasCacheTTL bounds how long a persisted gas price lookup stays usable.
const gasCacheTTL = 12 * time.Hour

var distancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*miles?\s*away`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mi\b`),
	regexp.MustCompile(`·\s*(\d+(?:\.\d+)?)\s*miles?`),
}

// ParseDistance extracts a one-way distance in miles from a marketplace
// location string like "Pittsburgh, PA · 12 miles away". The second return
// value reports whether a distance was present at all; callers must treat
// a missing distance as unknown, never as zero.
func ParseDistance(location string) (float64, bool) {
	if location == "" {
		return 0, false
	}
	loc := strings.ToLower(location)
	for _, re := range distancePatterns {
		if m := re.FindStringSubmatch(loc); m != nil {
			miles, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return miles, true
			}
		}
	}
	return 0, false
}

// PickupCost is the fuel expense breakdown for a round-trip pickup.
type PickupCost struct {
	DistanceMiles  float64 `json:"distance_miles"` // one-way
	RoundTripMiles float64 `json:"round_trip_miles"`
	GasPrice       float64 `json:"gas_price"`
	VehicleMPG     float64 `json:"vehicle_mpg"`
	GallonsNeeded  float64 `json:"gallons_needed"`
	FuelCost       float64 `json:"fuel_cost"`
	GasPriceSource string  `json:"gas_price_source"` // override, api, default
}

func (p PickupCost) String() string {
	return fmt.Sprintf("$%.2f (%.1fmi @ $%.2f/gal)", p.FuelCost, p.RoundTripMiles, p.GasPrice)
}

// PickupCalculator estimates the fuel cost to drive out and collect an item.
// Gas prices come from GasBuddy, then the AAA averages endpoint, then the
// national average fallback. Lookups are cached for the process lifetime.
type PickupCalculator struct {
	VehicleMPG       float64
	GasPriceOverride float64
	ZipCode          string

	http *resty.Client
	db   *gorm.DB

	mu          sync.Mutex
	cachedPrice float64
	cachedFrom  string
}

func NewPickupCalculator(vehicleMPG, gasPriceOverride float64, zipCode string) *PickupCalculator {
	return &PickupCalculator{
		VehicleMPG:       vehicleMPG,
		GasPriceOverride: gasPriceOverride,
		ZipCode:          zipCode,
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
	}
}

// WithCache attaches a database so fetched gas prices survive restarts.
func (c *PickupCalculator) WithCache(db *gorm.DB) *PickupCalculator {
	c.db = db
	return c
}

// GasPrice returns the price per gallon and where it came from.
func (c *PickupCalculator) GasPrice(ctx context.Context) (float64, string) {
	if c.GasPriceOverride > 0 {
		return c.GasPriceOverride, "override"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedPrice > 0 {
		return c.cachedPrice, c.cachedFrom
	}

	if price, ok := c.storedGasPrice(); ok {
		c.cachedPrice = price
		c.cachedFrom = "api"
		return price, "api"
	}

	if price, ok := c.fetchGasPrice(ctx); ok {
		c.cachedPrice = price
		c.cachedFrom = "api"
		c.storeGasPrice(price, "api")
		return price, "api"
	}
	return DefaultGasPrice, "default"
}

// storedGasPrice reads the newest persisted lookup for the zip code,
// rejecting anything older than the TTL.
func (c *PickupCalculator) storedGasPrice() (float64, bool) {
	if c.db == nil {
		return 0, false
	}
	var row models.GasPriceCache
	err := c.db.Where("zip_code = ?", c.ZipCode).
		Order("fetched_at DESC").First(&row).Error
	if err != nil || !gasCacheUsable(row, time.Now()) {
		return 0, false
	}
	return row.Price, true
}

func (c *PickupCalculator) storeGasPrice(price float64, source string) {
	if c.db == nil {
		return
	}
	row := models.GasPriceCache{
		ZipCode:   c.ZipCode,
		Price:     price,
		Source:    source,
		FetchedAt: time.Now(),
	}
	if err := c.db.Create(&row).Error; err != nil {
		log.Printf("arbitrage: gas price cache write failed: %v", err)
	}
}

func gasCacheUsable(row models.GasPriceCache, now time.Time) bool {
	return row.Price > 0 && now.Sub(row.FetchedAt) <= gasCacheTTL
}

var gasPriceRe = regexp.MustCompile(`\$(\d+\.\d{2,3})`)

func (c *PickupCalculator) fetchGasPrice(ctx context.Context) (float64, bool) {
	if c.ZipCode != "" {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"search": c.ZipCode, "fuel": "1"}).
			Get("https://www.gasbuddy.com/home")
		if err == nil && resp.StatusCode() == 200 {
			if m := gasPriceRe.FindStringSubmatch(string(resp.Body())); m != nil {
				price, err := strconv.ParseFloat(m[1], 64)
				// Sanity range to reject ad prices and totals.
				if err == nil && price > 1.50 && price < 8.00 {
					return price, true
				}
			}
		}
	}

	resp, err := c.http.R().SetContext(ctx).
		Get("https://gasprices.aaa.com/wp-json/aaa-gas-prices/v1/averages")
	if err != nil || resp.StatusCode() != 200 {
		if err != nil {
			log.Printf("arbitrage: gas price lookup failed: %v", err)
		}
		return 0, false
	}
	var payload struct {
		National struct {
			Regular float64 `json:"regular"`
		} `json:"national"`
	}
	if json.Unmarshal(resp.Body(), &payload) != nil || payload.National.Regular <= 0 {
		return 0, false
	}
	return payload.National.Regular, true
}

// Calculate computes the round-trip fuel cost for a listing location.
// It returns nil when no distance can be parsed from the location; a nil
// result means the pickup cost is unknown, which is different from free.
func (c *PickupCalculator) Calculate(ctx context.Context, location string) *PickupCost {
	miles, ok := ParseDistance(location)
	if !ok {
		return nil
	}
	return c.CalculateForDistance(ctx, miles)
}

// CalculateForDistance computes the round-trip fuel cost for a known
// one-way distance in miles.
func (c *PickupCalculator) CalculateForDistance(ctx context.Context, oneWayMiles float64) *PickupCost {
	if c.VehicleMPG <= 0 {
		return nil
	}
	price, source := c.GasPrice(ctx)
	roundTrip := oneWayMiles * 2
	gallons := roundTrip / c.VehicleMPG
	return &PickupCost{
		DistanceMiles:  oneWayMiles,
		RoundTripMiles: roundTrip,
		GasPrice:       price,
		VehicleMPG:     c.VehicleMPG,
		GallonsNeeded:  gallons,
		FuelCost:       gallons * price,
		GasPriceSource: source,
	}
}
