package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Listing is a marketplace listing captured by the scraper.
type Listing struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ListingID   string         `json:"listing_id" gorm:"unique;not null"`
	Title       string         `json:"title" gorm:"not null"`
	Price       float64        `json:"price"`
	Location    string         `json:"location"`
	URL         string         `json:"url"`
	ImageURL    string         `json:"image_url"`
	Description string         `json:"description"`
	Condition   string         `json:"condition"`
	SellerName  string         `json:"seller_name"`
	PostedDate  string         `json:"posted_date"`
	IsPending   bool           `json:"is_pending"`
	IsShipped   bool           `json:"is_shipped"`
	Source      string         `json:"source" gorm:"default:'facebook'"`
	ScrapedAt   time.Time      `json:"scraped_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// Identification is the persisted outcome of the identification pipeline
// for one listing. One row per attempt, keyed by listing.
type Identification struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ListingID    string    `json:"listing_id" gorm:"index;not null"`
	SearchTerm   string    `json:"search_term"`
	Source       string    `json:"source"` // image, text, text+image
	Specific     bool      `json:"specific"`
	MultiItem    bool      `json:"multi_item"`
	Items        string    `json:"items"`         // JSON array of decomposed item terms
	RawResponses string    `json:"raw_responses"` // JSON map of per-tier model outputs
	FailReason   string    `json:"fail_reason"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
}

// ComparableListing is a sold listing fetched from a resale marketplace,
// cached so rechecks do not refetch the same comparables.
type ComparableListing struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SearchTerm string    `json:"search_term" gorm:"index;not null"`
	Title      string    `json:"title" gorm:"not null"`
	Price      float64   `json:"price"`
	Shipping   float64   `json:"shipping"`
	TotalPrice float64   `json:"total_price"`
	Condition  string    `json:"condition"`
	SoldDate   string    `json:"sold_date"`
	URL        string    `json:"url" gorm:"index"`
	ImageURL   string    `json:"image_url"`
	Source     string    `json:"source" gorm:"default:'ebay'"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchRecord stores one match verification verdict for auditing.
type MatchRecord struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ListingID     string    `json:"listing_id" gorm:"index;not null"`
	ComparableURL string    `json:"comparable_url"`
	SearchTerm    string    `json:"search_term"`
	IsMatch       bool      `json:"is_match"`
	Confidence    float64   `json:"confidence"`
	Reason        string    `json:"reason"`
	Method        string    `json:"method"` // llm, overlap, skipped
	CreatedAt     time.Time `json:"created_at"`
}

// Opportunity statuses.
const (
	OpportunityActive    = "active"
	OpportunitySold      = "sold"
	OpportunityRemoved   = "removed"
	OpportunityExpired   = "expired"
	OpportunityPurchased = "purchased"
	OpportunityIgnored   = "ignored"
)

// MaxPriceHistory caps the per-opportunity price log so long-lived rows
// cannot grow without bound.
const MaxPriceHistory = 60

// PriceObservation is one entry in an opportunity's price history.
type PriceObservation struct {
	Price  float64   `json:"price"`
	SeenAt time.Time `json:"seen_at"`
}

// Opportunity is a listing that cleared the profit thresholds.
type Opportunity struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	ListingID      string         `json:"listing_id" gorm:"unique;not null"`
	Title          string         `json:"title"`
	SearchTerm     string         `json:"search_term"`
	AskingPrice    float64        `json:"asking_price"`
	PickupCost     float64        `json:"pickup_cost"`
	PickupKnown    bool           `json:"pickup_known"`
	TotalCost      float64        `json:"total_cost"`
	ReferencePrice float64        `json:"reference_price"`
	MedianPrice    float64        `json:"median_price"`
	MaxPrice       float64        `json:"max_price"`
	SampleCount    int            `json:"sample_count"`
	NetResale      float64        `json:"net_resale"`
	Profit         float64        `json:"profit"`
	ProfitPercent  float64        `json:"profit_percent"`
	PriceSource    string         `json:"price_source"`
	URL            string         `json:"url"`
	ImageURL       string         `json:"image_url"`
	Location       string         `json:"location"`
	Status         string         `json:"status" gorm:"default:'active';index"`
	Notified       bool           `json:"notified"`
	PriceHistory   string         `json:"price_history" gorm:"type:text"` // JSON, capped
	LastCheckedAt  time.Time      `json:"last_checked_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

// History decodes the price history log. A corrupt log decodes as empty
// rather than failing the caller.
func (o *Opportunity) History() []PriceObservation {
	if o.PriceHistory == "" {
		return nil
	}
	var h []PriceObservation
	if err := json.Unmarshal([]byte(o.PriceHistory), &h); err != nil {
		return nil
	}
	return h
}

// RecordPrice appends an observation to the history, dropping the oldest
// entries once the cap is reached.
func (o *Opportunity) RecordPrice(price float64, at time.Time) error {
	h := append(o.History(), PriceObservation{Price: price, SeenAt: at})
	if len(h) > MaxPriceHistory {
		h = h[len(h)-MaxPriceHistory:]
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	o.PriceHistory = string(raw)
	return nil
}

// GasPriceCache holds the most recent regional gas price lookup so the
// pickup cost estimator does not hit the upstream API every listing.
type GasPriceCache struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ZipCode   string    `json:"zip_code" gorm:"index"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"` // override, api, default
	FetchedAt time.Time `json:"fetched_at"`
}
