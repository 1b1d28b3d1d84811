package pricing

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// EbaySource scrapes eBay sold-listing search results. Sold pages are
// server-rendered, so a plain collector is enough.
type EbaySource struct {
	userAgent string
}

func NewEbaySource() *EbaySource {
	return &EbaySource{
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

func (e *EbaySource) Name() string { return "ebay" }

// BuildSoldURL composes the sold/completed search URL. Condition maps
// to eBay's numeric condition codes; "any" applies no filter.
func (e *EbaySource) BuildSoldURL(query, condition string) string {
	u := fmt.Sprintf("https://www.ebay.com/sch/i.html?_nkw=%s&LH_Complete=1&LH_Sold=1&_sop=13",
		url.QueryEscape(query))
	switch condition {
	case "used":
		u += "&LH_ItemCondition=3000"
	case "new":
		u += "&LH_ItemCondition=1000"
	}
	return u
}

var (
	soldPriceRe    = regexp.MustCompile(`\$([\d,]+(?:\.\d{2})?)`)
	shippingFreeRe = regexp.MustCompile(`(?i)free\s+(shipping|delivery)`)
)

// Search fetches sold listings for one query. Blocked or empty pages
// return an empty slice, not an error.
func (e *EbaySource) Search(ctx context.Context, query, condition string, limit int) ([]ComparableSample, error) {
	c := colly.NewCollector(
		colly.AllowedDomains("www.ebay.com", "ebay.com"),
		colly.UserAgent(e.userAgent),
		colly.MaxDepth(1),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(30 * time.Second)
	c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: 2 * time.Second, RandomDelay: 2 * time.Second})

	var samples []ComparableSample
	c.OnHTML("li.s-item, div.s-item", func(item *colly.HTMLElement) {
		if limit > 0 && len(samples) >= limit {
			return
		}
		if s, ok := e.parseItem(item.DOM); ok {
			s.Source = e.Name()
			samples = append(samples, s)
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// One retry covers transient blocks and timeouts.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = c.Visit(e.BuildSoldURL(query, condition)); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ebay search %q: %w", query, err)
	}
	c.Wait()
	return samples, nil
}

func (e *EbaySource) parseItem(item *goquery.Selection) (ComparableSample, bool) {
	title := strings.TrimSpace(item.Find(".s-item__title").First().Text())
	title = strings.TrimPrefix(title, "New Listing")
	if title == "" || strings.EqualFold(title, "Shop on eBay") {
		return ComparableSample{}, false
	}

	priceText := item.Find(".s-item__price").First().Text()
	price, ok := parseDollars(priceText)
	if !ok {
		return ComparableSample{}, false
	}

	shipping := 0.0
	shipText := item.Find(".s-item__shipping, .s-item__freeXDays").First().Text()
	if shipText != "" && !shippingFreeRe.MatchString(shipText) {
		if v, ok := parseDollars(shipText); ok {
			shipping = v
		}
	}

	link, _ := item.Find(".s-item__link").First().Attr("href")
	img, _ := item.Find(".s-item__image-wrapper img, .s-item__image img").First().Attr("src")

	return ComparableSample{
		Title:      title,
		Price:      price,
		Shipping:   shipping,
		TotalPrice: price + shipping,
		Condition:  strings.TrimSpace(item.Find(".SECONDARY_INFO").First().Text()),
		SoldDate:   strings.TrimSpace(item.Find(".s-item__caption, .POSITIVE").First().Text()),
		URL:        stripTrackingParams(link),
		ImageURL:   img,
	}, true
}

func parseDollars(text string) (float64, bool) {
	m := soldPriceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// stripTrackingParams drops the query string so URL dedup is stable
// across result pages.
func stripTrackingParams(raw string) string {
	if i := strings.Index(raw, "?"); i > 0 {
		return raw[:i]
	}
	return raw
}
