package scrape

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MarketplaceScraper drives a headless browser against the local
// marketplace search pages. The search surface is JS-rendered, so a
// plain HTTP client sees nothing.
type MarketplaceScraper struct {
	ZipCode     string
	RadiusMiles int
}

func NewMarketplaceScraper(zipCode string, radiusMiles int) *MarketplaceScraper {
	return &MarketplaceScraper{ZipCode: zipCode, RadiusMiles: radiusMiles}
}

// BuildSearchURL composes a marketplace search URL. The site takes the
// radius in kilometers and sorts cheapest-first when asked.
func (m *MarketplaceScraper) BuildSearchURL(query string) string {
	radiusKM := int(float64(m.RadiusMiles) * 1.60934)
	base := "https://www.facebook.com/marketplace"
	if m.ZipCode != "" {
		base += "/" + m.ZipCode
	}
	return fmt.Sprintf("%s/search?query=%s&radius=%d&sortBy=price_ascend",
		base, url.QueryEscape(query), radiusKM)
}

type cardData struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	Location string `json:"location"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

var itemIDRe = regexp.MustCompile(`/marketplace/item/(\d+)`)

// Search runs one query and returns parsed listings, deduplicated by
// listing ID.
func (m *MarketplaceScraper) Search(ctx context.Context, query string) ([]Listing, error) {
	allocCtx, cancelAlloc := newAllocator(ctx)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 90*time.Second)
	defer cancelTimeout()

	var cards []cardData
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(m.BuildSearchURL(query)),
		chromedp.Sleep(5*time.Second),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(extractCardsJS, &cards),
	)
	if err != nil {
		return nil, fmt.Errorf("marketplace search %q: %w", query, err)
	}

	seen := make(map[string]bool)
	listings := make([]Listing, 0, len(cards))
	for _, c := range cards {
		id := extractListingID(c.URL)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		price, ok := ParsePrice(c.Price)
		if !ok {
			continue
		}
		listings = append(listings, Listing{
			ListingID:  id,
			Title:      strings.TrimSpace(c.Title),
			Price:      price,
			PriceRaw:   c.Price,
			Location:   strings.TrimSpace(c.Location),
			URL:        c.URL,
			ImageURL:   c.ImageURL,
			PostedTime: "",
			AgeDays:    -1,
			IsPending:  strings.Contains(strings.ToLower(c.Title), "pending"),
			ScrapedAt:  time.Now(),
		})
	}
	log.Printf("marketplace: query %q returned %d listings", query, len(listings))
	return listings, nil
}

// FetchDetail loads a listing page to pick up the description, seller
// name and posted time that the search cards do not carry.
func (m *MarketplaceScraper) FetchDetail(ctx context.Context, l *Listing) error {
	if l.URL == "" {
		return fmt.Errorf("listing %s has no URL", l.ListingID)
	}

	allocCtx, cancelAlloc := newAllocator(ctx)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
	defer cancelTimeout()

	type detailData struct {
		Description string `json:"description"`
		Seller      string `json:"seller"`
		Posted      string `json:"posted"`
		Condition   string `json:"condition"`
	}
	var d detailData
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(l.URL),
		chromedp.Sleep(4*time.Second),
		chromedp.Evaluate(extractDetailJS, &d),
	)
	if err != nil {
		return fmt.Errorf("marketplace detail %s: %w", l.ListingID, err)
	}

	l.Description = d.Description
	l.SellerName = d.Seller
	l.Condition = d.Condition
	if d.Posted != "" {
		l.PostedTime = d.Posted
		l.AgeDays = ParsePostedAge(d.Posted)
	}
	return nil
}

func extractListingID(rawURL string) string {
	if m := itemIDRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

func newAllocator(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin := findChromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

const extractCardsJS = `
(function() {
	var results = [];
	var seen = {};
	var links = document.querySelectorAll('a[href*="/marketplace/item/"]');
	for (var i = 0; i < links.length; i++) {
		var link = links[i];
		var href = link.href;
		if (!href || seen[href]) continue;
		seen[href] = true;

		var card = link.closest('div[class]') || link;
		var text = card.innerText || '';
		var lines = text.split('\n').map(function(l){ return l.trim(); }).filter(Boolean);

		var price = '';
		var title = '';
		var location = '';
		for (var j = 0; j < lines.length; j++) {
			if (!price && (lines[j].match(/^\$[\d,]+/) || lines[j].toLowerCase() === 'free')) {
				price = lines[j];
			} else if (!title && price && lines[j].length > 3) {
				title = lines[j];
			} else if (title && !location && lines[j].length > 2) {
				location = lines[j];
			}
		}

		var img = link.querySelector('img');
		results.push({
			title: title,
			price: price,
			location: location,
			url: href,
			image_url: img ? (img.src || '') : ''
		});
	}
	return results;
})()
`

const extractDetailJS = `
(function() {
	var result = { description: '', seller: '', posted: '', condition: '' };

	var spans = document.querySelectorAll('span');
	for (var i = 0; i < spans.length; i++) {
		var t = (spans[i].innerText || '').trim();
		if (!result.posted && t.match(/listed\s+.*ago/i)) result.posted = t;
		if (!result.condition && t.match(/^condition$/i)) {
			var sib = spans[i].parentElement && spans[i].parentElement.nextElementSibling;
			if (sib) result.condition = (sib.innerText || '').trim();
		}
	}

	var descEl = document.querySelector('[data-testid="marketplace_pdp_description"]');
	if (descEl) {
		result.description = descEl.innerText.trim();
	} else {
		var paras = document.querySelectorAll('div[role="main"] span');
		var best = '';
		for (var j = 0; j < paras.length; j++) {
			var txt = (paras[j].innerText || '').trim();
			if (txt.length > best.length && txt.length > 40) best = txt;
		}
		result.description = best.substring(0, 2000);
	}

	var sellerLink = document.querySelector('a[href*="/marketplace/profile/"]');
	if (sellerLink) result.seller = (sellerLink.innerText || '').trim();

	return result;
})()
`
