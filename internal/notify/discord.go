package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"flipscan/internal/models"
)

const (
	colorGreen  = 0x00FF00
	colorYellow = 0xFFFF00
	colorBlue   = 0x0099FF
	colorRed    = 0xFF0000
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embedThumb struct {
	URL string `json:"url"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedField  `json:"footer,omitempty"`
	Thumbnail   *embedThumb  `json:"thumbnail,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Discord posts opportunity alerts to a webhook. All sends are
// fire-and-forget: failures are logged and reported as a boolean,
// never bubbled up to abort a scan.
type Discord struct {
	WebhookURL string
	http       *resty.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		WebhookURL: webhookURL,
		http:       resty.New().SetTimeout(10 * time.Second),
	}
}

// Enabled reports whether a webhook is configured.
func (d *Discord) Enabled() bool { return d.WebhookURL != "" }

func (d *Discord) post(ctx context.Context, payload webhookPayload) bool {
	if !d.Enabled() {
		return false
	}
	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.WebhookURL)
	if err != nil {
		log.Printf("notify: discord post failed: %v", err)
		return false
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 204 {
		log.Printf("notify: discord returned %d: %s", resp.StatusCode(), resp.String())
		return false
	}
	return true
}

// SendOpportunity posts one opportunity as an embed.
func (d *Discord) SendOpportunity(ctx context.Context, opp *models.Opportunity) bool {
	color := colorYellow
	if opp.Profit > 50 {
		color = colorGreen
	}

	fields := []embedField{
		{Name: "Asking Price", Value: fmt.Sprintf("**$%.2f**", opp.AskingPrice), Inline: true},
		{Name: "Reference Price", Value: fmt.Sprintf("$%.2f (%s)", opp.ReferencePrice, opp.PriceSource), Inline: true},
		{Name: "Potential Profit", Value: fmt.Sprintf("**$%.2f** (%.1f%%)", opp.Profit, opp.ProfitPercent), Inline: true},
	}
	if opp.Location != "" {
		fields = append(fields, embedField{Name: "Location", Value: opp.Location, Inline: true})
	}
	if opp.PickupKnown && opp.PickupCost > 0 {
		fields = append(fields, embedField{Name: "Pickup Fuel", Value: fmt.Sprintf("$%.2f", opp.PickupCost), Inline: true})
	} else if !opp.PickupKnown {
		fields = append(fields, embedField{Name: "Pickup Fuel", Value: "unknown distance", Inline: true})
	}
	if opp.SearchTerm != "" && opp.SearchTerm != opp.Title {
		fields = append(fields, embedField{Name: "Identified As", Value: truncate(opp.SearchTerm, 100)})
	}
	if opp.URL != "" {
		fields = append(fields, embedField{Name: "Listing", Value: fmt.Sprintf("[View listing](%s)", opp.URL)})
	}

	e := embed{
		Title:     "Arbitrage Alert: " + truncate(opp.Title, 100),
		URL:       opp.URL,
		Color:     color,
		Fields:    fields,
		Footer:    &embedField{Name: "", Value: "flipscan"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if opp.ImageURL != "" {
		e.Thumbnail = &embedThumb{URL: opp.ImageURL}
	}
	return d.post(ctx, webhookPayload{Embeds: []embed{e}})
}

// SendScanSummary posts a one-embed roundup of a completed scan.
func (d *Discord) SendScanSummary(ctx context.Context, searchTerm string, totalListings, opportunities int, best *models.Opportunity) bool {
	fields := []embedField{
		{Name: "Search", Value: searchTerm, Inline: true},
		{Name: "Listings Scanned", Value: fmt.Sprintf("%d", totalListings), Inline: true},
		{Name: "Opportunities", Value: fmt.Sprintf("%d", opportunities), Inline: true},
	}
	if best != nil {
		fields = append(fields, embedField{
			Name:  "Best Deal",
			Value: fmt.Sprintf("%s - **$%.2f** profit", truncate(best.Title, 50), best.Profit),
		})
	}
	return d.post(ctx, webhookPayload{Embeds: []embed{{
		Title:     "Scan Complete",
		Color:     colorBlue,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}})
}

// SendError posts an error alert so unattended scans do not fail silently.
func (d *Discord) SendError(ctx context.Context, msg string) bool {
	return d.post(ctx, webhookPayload{Embeds: []embed{{
		Title:       "Scanner Error",
		Description: truncate(msg, 500),
		Color:       colorRed,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}}})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
