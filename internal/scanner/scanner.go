package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"flipscan/internal/arbitrage"
	"flipscan/internal/config"
	"flipscan/internal/identify"
	"flipscan/internal/match"
	"flipscan/internal/models"
	"flipscan/internal/notify"
	"flipscan/internal/pricing"
	"flipscan/internal/report"
	"flipscan/internal/scrape"
	"flipscan/internal/terms"
)

// ListingSource produces marketplace listings for a search query.
// The chromedp scraper implements it in production; tests use a fake.
type ListingSource interface {
	Search(ctx context.Context, query string) ([]scrape.Listing, error)
	FetchDetail(ctx context.Context, l *scrape.Listing) error
}

// Event is one scan progress notification for live consumers.
type Event struct {
	Type      string    `json:"type"` // scan_started, listing_analyzed, opportunity, scan_finished
	ListingID string    `json:"listing_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Profit    float64   `json:"profit,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// EventSink receives scan events. Publish must not block.
type EventSink interface {
	Publish(ev Event)
}

// Scanner runs the full scrape, identify, price, evaluate pipeline.
type Scanner struct {
	cfg        *config.Config
	db         *gorm.DB
	source     ListingSource
	identifier *identify.Generator
	resolver   *terms.Resolver
	expander   *terms.Expander
	prices     pricing.Source
	verifier   *match.Verifier
	evaluator  *arbitrage.Evaluator
	pickup     *arbitrage.PickupCalculator
	notifier   *notify.Discord
	events     EventSink

	alerted map[string]bool
}

type Deps struct {
	DB         *gorm.DB
	Source     ListingSource
	Identifier *identify.Generator
	Resolver   *terms.Resolver
	Expander   *terms.Expander
	Prices     pricing.Source
	Verifier   *match.Verifier
	Pickup     *arbitrage.PickupCalculator
	Notifier   *notify.Discord
	Events     EventSink
}

func New(cfg *config.Config, deps Deps) *Scanner {
	return &Scanner{
		cfg:        cfg,
		db:         deps.DB,
		source:     deps.Source,
		identifier: deps.Identifier,
		resolver:   deps.Resolver,
		expander:   deps.Expander,
		prices:     deps.Prices,
		verifier:   deps.Verifier,
		evaluator: arbitrage.NewEvaluator(
			cfg.MarketplaceFeePercent, cfg.ShippingEstimate,
			cfg.MinProfitDollars, cfg.MinProfitPercent),
		pickup:   deps.Pickup,
		notifier: deps.Notifier,
		events:   deps.Events,
		alerted:  make(map[string]bool),
	}
}

func (s *Scanner) publish(ev Event) {
	if s.events != nil {
		ev.At = time.Now()
		s.events.Publish(ev)
	}
}

// searchQueries turns the configured category terms into concrete scrape
// queries: ambiguous terms are replaced by the queries of every plausible
// meaning so nothing is silently dropped, then synonym and typo expansion
// is applied when enabled.
func (s *Scanner) searchQueries(ctx context.Context) []string {
	base := s.cfg.Categories
	var resolved []string
	if s.resolver != nil {
		for _, res := range s.resolver.ResolveAll(ctx, base) {
			if !res.Ambiguous {
				resolved = append(resolved, res.Term)
				continue
			}
			log.Printf("scanner: %q is ambiguous (%d meanings), searching all of them", res.Term, len(res.Meanings))
			for _, m := range res.Meanings {
				resolved = append(resolved, m.Queries...)
			}
		}
	} else {
		resolved = base
	}

	if s.cfg.ExpandSearchTerms && s.expander != nil {
		resolved = s.expander.ExpandAll(resolved)
	}
	return dedupStrings(resolved)
}

// RunScan executes one scan cycle and returns the report.
func (s *Scanner) RunScan(ctx context.Context) (*report.Report, error) {
	start := time.Now()
	queries := s.searchQueries(ctx)
	rep := report.New(s.cfg.Categories, s.cfg.ZipCode, s.cfg.RadiusMiles)

	if len(queries) == 0 {
		rep.Errors = append(rep.Errors, "no search terms configured")
		return rep, nil
	}

	log.Printf("scanner: scan started, %d queries from %d terms", len(queries), len(s.cfg.Categories))
	s.publish(Event{Type: "scan_started", Message: fmt.Sprintf("%d queries", len(queries))})

	listings, err := s.collect(ctx, queries)
	if err != nil {
		s.notifyError(ctx, err)
		return rep, err
	}
	if len(listings) == 0 {
		// A dry market is a normal outcome, not a failure.
		log.Printf("scanner: no listings found")
		rep.Duration = time.Since(start)
		s.publish(Event{Type: "scan_finished", Message: "no listings found"})
		return rep, nil
	}
	log.Printf("scanner: %d listings after filtering", len(listings))

	opportunities := s.analyzeAdaptive(ctx, listings, rep)

	s.sendAlerts(ctx, opportunities, len(listings))

	rep.Duration = time.Since(start)
	s.publish(Event{Type: "scan_finished", Message: fmt.Sprintf("%d opportunities", len(opportunities))})
	log.Printf("scanner: scan complete, %d analyzed, %d opportunities",
		rep.TotalListings, rep.Opportunities)
	return rep, nil
}

// collect scrapes every query, merges by listing id, then applies the
// hygiene filters and the price-ascending order.
func (s *Scanner) collect(ctx context.Context, queries []string) ([]scrape.Listing, error) {
	seen := make(map[string]bool)
	var all []scrape.Listing
	for _, q := range queries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		found, err := s.source.Search(ctx, q)
		if err != nil {
			log.Printf("scanner: search %q failed: %v", q, err)
			continue
		}
		for _, l := range found {
			if l.ListingID == "" || seen[l.ListingID] {
				continue
			}
			seen[l.ListingID] = true
			all = append(all, l)
		}
	}
	filtered := scrape.Filter(all, scrape.FilterOptions{
		MaxAgeDays:     s.cfg.MaxListingAgeDays,
		ExcludePending: s.cfg.ExcludePending,
		ExcludeShipped: true,
	})
	filtered = scrape.SortByPrice(filtered)
	if len(filtered) > s.cfg.MaxListingsPerScan {
		filtered = filtered[:s.cfg.MaxListingsPerScan]
	}
	return filtered, nil
}

// analyzeAdaptive works through the listings in batches. The batch grows
// while no opportunity turns up and stops at the first batch that yields
// one, so cheap scans stay cheap and dry scans dig deeper.
func (s *Scanner) analyzeAdaptive(ctx context.Context, listings []scrape.Listing, rep *report.Report) []*models.Opportunity {
	var opportunities []*models.Opportunity
	analyzed := 0
	end := min(s.cfg.InitialBatchSize, len(listings))

	for analyzed < len(listings) {
		batch := listings[analyzed:end]
		log.Printf("scanner: analyzing listings %d-%d of %d", analyzed+1, end, len(listings))

		batchOpps := s.analyzeBatch(ctx, batch, rep)
		opportunities = append(opportunities, batchOpps...)
		analyzed = end

		if len(batchOpps) > 0 || analyzed >= len(listings) {
			break
		}
		log.Printf("scanner: no opportunities yet, extending batch by %d", s.cfg.BatchExtendBy)
		end = min(end+s.cfg.BatchExtendBy, len(listings))
	}

	// Listings left behind when the batch stopped early stay on the
	// report as skipped so the scan stays auditable.
	for i := analyzed; i < len(listings); i++ {
		rep.Add(report.Item{
			ListingID:   listings[i].ListingID,
			Title:       listings[i].Title,
			AskingPrice: listings[i].Price,
			Location:    listings[i].Location,
			URL:         listings[i].URL,
			Status:      report.StatusSkipped,
			DropReason:  "batch stopped before this listing",
		})
	}
	return opportunities
}

// analyzeBatch analyzes one batch and returns its opportunities. With a
// browser-backed source analysis stays sequential; a stateless source
// can raise AnalysisConcurrency and fan out under a semaphore.
func (s *Scanner) analyzeBatch(ctx context.Context, batch []scrape.Listing, rep *report.Report) []*models.Opportunity {
	var opportunities []*models.Opportunity

	if s.cfg.AnalysisConcurrency <= 1 {
		for i := range batch {
			if ctx.Err() != nil {
				rep.Errors = append(rep.Errors, "scan interrupted")
				return opportunities
			}
			item, opp := s.analyzeListing(ctx, &batch[i])
			rep.Add(item)
			s.publish(Event{Type: "listing_analyzed", ListingID: item.ListingID, Title: item.Title})
			if opp != nil {
				opportunities = append(opportunities, opp)
				s.publish(Event{Type: "opportunity", ListingID: opp.ListingID, Title: opp.Title, Profit: opp.Profit})
			}
		}
		return opportunities
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.AnalysisConcurrency)
	)
	for i := range batch {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(l *scrape.Listing) {
			defer wg.Done()
			defer func() { <-sem }()
			item, opp := s.analyzeListing(ctx, l)
			mu.Lock()
			rep.Add(item)
			if opp != nil {
				opportunities = append(opportunities, opp)
			}
			mu.Unlock()
			s.publish(Event{Type: "listing_analyzed", ListingID: item.ListingID, Title: item.Title})
			if opp != nil {
				s.publish(Event{Type: "opportunity", ListingID: opp.ListingID, Title: opp.Title, Profit: opp.Profit})
			}
		}(&batch[i])
	}
	wg.Wait()
	if ctx.Err() != nil {
		rep.Errors = append(rep.Errors, "scan interrupted")
	}
	return opportunities
}

// analyzeListing runs identification, comparable pricing and the profit
// decision for one listing. Failures degrade to a report row, never an
// aborted scan.
func (s *Scanner) analyzeListing(ctx context.Context, l *scrape.Listing) (report.Item, *models.Opportunity) {
	item := report.Item{
		ListingID:   l.ListingID,
		Title:       l.Title,
		AskingPrice: l.Price,
		Location:    l.Location,
		URL:         l.URL,
		ImageURL:    l.ImageURL,
		Status:      report.StatusNoMatch,
	}

	s.persistListing(l)

	// Detail pages carry the description and seller info the card lacks.
	if l.Description == "" {
		if err := s.source.FetchDetail(ctx, l); err != nil {
			log.Printf("scanner: detail fetch for %s failed: %v", l.ListingID, err)
		}
	}

	multi, err := s.identifier.GenerateMulti(ctx, l.Title, l.Description, l.ImageURL)
	if err != nil {
		log.Printf("scanner: identification for %s failed: %v", l.ListingID, err)
		item.Status = report.StatusDropped
		item.DropReason = err.Error()
		return item, nil
	}
	s.persistIdentifications(l.ListingID, multi)

	valid := multi.ValidItems()
	if len(valid) == 0 {
		item.Status = report.StatusDropped
		item.DropReason = firstDropReason(multi)
		return item, nil
	}
	item.IdentifiedAs = valid[0].SearchTerm
	item.IdentifySource = valid[0].Source

	agg := s.lookupComparables(ctx, l, valid)
	if agg == nil {
		return item, nil
	}
	item.ReferencePrice = agg.Reference(s.cfg.UseLowestSoldPrice)
	item.MedianPrice = agg.Median
	item.SampleCount = agg.Count
	item.Status = report.StatusMatched

	var pickupCost *arbitrage.PickupCost
	if s.pickup != nil {
		pickupCost = s.pickup.Calculate(ctx, l.Location)
	}
	eval := s.evaluator.Evaluate(l.Price, item.ReferencePrice, pickupCost)
	item.PickupKnown = eval.PickupKnown
	item.PickupCost = eval.PickupCost
	item.Profit = eval.Profit
	item.ProfitPercent = eval.ProfitPercent

	if !eval.IsOpportunity {
		return item, nil
	}
	item.IsOpportunity = true
	item.Status = report.StatusOpportunity

	opp := s.persistOpportunity(l, valid[0], agg, eval)
	return item, opp
}

func (s *Scanner) lookupComparables(ctx context.Context, l *scrape.Listing, valid []identify.Result) *pricing.Aggregate {
	agg := pricing.NewAggregator(s.prices, s.verifier, pricing.Options{
		Condition:            s.cfg.EbayCondition,
		MaxQueries:           s.cfg.MaxSearchQueries,
		MaxCandidatesPerTerm: s.cfg.MaxCandidatesPerTerm,
		SkipVerification:     s.cfg.SkipVerification,
		OnVerdict: func(sample pricing.ComparableSample, verdict match.Verdict) {
			s.persistVerdict(l.ListingID, sample, verdict)
		},
	})
	result, err := agg.Lookup(ctx, pricing.Request{
		Title:       l.Title,
		Description: l.Description,
		ImageURL:    l.ImageURL,
		Terms:       valid,
	})
	if err != nil {
		log.Printf("scanner: price lookup for %s failed: %v", l.ListingID, err)
		return nil
	}
	return result
}

func (s *Scanner) persistListing(l *scrape.Listing) {
	if s.db == nil {
		return
	}
	row := models.Listing{
		ListingID:   l.ListingID,
		Title:       l.Title,
		Price:       l.Price,
		Location:    l.Location,
		URL:         l.URL,
		ImageURL:    l.ImageURL,
		Description: l.Description,
		Condition:   l.Condition,
		SellerName:  l.SellerName,
		PostedDate:  l.PostedTime,
		IsPending:   l.IsPending,
		IsShipped:   l.IsShipped(),
		ScrapedAt:   l.ScrapedAt,
	}
	if err := s.db.Where("listing_id = ?", l.ListingID).
		Assign(row).FirstOrCreate(&models.Listing{}).Error; err != nil {
		log.Printf("scanner: persist listing %s failed: %v", l.ListingID, err)
	}
}

func (s *Scanner) persistIdentifications(listingID string, multi identify.MultiResult) {
	if s.db == nil {
		return
	}
	var termList []string
	for _, it := range multi.Items {
		termList = append(termList, it.SearchTerm)
	}
	itemsJSON, _ := json.Marshal(termList)
	for _, it := range multi.Items {
		rawJSON, _ := json.Marshal(it.Raw)
		row := models.Identification{
			ListingID:    listingID,
			SearchTerm:   it.SearchTerm,
			Source:       it.Source,
			Specific:     !it.Dropped(),
			MultiItem:    multi.IsMultiItem,
			Items:        string(itemsJSON),
			RawResponses: string(rawJSON),
			FailReason:   it.Reasoning,
			Model:        s.cfg.TextModel,
		}
		if err := s.db.Create(&row).Error; err != nil {
			log.Printf("scanner: persist identification failed: %v", err)
		}
	}
}

func (s *Scanner) persistVerdict(listingID string, sample pricing.ComparableSample, verdict match.Verdict) {
	if s.db == nil {
		return
	}
	comp := models.ComparableListing{
		SearchTerm: sample.Query,
		Title:      sample.Title,
		Price:      sample.Price,
		Shipping:   sample.Shipping,
		TotalPrice: sample.TotalPrice,
		Condition:  sample.Condition,
		SoldDate:   sample.SoldDate,
		URL:        sample.URL,
		ImageURL:   sample.ImageURL,
		Source:     sample.Source,
		Verified:   verdict.IsMatch,
	}
	if err := s.db.Create(&comp).Error; err != nil {
		log.Printf("scanner: persist comparable failed: %v", err)
	}
	rec := models.MatchRecord{
		ListingID:     listingID,
		ComparableURL: sample.URL,
		SearchTerm:    sample.Query,
		IsMatch:       verdict.IsMatch,
		Confidence:    verdict.Confidence,
		Reason:        verdict.Reasoning,
		Method:        verdict.Method,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		log.Printf("scanner: persist match record failed: %v", err)
	}
}

func (s *Scanner) persistOpportunity(l *scrape.Listing, term identify.Result, agg *pricing.Aggregate, eval arbitrage.Evaluation) *models.Opportunity {
	opp := &models.Opportunity{
		ListingID:      l.ListingID,
		Title:          l.Title,
		SearchTerm:     term.SearchTerm,
		AskingPrice:    l.Price,
		PickupCost:     eval.PickupCost,
		PickupKnown:    eval.PickupKnown,
		TotalCost:      eval.TotalCost,
		ReferencePrice: eval.ReferencePrice,
		MedianPrice:    agg.Median,
		MaxPrice:       agg.Max,
		SampleCount:    agg.Count,
		NetResale:      eval.NetAfterFees,
		Profit:         eval.Profit,
		ProfitPercent:  eval.ProfitPercent,
		PriceSource:    agg.Source,
		URL:            l.URL,
		ImageURL:       l.ImageURL,
		Location:       l.Location,
		Status:         models.OpportunityActive,
		LastCheckedAt:  time.Now(),
	}
	if err := opp.RecordPrice(eval.ReferencePrice, time.Now()); err != nil {
		log.Printf("scanner: record price failed: %v", err)
	}
	if s.db != nil {
		if err := s.db.Where("listing_id = ?", l.ListingID).
			Assign(opp).FirstOrCreate(&models.Opportunity{}).Error; err != nil {
			log.Printf("scanner: persist opportunity failed: %v", err)
		}
	}
	return opp
}

// sendAlerts pushes new opportunities to Discord, deduplicating against
// listings already alerted during this process lifetime.
func (s *Scanner) sendAlerts(ctx context.Context, opps []*models.Opportunity, totalListings int) {
	if s.notifier == nil || !s.notifier.Enabled() || len(opps) == 0 {
		return
	}
	sent := 0
	var best *models.Opportunity
	for _, opp := range opps {
		if best == nil || opp.Profit > best.Profit {
			best = opp
		}
		if s.alerted[opp.ListingID] {
			continue
		}
		if s.notifier.SendOpportunity(ctx, opp) {
			s.alerted[opp.ListingID] = true
			sent++
			// Discord rate limit.
			time.Sleep(time.Second)
		}
	}
	s.notifier.SendScanSummary(ctx, joinTerms(s.cfg.Categories), totalListings, len(opps), best)
	log.Printf("scanner: %d alerts sent", sent)
}

func (s *Scanner) notifyError(ctx context.Context, err error) {
	log.Printf("scanner: scan failed: %v", err)
	if s.notifier != nil && s.notifier.Enabled() {
		s.notifier.SendError(ctx, err.Error())
	}
}

// RunContinuous repeats RunScan on the configured interval until the
// context is cancelled.
func (s *Scanner) RunContinuous(ctx context.Context) error {
	interval := time.Duration(s.cfg.ScanIntervalMinutes) * time.Minute
	count := 0
	for {
		count++
		log.Printf("scanner: starting scan #%d", count)
		if rep, err := s.RunScan(ctx); err == nil {
			fmt.Print(rep.Summary())
		}
		select {
		case <-ctx.Done():
			log.Printf("scanner: stopped after %d scans", count)
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func firstDropReason(multi identify.MultiResult) string {
	for _, it := range multi.Items {
		if it.Dropped() && it.Reasoning != "" {
			return it.Reasoning
		}
	}
	return "could not identify a searchable product"
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func joinTerms(termList []string) string {
	if len(termList) == 0 {
		return ""
	}
	out := termList[0]
	for _, t := range termList[1:] {
		out += ", " + t
	}
	return out
}
