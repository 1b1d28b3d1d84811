package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"flipscan/internal/arbitrage"
	"flipscan/internal/config"
	"flipscan/internal/database"
	"flipscan/internal/identify"
	"flipscan/internal/llm"
	"flipscan/internal/match"
	"flipscan/internal/notify"
	"flipscan/internal/pricing"
	"flipscan/internal/report"
	"flipscan/internal/scanner"
	"flipscan/internal/scrape"
	"flipscan/internal/terms"
)

var (
	once     = flag.Bool("once", false, "run a single scan and exit")
	xlsxPath = flag.String("xlsx", "", "write the scan report to this .xlsx file")
	noDB     = flag.Bool("no-db", false, "run without persisting to the database")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	for _, issue := range cfg.Validate() {
		log.Printf("config: %s", issue)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, *noDB)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	s := scanner.New(cfg, deps)

	if *once {
		rep, err := s.RunScan(ctx)
		if err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		fmt.Print(rep.Summary())
		writeXLSX(rep)
		return
	}

	log.Printf("continuous mode, interval %d minutes, Ctrl-C to stop", cfg.ScanIntervalMinutes)
	if err := s.RunContinuous(ctx); err != nil && err != context.Canceled {
		log.Fatalf("scanner stopped: %v", err)
	}
}

func writeXLSX(rep *report.Report) {
	if *xlsxPath == "" {
		return
	}
	if err := rep.WriteXLSX(*xlsxPath); err != nil {
		log.Printf("xlsx export failed: %v", err)
		return
	}
	log.Printf("report written to %s", *xlsxPath)
}

func buildDeps(ctx context.Context, cfg *config.Config, noDB bool) (scanner.Deps, error) {
	var deps scanner.Deps

	if !noDB {
		db, err := database.Initialize(cfg.DatabaseURL)
		if err != nil {
			return deps, fmt.Errorf("database: %w", err)
		}
		deps.DB = db
	}

	text := llm.NewOllamaClient(cfg.OllamaURL, cfg.TextModel)

	// Vision is optional; without it the pipeline runs text-only and the
	// image tiers simply never fire.
	var vision llm.Client
	if cfg.GeminiAPIKey != "" {
		g, err := llm.NewGeminiClient(ctx, cfg.GeminiModel)
		if err != nil {
			log.Printf("gemini unavailable, continuing text-only: %v", err)
		} else {
			vision = g
		}
	}

	matchModel := vision
	if matchModel == nil {
		matchModel = text
	}

	deps.Source = scrape.NewMarketplaceScraper(cfg.ZipCode, cfg.RadiusMiles)
	deps.Identifier = identify.NewGenerator(text, vision)
	deps.Resolver = terms.NewResolver(text)
	deps.Expander = terms.NewExpander("", cfg.IncludeTypos)
	deps.Prices = buildPriceSource(cfg)
	deps.Verifier = match.NewVerifier(matchModel, cfg.MatchMinConfidence)
	deps.Pickup = arbitrage.NewPickupCalculator(cfg.VehicleMPG, cfg.GasPriceOverride, cfg.ZipCode).
		WithCache(deps.DB)
	deps.Notifier = notify.NewDiscord(cfg.DiscordWebhookURL)
	return deps, nil
}

func buildPriceSource(cfg *config.Config) pricing.Source {
	ebay := pricing.NewEbaySource()
	switch cfg.PriceSource {
	case "pricecharting", "both":
		return pricing.NewCompositeSource(
			pricing.NewPriceChartingSource(cfg.PriceChartingAPIKey), ebay)
	default:
		return ebay
	}
}
