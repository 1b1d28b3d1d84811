package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"flipscan/internal/config"
	"flipscan/internal/database"
	"flipscan/internal/pricing"
	"flipscan/internal/scanner"
)

var statusOnly = flag.Bool("status", false, "print tracking status and exit")

// Meant to run from cron twice daily, e.g. at 09:00 and 21:00.
func main() {
	flag.Parse()

	cfg := config.Load()

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	ebay := pricing.NewEbaySource()
	var source pricing.Source = ebay
	if cfg.PriceSource == "pricecharting" || cfg.PriceSource == "both" {
		source = pricing.NewCompositeSource(
			pricing.NewPriceChartingSource(cfg.PriceChartingAPIKey), ebay)
	}

	rechecker := scanner.NewRechecker(cfg, db, source)

	status, err := rechecker.Status()
	if err != nil {
		log.Fatalf("status query failed: %v", err)
	}
	log.Printf("tracking %d opportunities: %d active, %d expired, %d sold, %d checked recently",
		status.Total, status.Active, status.Expired, status.Sold, status.CheckedRecently)
	if *statusOnly {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := rechecker.Run(ctx)
	if err != nil {
		log.Fatalf("recheck failed: %v", err)
	}

	changed := 0
	retired := 0
	for _, r := range results {
		if r.PriceChanged {
			changed++
		}
		if !r.StillViable {
			retired++
		}
	}
	log.Printf("rechecked %d opportunities: %d price changes, %d retired", len(results), changed, retired)
}
