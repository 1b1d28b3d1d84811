package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"flipscan/internal/api"
	"flipscan/internal/config"
	"flipscan/internal/database"
	"flipscan/internal/pricing"
	"flipscan/internal/scanner"
)

func main() {
	cfg := config.Load()

	for _, issue := range cfg.Validate() {
		log.Printf("config: %s", issue)
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	rechecker := scanner.NewRechecker(cfg, db, buildPriceSource(cfg))
	hub := api.NewHub()

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, db, rechecker, hub)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
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
