package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries every tunable for the scanner. It is built once in main
// and passed into constructors; nothing reads the environment after Load.
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Search settings
	Categories        []string
	ZipCode           string
	RadiusMiles       int
	ExpandSearchTerms bool
	IncludeTypos      bool

	// Profit thresholds. A listing is flagged when either one is met.
	MinProfitDollars float64
	MinProfitPercent float64

	// Fee model for the resale side
	MarketplaceFeePercent float64
	ShippingEstimate      float64
	UseLowestSoldPrice    bool

	// Comparable lookup
	PriceSource          string // "ebay", "pricecharting", "both"
	EbayCondition        string // "used", "new", "any"
	MaxSearchQueries     int
	MaxCandidatesPerTerm int
	SkipVerification     bool

	// Match verification
	MatchMinConfidence float64

	// Pickup cost
	VehicleMPG       float64
	GasPriceOverride float64

	// Listing filters
	MaxListingAgeDays  int
	ExcludePending     bool
	MaxListingsPerScan int

	// Scan loop
	ScanIntervalMinutes int
	InitialBatchSize    int
	BatchExtendBy       int
	AnalysisConcurrency int

	// Collaborator endpoints and credentials
	OllamaURL           string
	TextModel           string
	GeminiAPIKey        string
	GeminiModel         string
	PriceChartingAPIKey string
	DiscordWebhookURL   string

	// Recheck job
	RecheckMinHours float64
	RecheckLimit    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file, using system environment")
	}

	defaultDSN := "flipscan:flipscan@tcp(127.0.0.1:3306)/flipscan?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", defaultDSN),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		Categories:        splitList(getEnv("SEARCH_TERMS", "iphone")),
		ZipCode:           getEnv("ZIP_CODE", "15213"),
		RadiusMiles:       getEnvInt("RADIUS_MILES", 25),
		ExpandSearchTerms: getEnvBool("EXPAND_SEARCH_TERMS", true),
		IncludeTypos:      getEnvBool("INCLUDE_TYPOS", true),

		MinProfitDollars: getEnvFloat("MIN_PROFIT_DOLLARS", 30.0),
		MinProfitPercent: getEnvFloat("MIN_PROFIT_PERCENT", 20.0),

		MarketplaceFeePercent: getEnvFloat("MARKETPLACE_FEE_PERCENT", 13.25),
		ShippingEstimate:      getEnvFloat("SHIPPING_ESTIMATE", 15.0),
		UseLowestSoldPrice:    getEnvBool("USE_LOWEST_SOLD_PRICE", true),

		PriceSource:          getEnv("PRICE_SOURCE", "ebay"),
		EbayCondition:        getEnv("EBAY_CONDITION", "used"),
		MaxSearchQueries:     getEnvInt("MAX_SEARCH_QUERIES", 3),
		MaxCandidatesPerTerm: getEnvInt("MAX_CANDIDATES_PER_TERM", 5),
		SkipVerification:     getEnvBool("SKIP_VERIFICATION", false),

		MatchMinConfidence: getEnvFloat("MATCH_MIN_CONFIDENCE", 0.6),

		VehicleMPG:       getEnvFloat("VEHICLE_MPG", 25.0),
		GasPriceOverride: getEnvFloat("GAS_PRICE_OVERRIDE", 0),

		MaxListingAgeDays:  getEnvInt("MAX_LISTING_AGE_DAYS", 30),
		ExcludePending:     getEnvBool("EXCLUDE_PENDING", true),
		MaxListingsPerScan: getEnvInt("MAX_LISTINGS_PER_SCAN", 50),

		ScanIntervalMinutes: getEnvInt("SCAN_INTERVAL_MINUTES", 5),
		InitialBatchSize:    getEnvInt("INITIAL_BATCH_SIZE", 10),
		BatchExtendBy:       getEnvInt("BATCH_EXTEND_BY", 25),
		AnalysisConcurrency: getEnvInt("ANALYSIS_CONCURRENCY", 1),

		OllamaURL:           getEnv("OLLAMA_URL", "http://localhost:11434"),
		TextModel:           getEnv("TEXT_MODEL", "qwen2.5"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		PriceChartingAPIKey: getEnv("PRICECHARTING_API_KEY", ""),
		DiscordWebhookURL:   getEnv("DISCORD_WEBHOOK_URL", ""),

		RecheckMinHours: getEnvFloat("RECHECK_MIN_HOURS", 12.0),
		RecheckLimit:    getEnvInt("RECHECK_LIMIT", 50),
	}
}

// Validate reports configuration problems that disable parts of the
// system. The caller decides whether any of them are fatal.
func (c *Config) Validate() []string {
	var issues []string
	if len(c.Categories) == 0 {
		issues = append(issues, "SEARCH_TERMS is not set")
	}
	if c.DiscordWebhookURL == "" {
		issues = append(issues, "DISCORD_WEBHOOK_URL is not set (notifications disabled)")
	}
	if (c.PriceSource == "pricecharting" || c.PriceSource == "both") && c.PriceChartingAPIKey == "" {
		issues = append(issues, "PRICECHARTING_API_KEY is not set (falling back to eBay only)")
	}
	return issues
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
