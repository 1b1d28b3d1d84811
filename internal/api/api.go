package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"flipscan/internal/models"
	"flipscan/internal/scanner"
)

// APIHandler serves the read API over the scan database plus the live
// event feed.
type APIHandler struct {
	db        *gorm.DB
	rechecker *scanner.Rechecker
	hub       *Hub
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, rechecker *scanner.Rechecker, hub *Hub) *APIHandler {
	handler := &APIHandler{
		db:        db,
		rechecker: rechecker,
		hub:       hub,
	}

	r.GET("/health", handler.Health)

	opportunities := r.Group("/opportunities")
	{
		opportunities.GET("", handler.ListOpportunities)
		opportunities.GET("/:id", handler.GetOpportunity)
		opportunities.GET("/:id/history", handler.GetOpportunityHistory)
		opportunities.PUT("/:id/status", handler.UpdateOpportunityStatus)
	}

	listings := r.Group("/listings")
	{
		listings.GET("", handler.ListListings)
		listings.GET("/:listing_id/matches", handler.ListMatches)
	}

	recheck := r.Group("/recheck")
	{
		recheck.GET("/status", handler.RecheckStatus)
		recheck.POST("/run", handler.RunRecheck)
	}

	r.GET("/events", handler.ScanEvents)

	return handler
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) ListOpportunities(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := h.db.Model(&models.Opportunity{}).Order("profit DESC").Limit(limit)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if minProfit := c.Query("min_profit"); minProfit != "" {
		if v, err := strconv.ParseFloat(minProfit, 64); err == nil {
			query = query.Where("profit >= ?", v)
		}
	}

	var opps []models.Opportunity
	if err := query.Find(&opps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"opportunities": opps, "count": len(opps)})
}

func (h *APIHandler) GetOpportunity(c *gin.Context) {
	var opp models.Opportunity
	if err := h.db.First(&opp, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	c.JSON(http.StatusOK, opp)
}

func (h *APIHandler) GetOpportunityHistory(c *gin.Context) {
	var opp models.Opportunity
	if err := h.db.First(&opp, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listing_id": opp.ListingID,
		"history":    opp.History(),
	})
}

var validStatuses = map[string]bool{
	models.OpportunityActive:    true,
	models.OpportunitySold:      true,
	models.OpportunityRemoved:   true,
	models.OpportunityExpired:   true,
	models.OpportunityPurchased: true,
	models.OpportunityIgnored:   true,
}

func (h *APIHandler) UpdateOpportunityStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validStatuses[body.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + body.Status})
		return
	}

	result := h.db.Model(&models.Opportunity{}).
		Where("id = ?", c.Param("id")).
		Update("status", body.Status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": body.Status})
}

func (h *APIHandler) ListListings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var listings []models.Listing
	if err := h.db.Order("scraped_at DESC").Limit(limit).Find(&listings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "count": len(listings)})
}

func (h *APIHandler) ListMatches(c *gin.Context) {
	var records []models.MatchRecord
	if err := h.db.Where("listing_id = ?", c.Param("listing_id")).
		Order("created_at DESC").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": records, "count": len(records)})
}

func (h *APIHandler) RecheckStatus(c *gin.Context) {
	if h.rechecker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recheck not configured"})
		return
	}
	status, err := h.rechecker.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *APIHandler) RunRecheck(c *gin.Context) {
	if h.rechecker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recheck not configured"})
		return
	}
	results, err := h.rechecker.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rechecked": len(results), "results": results})
}

// ScanEvents upgrades to a websocket and streams scan events until the
// client disconnects.
func (h *APIHandler) ScanEvents(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event feed not configured"})
		return
	}
	h.hub.ServeWS(c.Writer, c.Request)
}
