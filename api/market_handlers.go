package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"realestate-market/models"
	"realestate-market/services"
	"realestate-market/storage"
	"realestate-market/utils"
)

const (
	defaultSimilarLimit = 5
	maxSimilarLimit     = 50
	defaultTrendDays    = 30
	maxTrendDays        = 365
	defaultRooms        = 2
)

type marketHandlers struct {
	svc    *services.MarketService
	logger *utils.Logger
}

// respond writes a cached value together with its cache metadata.
func respond(c *gin.Context, data any, info models.CacheInfo) {
	c.JSON(http.StatusOK, gin.H{"data": data, "cache": info})
}

// fail maps service errors onto HTTP statuses. Unknown errors are upstream
// fetch failures.
func (h *marketHandlers) fail(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case services.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrSourceDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = 499
	}
	if status >= http.StatusInternalServerError {
		h.logger.With(requestIDKey, c.GetString(requestIDKey)).Error("[api] %s: %v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *marketHandlers) ProimobilStats(c *gin.Context) {
	stats, info, err := h.svc.ProimobilStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, stats, info)
}

func (h *marketHandlers) ProimobilListings(c *gin.Context) {
	listings, info, err := h.svc.Listings(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(listings), "listings": listings, "cache": info})
}

func (h *marketHandlers) AccesimobilStats(c *gin.Context) {
	stats, info, err := h.svc.AccesimobilStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, stats, info)
}

func (h *marketHandlers) MD999Stats(c *gin.Context) {
	stats, info, err := h.svc.MD999Stats(c.Request.Context())
	if errors.Is(err, services.ErrSourceDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"source":  services.Key999MD,
			"enabled": false,
			"error":   "999.md scraper disabled. Set APP_ENABLE_999MD_SCRAPER=true to enable.",
		})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, stats, info)
}

func (h *marketHandlers) Distribution(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Distribution(c.Request.Context()))
}

func (h *marketHandlers) Quartiles(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Quartiles(c.Request.Context()))
}

// ExportCSV streams the listing snapshot. Listings are loaded before the
// first byte is written so fetch errors still get a JSON status.
func (h *marketHandlers) ExportCSV(c *gin.Context) {
	ctx := c.Request.Context()
	if _, _, err := h.svc.Listings(ctx); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="listings.csv"`)
	c.Status(http.StatusOK)

	w, err := storage.NewCSVStreamWriter(c.Writer)
	if err != nil {
		h.logger.Error("[api] export: %v", err)
		return
	}
	n, err := h.svc.Export(ctx, w)
	if err != nil {
		h.logger.Error("[api] export: %v", err)
	}
	if err := w.Close(); err != nil {
		h.logger.Error("[api] export close: %v", err)
	}
	h.logger.Debug("[api] Exported %d listings", n)
}

func (h *marketHandlers) Insights(c *gin.Context) {
	insights, info, err := h.svc.Insights(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, insights, info)
}

func (h *marketHandlers) ListingAnalytics(c *gin.Context) {
	analytics, info, err := h.svc.ListingAnalytics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, analytics, info)
}

func (h *marketHandlers) Score(c *gin.Context) {
	score, err := h.svc.ScoreListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

type predictQuery struct {
	Surface float64 `form:"surface" binding:"required,gt=0"`
	Rooms   int     `form:"rooms" binding:"omitempty,gte=1,lte=20"`
	Sector  string  `form:"sector"`
}

func (h *marketHandlers) PredictPrice(c *gin.Context) {
	var q predictQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Rooms == 0 {
		q.Rooms = defaultRooms
	}

	prediction, err := h.svc.PredictPrice(c.Request.Context(), q.Surface, q.Rooms, q.Sector)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

func (h *marketHandlers) Similar(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultSimilarLimit, 1, maxSimilarLimit)
	if !ok {
		return
	}
	id := c.Param("id")
	similar, err := h.svc.SimilarListings(c.Request.Context(), id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reference_id": id, "total": len(similar), "similar": similar})
}

func (h *marketHandlers) Deals(c *gin.Context) {
	deals, info, err := h.svc.DealAnalytics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, deals, info)
}

func (h *marketHandlers) PriceAnalysis(c *gin.Context) {
	deals, info, err := h.svc.DealAnalytics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, deals.PriceAnalysis, info)
}

func (h *marketHandlers) Investment(c *gin.Context) {
	inv, err := h.svc.Investment(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *marketHandlers) Trends(c *gin.Context) {
	days, ok := intQuery(c, "days", defaultTrendDays, 1, maxTrendDays)
	if !ok {
		return
	}
	trends, err := h.svc.Trends(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

func (h *marketHandlers) Health(c *gin.Context) {
	health, info, err := h.svc.MarketHealth(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, health, info)
}

func (h *marketHandlers) TimeToSell(c *gin.Context) {
	health, info, err := h.svc.MarketHealth(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, health.TimeToSell, info)
}

// intQuery reads an optional bounded integer parameter. It writes a 400 and
// returns false when the value is malformed or out of range.
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": name + " must be an integer between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi),
		})
		return 0, false
	}
	return v, true
}
