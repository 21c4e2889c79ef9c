package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"realestate-market/storage"
	"realestate-market/utils"
)

type cacheHandlers struct {
	cache     storage.Store
	scheduler Refresher
	logger    *utils.Logger
}

func (h *cacheHandlers) Status(c *gin.Context) {
	body := gin.H{"cache": h.cache.Stats()}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.Status()
	}
	c.JSON(http.StatusOK, body)
}

// Refresh runs a full pass synchronously and reports whether it started.
func (h *cacheHandlers) Refresh(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Scheduler not configured"})
		return
	}

	// A client disconnect must not leave the cache half refreshed.
	report, started := h.scheduler.TriggerRefreshNow(context.WithoutCancel(c.Request.Context()))
	if !started {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Refresh already in progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Refresh completed",
		"failed":  report.Failed(),
		"report":  report,
	})
}

func (h *cacheHandlers) Clear(c *gin.Context) {
	n := h.cache.Clear()
	h.logger.Info("[api] Cache cleared (%d entries)", n)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cache cleared", "removed": n})
}

func (h *cacheHandlers) Get(c *gin.Context) {
	key := c.Param("key")
	data, info, ok := h.cache.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"key":     key,
			"message": fmt.Sprintf("No cached data for key '%s'", key),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "data": data, "cache": info})
}

func (h *cacheHandlers) Invalidate(c *gin.Context) {
	key := c.Param("key")
	removed := h.cache.Invalidate(key)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
		"message": fmt.Sprintf("Cache key '%s' invalidated", key),
	})
}
