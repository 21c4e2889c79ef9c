// Package api exposes the market data and cache management over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"realestate-market/models"
	"realestate-market/services"
	"realestate-market/storage"
	"realestate-market/utils"
)

// Refresher is the scheduler surface used by the cache endpoints.
type Refresher interface {
	TriggerRefreshNow(ctx context.Context) (*models.RefreshReport, bool)
	Status() models.SchedulerStatus
}

// Deps holds everything the handlers need.
type Deps struct {
	Market      *services.MarketService
	Cache       storage.Store
	Scheduler   Refresher
	Logger      *utils.Logger
	CORSOrigins []string
	Version     string
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = utils.NewSilentLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(corsMiddleware(d.CORSOrigins))
	router.Use(requestLogger(d.Logger))

	started := time.Now()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"version":        d.Version,
			"uptime_seconds": int(time.Since(started).Seconds()),
		})
	})

	market := &marketHandlers{svc: d.Market, logger: d.Logger}
	cache := &cacheHandlers{cache: d.Cache, scheduler: d.Scheduler, logger: d.Logger}

	v1 := router.Group("/api/v1")
	{
		m := v1.Group("/market")
		{
			m.GET("/proimobil-api", market.ProimobilStats)
			m.GET("/proimobil-api/listings", market.ProimobilListings)
			m.GET("/accesimobil", market.AccesimobilStats)
			m.GET("/999md", market.MD999Stats)
			m.GET("/distribution", market.Distribution)
			m.GET("/quartiles", market.Quartiles)
			m.GET("/export.csv", market.ExportCSV)

			a := m.Group("/analytics")
			{
				a.GET("/insights", market.Insights)
				a.GET("/listing", market.ListingAnalytics)
				a.GET("/score/:id", market.Score)
				a.GET("/predict-price", market.PredictPrice)
				a.GET("/similar/:id", market.Similar)
				a.GET("/deals", market.Deals)
				a.GET("/price-analysis", market.PriceAnalysis)
				a.GET("/investment", market.Investment)
				a.GET("/trends", market.Trends)
				a.GET("/health", market.Health)
				a.GET("/time-to-sell", market.TimeToSell)
			}
		}

		cg := v1.Group("/cache")
		{
			cg.GET("/status", cache.Status)
			cg.POST("/refresh", cache.Refresh)
			cg.POST("/clear", cache.Clear)
			cg.GET("/:key", cache.Get)
			cg.DELETE("/:key", cache.Invalidate)
		}
	}

	return router
}

// NewServer wraps the router in an http.Server with sane timeouts. Refresh
// requests run a full pass synchronously, so the write timeout is generous.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
