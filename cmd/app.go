package cmd

import (
	"time"

	"realestate-market/config"
	"realestate-market/scheduler"
	"realestate-market/scraper/accesimobil"
	"realestate-market/scraper/md999"
	"realestate-market/scraper/proimobil"
	"realestate-market/services"
	"realestate-market/storage"
	"realestate-market/utils"
)

// app is the process-wide object graph. It is built once per command.
type app struct {
	cfg       *config.Config
	logger    *utils.Logger
	cache     *storage.MarketDataCache
	market    *services.MarketService
	scheduler *scheduler.MarketDataScheduler
}

func newApp(cfg *config.Config, logger *utils.Logger) *app {
	cache := storage.NewMarketDataCache(cfg.CacheTTL, logger)

	sources := services.Sources{
		Proimobil: proimobil.NewClient(
			proimobil.WithBaseURL(cfg.ProimobilAPIURL),
			proimobil.WithLogger(logger),
			proimobil.WithRateLimit(cfg.ProimobilRateLimit),
			proimobil.WithTimeout(cfg.RequestTimeout),
			proimobil.WithMaxItems(cfg.ProimobilMaxItems),
			proimobil.WithRetry(cfg.MaxRetries, time.Second),
		),
		Accesimobil: accesimobil.New(accesimobil.Config{
			BaseURL:        cfg.AccesimobilURL,
			Timeout:        cfg.RequestTimeout,
			MaxConcurrency: cfg.MaxConcurrency,
			RateLimitMs:    cfg.RateLimitMs,
			MaxRetries:     cfg.MaxRetries,
			RetryDelay:     time.Second,
		}, logger),
	}
	if cfg.Enable999MDScraper {
		sources.MD999 = md999.New(md999.Config{
			BaseURL:    cfg.MD999URL,
			MaxPages:   cfg.Max999MDPages,
			ChromeBin:  cfg.ChromeBin,
			MaxRetries: cfg.MaxRetries,
			PageDelay:  time.Second,
		}, logger)
	}

	market := services.NewMarketService(cache, sources, logger)
	return &app{
		cfg:       cfg,
		logger:    logger,
		cache:     cache,
		market:    market,
		scheduler: scheduler.New(scheduler.MarketTasks(market), cfg.ScrapingInterval, logger),
	}
}
