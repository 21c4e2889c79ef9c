package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"realestate-market/models"
	"realestate-market/scraper"
	"realestate-market/storage"
	"realestate-market/utils"
)

// Cache keys.
const (
	KeyProimobilStats    = "proimobil_api"
	KeyProimobilListings = "proimobil_api_listings"
	KeyAccesimobil       = "accesimobil"
	Key999MD             = "999md"
	KeyMarketInsights    = "market_insights"
	KeyDealAnalytics     = "deal_analytics"
	KeyMarketHealth      = "market_health"
	KeyListingAnalytics  = "listing_analytics"
)

// Cache entry source tags.
const (
	SourceScheduler  = "scheduler"
	SourceAPIRequest = "api_request"
)

// derivedKeys are computed from the listing snapshot and must be dropped
// whenever it changes.
var derivedKeys = []string{KeyMarketInsights, KeyDealAnalytics, KeyMarketHealth, KeyListingAnalytics}

// Sources groups the data-source collaborators. MD999 is nil when disabled.
type Sources struct {
	Proimobil   scraper.ListingSource
	Accesimobil scraper.PriceSource
	MD999       scraper.PriceSource
}

// MarketService serves market data cache-aside: cached values are returned
// as they are (stale included) and misses are fetched synchronously.
// Concurrent misses for the same key share one fetch.
type MarketService struct {
	cache   storage.Store
	sources Sources
	cleaner *Cleaner
	logger  *utils.Logger
	group   singleflight.Group
	now     func() time.Time

	// genMu orders derived writes against snapshot replacement. gen counts
	// listing snapshots written so far.
	genMu sync.Mutex
	gen   uint64
}

// NewMarketService wires the cache and the data sources.
func NewMarketService(cache storage.Store, sources Sources, logger *utils.Logger) *MarketService {
	return &MarketService{
		cache:   cache,
		sources: sources,
		cleaner: NewCleaner(logger),
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces time.Now for the time-based analytics.
func (s *MarketService) SetClock(now func() time.Time) {
	s.now = now
}

// MD999Enabled reports whether the 999.md source is configured.
func (s *MarketService) MD999Enabled() bool {
	return s.sources.MD999 != nil
}

// cached returns the value under key, loading and storing it on a miss.
func cached[T any](s *MarketService, key string, load func() (T, error)) (T, models.CacheInfo, error) {
	if v, info, ok := storage.GetAs[T](s.cache, key); ok {
		return v, info, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		val, err := load()
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, val, SourceAPIRequest)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, models.CacheInfo{}, err
	}
	return v.(T), models.CacheInfo{Timestamp: s.now(), Source: SourceAPIRequest}, nil
}

// snapshotAttempts bounds how often a derived loader re-reads the listings
// when a refresh lands while it is reading them.
const snapshotAttempts = 3

// derived returns the value under key, computing it from the listing
// snapshot on a miss. The result is only stored when no newer snapshot was
// written while it was computed.
func derived[T any](ctx context.Context, s *MarketService, key string, compute func([]*models.Listing) (T, error)) (T, models.CacheInfo, error) {
	if v, info, ok := storage.GetAs[T](s.cache, key); ok {
		return v, info, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		listings, gen, err := s.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		val, err := compute(listings)
		if err != nil {
			return nil, err
		}

		s.genMu.Lock()
		defer s.genMu.Unlock()
		if s.gen == gen {
			s.cache.Set(key, val, SourceAPIRequest)
		} else {
			s.logger.Debug("[market] Listings replaced while computing %s — not caching", key)
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, models.CacheInfo{}, err
	}
	return v.(T), models.CacheInfo{Timestamp: s.now(), Source: SourceAPIRequest}, nil
}

// snapshot returns the listings together with the generation they belong to.
func (s *MarketService) snapshot(ctx context.Context) ([]*models.Listing, uint64, error) {
	var (
		listings []*models.Listing
		gen      uint64
		err      error
	)
	for i := 0; i < snapshotAttempts; i++ {
		gen = s.generation()
		listings, _, err = s.Listings(ctx)
		if err != nil {
			return nil, 0, err
		}
		if s.generation() == gen {
			return listings, gen, nil
		}
	}
	return listings, gen, nil
}

func (s *MarketService) generation() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen
}

// RefreshProimobil fetches and cleans the proimobil listings, rewrites the
// listing and stats keys and drops every derived key.
func (s *MarketService) RefreshProimobil(ctx context.Context, source string) (int, error) {
	listings, err := s.fetchProimobil(ctx, source)
	if err != nil {
		return 0, err
	}
	return len(listings), nil
}

func (s *MarketService) fetchProimobil(ctx context.Context, source string) ([]*models.Listing, error) {
	raw, err := s.sources.Proimobil.FetchListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("market: fetch %s: %w", s.sources.Proimobil.Name(), err)
	}
	listings := s.cleaner.Clean(raw)
	stats := ComputeMarketStats(KeyProimobilStats, s.sources.Proimobil.URL(), PricesPerSqm(listings))
	stats.TotalAds = len(listings)

	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gen++
	s.cache.Set(KeyProimobilListings, listings, source)
	s.cache.Set(KeyProimobilStats, stats, source)
	for _, key := range derivedKeys {
		s.cache.Invalidate(key)
	}
	return listings, nil
}

// RefreshAccesimobil fetches accesimobil samples and rewrites its stats.
func (s *MarketService) RefreshAccesimobil(ctx context.Context, source string) (int, error) {
	stats, err := s.fetchPrices(ctx, s.sources.Accesimobil)
	if err != nil {
		return 0, err
	}
	s.cache.Set(KeyAccesimobil, stats, source)
	return stats.TotalAds, nil
}

// RefreshMD999 fetches 999.md samples and rewrites its stats.
func (s *MarketService) RefreshMD999(ctx context.Context, source string) (int, error) {
	if s.sources.MD999 == nil {
		return 0, ErrSourceDisabled
	}
	stats, err := s.fetchPrices(ctx, s.sources.MD999)
	if err != nil {
		return 0, err
	}
	s.cache.Set(Key999MD, stats, source)
	return stats.TotalAds, nil
}

func (s *MarketService) fetchPrices(ctx context.Context, src scraper.PriceSource) (*models.MarketStats, error) {
	prices, err := src.FetchPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("market: fetch %s: %w", src.Name(), err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("market: fetch %s: no price values found", src.Name())
	}
	return ComputeMarketStats(src.Name(), src.URL(), prices), nil
}

// Listings returns the proimobil listing snapshot.
func (s *MarketService) Listings(ctx context.Context) ([]*models.Listing, models.CacheInfo, error) {
	if v, info, ok := storage.GetAs[[]*models.Listing](s.cache, KeyProimobilListings); ok {
		return v, info, nil
	}
	v, err, _ := s.group.Do(KeyProimobilListings, func() (any, error) {
		return s.fetchProimobil(ctx, SourceAPIRequest)
	})
	if err != nil {
		return nil, models.CacheInfo{}, err
	}
	return v.([]*models.Listing), models.CacheInfo{Timestamp: s.now(), Source: SourceAPIRequest}, nil
}

// ProimobilStats returns the price-per-area stats of the proimobil listings.
func (s *MarketService) ProimobilStats(ctx context.Context) (*models.MarketStats, models.CacheInfo, error) {
	return derived(ctx, s, KeyProimobilStats, func(listings []*models.Listing) (*models.MarketStats, error) {
		stats := ComputeMarketStats(KeyProimobilStats, s.sources.Proimobil.URL(), PricesPerSqm(listings))
		stats.TotalAds = len(listings)
		return stats, nil
	})
}

// AccesimobilStats returns the accesimobil price-per-area stats.
func (s *MarketService) AccesimobilStats(ctx context.Context) (*models.MarketStats, models.CacheInfo, error) {
	return cached(s, KeyAccesimobil, func() (*models.MarketStats, error) {
		return s.fetchPrices(ctx, s.sources.Accesimobil)
	})
}

// MD999Stats returns the 999.md price-per-area stats.
func (s *MarketService) MD999Stats(ctx context.Context) (*models.MarketStats, models.CacheInfo, error) {
	if s.sources.MD999 == nil {
		return nil, models.CacheInfo{}, ErrSourceDisabled
	}
	return cached(s, Key999MD, func() (*models.MarketStats, error) {
		return s.fetchPrices(ctx, s.sources.MD999)
	})
}

// allSamples gathers the samples of every enabled source. A failing source
// is logged and left out.
func (s *MarketService) allSamples(ctx context.Context) ([]float64, map[string]int) {
	type loader struct {
		name string
		get  func(context.Context) (*models.MarketStats, models.CacheInfo, error)
	}
	loaders := []loader{
		{KeyProimobilStats, s.ProimobilStats},
		{KeyAccesimobil, s.AccesimobilStats},
	}
	if s.MD999Enabled() {
		loaders = append(loaders, loader{Key999MD, s.MD999Stats})
	}

	var all []float64
	perSource := make(map[string]int, len(loaders))
	for _, l := range loaders {
		stats, _, err := l.get(ctx)
		if err != nil {
			s.logger.Warn("[market] %s unavailable for combined stats: %v", l.name, err)
			perSource[l.name] = 0
			continue
		}
		all = append(all, stats.Prices...)
		perSource[l.name] = len(stats.Prices)
	}
	return all, perSource
}

// Distribution returns the combined price histogram across sources.
func (s *MarketService) Distribution(ctx context.Context) models.DistributionSummary {
	samples, _ := s.allSamples(ctx)
	return PriceDistributionSummary(samples)
}

// Quartiles returns the combined quartile report across sources.
func (s *MarketService) Quartiles(ctx context.Context) models.QuartileReport {
	samples, perSource := s.allSamples(ctx)
	return BuildQuartileReport(samples, perSource)
}

// Insights returns the market analysis of the listing snapshot.
func (s *MarketService) Insights(ctx context.Context) (*models.MarketInsights, models.CacheInfo, error) {
	return derived(ctx, s, KeyMarketInsights, func(listings []*models.Listing) (*models.MarketInsights, error) {
		return AnalyzeMarket(listings)
	})
}

// DealAnalytics returns price analysis, best deals and conversion rates.
func (s *MarketService) DealAnalytics(ctx context.Context) (*models.DealAnalytics, models.CacheInfo, error) {
	return derived(ctx, s, KeyDealAnalytics, func(listings []*models.Listing) (*models.DealAnalytics, error) {
		return AnalyzeDeals(listings, s.now()), nil
	})
}

// MarketHealth returns sector health and the time-to-sell model.
func (s *MarketService) MarketHealth(ctx context.Context) (*models.MarketHealth, models.CacheInfo, error) {
	return derived(ctx, s, KeyMarketHealth, func(listings []*models.Listing) (*models.MarketHealth, error) {
		return AssessMarketHealth(listings, s.now()), nil
	})
}

// ListingAnalytics returns time-on-market and engagement figures.
func (s *MarketService) ListingAnalytics(ctx context.Context) (*models.ListingAnalytics, models.CacheInfo, error) {
	return derived(ctx, s, KeyListingAnalytics, func(listings []*models.Listing) (*models.ListingAnalytics, error) {
		return AnalyzeListings(listings, s.now()), nil
	})
}

// Investment ranks sectors by attractiveness.
func (s *MarketService) Investment(ctx context.Context) (*models.InvestmentInsights, error) {
	listings, _, err := s.Listings(ctx)
	if err != nil {
		return nil, err
	}
	return InvestmentInsights(listings, s.now()), nil
}

// Trends returns daily activity over the trailing window.
func (s *MarketService) Trends(ctx context.Context, windowDays int) (*models.MarketTrends, error) {
	listings, _, err := s.Listings(ctx)
	if err != nil {
		return nil, err
	}
	return MarketTrends(listings, s.now(), windowDays), nil
}

func (s *MarketService) findListing(ctx context.Context, id string) (*models.Listing, []*models.Listing, error) {
	listings, _, err := s.Listings(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, l := range listings {
		if l.ID == id {
			return l, listings, nil
		}
	}
	return nil, listings, fmt.Errorf("market: listing %q: %w", id, ErrListingNotFound)
}

// ScoreListing scores one listing against the current insights.
func (s *MarketService) ScoreListing(ctx context.Context, id string) (models.PropertyScore, error) {
	listing, _, err := s.findListing(ctx, id)
	if err != nil {
		return models.PropertyScore{}, err
	}
	insights, _, err := s.Insights(ctx)
	if err != nil {
		return models.PropertyScore{}, err
	}
	return ScoreProperty(listing, insights), nil
}

// PredictPrice estimates the price of a hypothetical property.
func (s *MarketService) PredictPrice(ctx context.Context, surface float64, rooms int, sector string) (models.PricePrediction, error) {
	insights, _, err := s.Insights(ctx)
	if err != nil {
		return models.PricePrediction{}, err
	}
	return PredictPrice(surface, rooms, sector, insights), nil
}

// SimilarListings ranks listings by similarity to the given one.
func (s *MarketService) SimilarListings(ctx context.Context, id string, limit int) ([]models.SimilarListing, error) {
	ref, listings, err := s.findListing(ctx, id)
	if err != nil {
		return nil, err
	}
	return FindSimilar(ref, listings, limit), nil
}

// Export writes the listing snapshot to w.
func (s *MarketService) Export(ctx context.Context, w storage.ListingWriter) (int, error) {
	listings, _, err := s.Listings(ctx)
	if err != nil {
		return 0, err
	}
	if err := w.Write(listings); err != nil {
		return 0, fmt.Errorf("market: export: %w", err)
	}
	return len(listings), nil
}

// IsNotFound reports whether err means "no data" to a client.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoListings) || errors.Is(err, ErrListingNotFound)
}
