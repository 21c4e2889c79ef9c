package models

// GroupStats summarises price-per-area for one group of listings.
type GroupStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// GlobalPriceStats summarises price-per-area over all listings.
type GlobalPriceStats struct {
	GroupStats
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PriceAnalysis groups price-per-area by the listing dimensions.
type PriceAnalysis struct {
	Global       GlobalPriceStats       `json:"global"`
	BySector     map[string]*GroupStats `json:"by_sector"`
	ByCondition  map[string]*GroupStats `json:"by_condition"`
	ByState      map[string]*GroupStats `json:"by_state"`
	ByRooms      map[string]*GroupStats `json:"by_rooms"`
	ByFloor      map[string]*GroupStats `json:"by_floor_category"`
	ByAreaBucket map[string]*GroupStats `json:"by_area_bucket"`
}

// DealScore rates one listing against its segment baseline.
type DealScore struct {
	ListingID      string   `json:"listing_id"`
	URL            string   `json:"url,omitempty"`
	Sector         string   `json:"sector"`
	Rooms          *int     `json:"rooms,omitempty"`
	PriceEUR       float64  `json:"price_eur"`
	PricePerSqm    float64  `json:"price_per_sqm"`
	BaselinePerSqm *float64 `json:"baseline_price_per_sqm"`
	BelowMarketPct *float64 `json:"below_market_pct"`
	ViewsPerDay    float64  `json:"views_per_day"`
	Score          *float64 `json:"score"`
}

// ConversionStats are booking and sale rates for one group.
type ConversionStats struct {
	Total      int     `json:"total"`
	Booked     int     `json:"booked"`
	Sold       int     `json:"sold"`
	BookedRate float64 `json:"booked_rate"`
	SoldRate   float64 `json:"sold_rate"`
}

// DealAnalytics bundles price analysis, deal ranking and conversion rates.
type DealAnalytics struct {
	PriceAnalysis         PriceAnalysis               `json:"price_analysis"`
	BestDeals             []DealScore                 `json:"best_deals"`
	ConversionBySector    map[string]*ConversionStats `json:"conversion_by_sector"`
	ConversionByCondition map[string]*ConversionStats `json:"conversion_by_condition"`
	ConversionByState     map[string]*ConversionStats `json:"conversion_by_state"`
}

// SectorInvestment holds the investment metrics of one sector.
type SectorInvestment struct {
	Sector              string   `json:"sector"`
	Count               int      `json:"count"`
	AvgPriceEUR         *float64 `json:"avg_price_eur"`
	AvgPricePerSqm      *float64 `json:"avg_price_per_sqm"`
	AvgDaysOnMarket     *float64 `json:"avg_days_on_market"`
	MedianDaysOnMarket  *float64 `json:"median_days_on_market"`
	BookedRate          float64  `json:"booked_rate"`
	SoldRate            float64  `json:"sold_rate"`
	AttractivenessScore *float64 `json:"attractiveness_score"`
}

// InvestmentInsights ranks sectors by attractiveness.
type InvestmentInsights struct {
	Sectors    []SectorInvestment `json:"sectors"`
	TopSectors []SectorInvestment `json:"top_sectors"`
}

// DailyCount is the number of events on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AgeBucketStats is price-per-area for listings of a given age band.
type AgeBucketStats struct {
	Bucket         string   `json:"bucket"`
	Count          int      `json:"count"`
	AvgPricePerSqm *float64 `json:"avg_price_per_sqm"`
}

// MarketTrends are daily activity counts and price by listing age.
type MarketTrends struct {
	WindowDays        int              `json:"window_days"`
	NewListingsDaily  []DailyCount     `json:"new_listings_daily"`
	UpdatedDaily      []DailyCount     `json:"updated_listings_daily"`
	PriceByListingAge []AgeBucketStats `json:"price_by_listing_age"`
}

// TimeToSellPrediction is the expected selling time of an active listing.
type TimeToSellPrediction struct {
	ListingID     string   `json:"listing_id"`
	Sector        string   `json:"sector"`
	Rooms         *int     `json:"rooms,omitempty"`
	PredictedDays *float64 `json:"predicted_days"`
	SampleSize    int      `json:"sample_size"`
	Confidence    string   `json:"confidence"`
}

// TimeToSell holds the sale-duration model and its predictions.
type TimeToSell struct {
	GlobalMedianDays *float64               `json:"global_median_days"`
	SampleSize       int                    `json:"sample_size"`
	SegmentMedians   map[string]float64     `json:"segment_medians"`
	Predictions      []TimeToSellPrediction `json:"predictions"`
}

// SectorHealth is the supply/demand picture of one sector.
type SectorHealth struct {
	Sector          string   `json:"sector"`
	ActiveListings  int      `json:"active_listings"`
	SoldLast30Days  int      `json:"sold_last_30_days"`
	NewLast30Days   int      `json:"new_last_30_days"`
	AvgDaysOnMarket *float64 `json:"avg_days_on_market"`
	StressIndex     float64  `json:"stress_index"`
	HealthScore     *float64 `json:"health_score"`
}

// MarketHealth aggregates sector health and time-to-sell.
type MarketHealth struct {
	GlobalHealthScore *float64       `json:"global_health_score"`
	Sectors           []SectorHealth `json:"sectors"`
	TimeToSell        TimeToSell     `json:"time_to_sell"`
}

// TimeOnMarketStats describes how long listings have been published.
type TimeOnMarketStats struct {
	AvgDays    float64 `json:"avg_days"`
	MedianDays float64 `json:"median_days"`
	P75Days    float64 `json:"p75_days"`
	MaxDays    int     `json:"max_days"`
}

// TimeOnMarketByGroup splits time-on-market by listing dimension.
type TimeOnMarketByGroup struct {
	BySector    map[string]TimeOnMarketStats `json:"by_sector"`
	ByState     map[string]TimeOnMarketStats `json:"by_state"`
	ByCondition map[string]TimeOnMarketStats `json:"by_condition"`
	ByRooms     map[string]TimeOnMarketStats `json:"by_rooms"`
}

// ReservationStats counts bookings and sales.
type ReservationStats struct {
	TotalBooked         int     `json:"total_booked"`
	TotalSold           int     `json:"total_sold"`
	AvgOrdersPerListing float64 `json:"avg_orders_per_listing"`
}

// EngagementStats describes listing views.
type EngagementStats struct {
	AvgViewsPerListing float64 `json:"avg_views_per_listing"`
	ViewsPerDayAvg     float64 `json:"views_per_day_avg"`
}

// ListingAnalytics is the listing-level activity report.
type ListingAnalytics struct {
	TotalListings       int                 `json:"total_listings"`
	TimeOnMarket        TimeOnMarketStats   `json:"time_on_market"`
	TimeOnMarketByGroup TimeOnMarketByGroup `json:"time_on_market_by_group"`
	Reservations        ReservationStats    `json:"reservations"`
	Engagement          EngagementStats     `json:"engagement"`
	HotOffersRatio      float64             `json:"hot_offers_ratio"`
	ExclusiveRatio      float64             `json:"exclusive_ratio"`
}
