package models

// SectorStats are the aggregates for one sector.
type SectorStats struct {
	Sector         string  `json:"sector"`
	Count          int     `json:"count"`
	AvgPriceEUR    float64 `json:"avg_price_eur"`
	AvgSurfaceSqm  float64 `json:"avg_surface_sqm"`
	AvgPricePerSqm float64 `json:"avg_price_per_sqm"`
	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
}

// SectorCount pairs a sector with a listing count.
type SectorCount struct {
	Sector string `json:"sector"`
	Count  int    `json:"count"`
}

// SectorValue pairs a sector with a price-per-area value.
type SectorValue struct {
	Sector string  `json:"sector"`
	Value  float64 `json:"value"`
}

// PriceRangeCount is the number of listings in one absolute price band.
type PriceRangeCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MarketInsights is the full market analysis over a listing collection.
type MarketInsights struct {
	TotalListings      int                     `json:"total_listings"`
	AveragePriceEUR    float64                 `json:"average_price_eur"`
	MedianPriceEUR     float64                 `json:"median_price_eur"`
	AveragePricePerSqm float64                 `json:"average_price_per_sqm"`
	MedianPricePerSqm  float64                 `json:"median_price_per_sqm"`
	SectorStats        map[string]*SectorStats `json:"sector_stats"`
	SectorOrder        []string                `json:"sector_order"`
	TopSectorsByVolume []SectorCount           `json:"top_sectors_by_volume"`
	TopSectorsByPrice  []SectorValue           `json:"top_sectors_by_price"`
	AverageSurface     float64                 `json:"average_surface"`
	RoomDistribution   map[int]int             `json:"room_distribution"`
	MostCommonRooms    int                     `json:"most_common_rooms"`
	PriceRanges        []PriceRangeCount       `json:"price_ranges"`
	UnderpricedCount   int                     `json:"underpriced_count"`
	OverpricedCount    int                     `json:"overpriced_count"`
	FairPricedCount    int                     `json:"fair_priced_count"`
	PremiumSectors     []string                `json:"premium_features"`
	BudgetSectors      []string                `json:"budget_indicators"`
	BestValueSectors   []SectorValue           `json:"best_value_sectors"`
	EmergingAreas      []string                `json:"emerging_areas"`
}

// PropertyScore is the value assessment of one listing against the market.
type PropertyScore struct {
	ListingID           string     `json:"listing_id"`
	PriceScore          float64    `json:"price_score"`
	LocationScore       float64    `json:"location_score"`
	SizeScore           float64    `json:"size_score"`
	OverallScore        float64    `json:"overall_score"`
	ValueAssessment     string     `json:"value_assessment"`
	PredictedPriceRange [2]float64 `json:"predicted_price_range"`
	VsMarketPercentage  float64    `json:"vs_market_percentage"`
}

// ConfidenceInterval bounds a price prediction.
type ConfidenceInterval struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Confidence string  `json:"confidence"`
}

// PredictionInputs echoes the inputs of a price prediction.
type PredictionInputs struct {
	SurfaceSqm float64 `json:"surface_sqm"`
	Rooms      int     `json:"rooms"`
	Sector     string  `json:"sector"`
}

// MarketComparison relates a prediction to the market median.
type MarketComparison struct {
	VsMarketMedianPct    float64 `json:"vs_market_median_pct"`
	MarketMedianPriceSqm float64 `json:"market_median_price_sqm"`
}

// PricePrediction is the estimated price of a hypothetical property.
type PricePrediction struct {
	PredictedPriceEUR    float64            `json:"predicted_price_eur"`
	PredictedPricePerSqm float64            `json:"predicted_price_per_sqm"`
	ConfidenceInterval   ConfidenceInterval `json:"confidence_interval"`
	Inputs               PredictionInputs   `json:"inputs"`
	MarketComparison     MarketComparison   `json:"market_comparison"`
}

// SimilarListing is a listing ranked by similarity to a reference.
type SimilarListing struct {
	*Listing
	SimilarityScore float64 `json:"similarity_score"`
}
