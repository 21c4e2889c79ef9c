package models

// QuartileResult holds Q1, median, Q3 and the interquartile range of a sample set.
type QuartileResult struct {
	Q1  float64 `json:"q1"`
	Q2  float64 `json:"q2"`
	Q3  float64 `json:"q3"`
	IQR float64 `json:"iqr"`
}

// HistogramBin is one fixed price-per-area range. A nil End means the bin
// is unbounded above.
type HistogramBin struct {
	Start      float64  `json:"start"`
	End        *float64 `json:"end"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
	Label      string   `json:"label"`
}

// Contains reports whether x falls in the bin: [Start, End) or x >= Start
// for the unbounded bin.
func (b HistogramBin) Contains(x float64) bool {
	if b.End == nil {
		return x >= b.Start
	}
	return x >= b.Start && x < *b.End
}

// DistributionSummary is the histogram plus its dominant bin.
type DistributionSummary struct {
	TotalAds           int            `json:"total_ads"`
	Histogram          []HistogramBin `json:"histogram"`
	DominantRange      *string        `json:"dominant_range"`
	DominantPercentage float64        `json:"dominant_percentage"`
}

// MarketStats are the price-per-area statistics computed for one source.
type MarketStats struct {
	Source             string         `json:"source"`
	URL                string         `json:"url,omitempty"`
	TotalAds           int            `json:"total_ads"`
	MinPricePerSqm     float64        `json:"min_price_per_sqm"`
	MaxPricePerSqm     float64        `json:"max_price_per_sqm"`
	AvgPricePerSqm     float64        `json:"avg_price_per_sqm"`
	MedianPricePerSqm  float64        `json:"median_price_per_sqm"`
	PriceHistogram     []HistogramBin `json:"price_histogram,omitempty"`
	DominantRange      string         `json:"dominant_range,omitempty"`
	DominantPercentage float64        `json:"dominant_percentage,omitempty"`
	Q1PricePerSqm      float64        `json:"q1_price_per_sqm"`
	Q2PricePerSqm      float64        `json:"q2_price_per_sqm"`
	Q3PricePerSqm      float64        `json:"q3_price_per_sqm"`
	IQRPricePerSqm     float64        `json:"iqr_price_per_sqm"`

	// Prices keeps the raw samples so combined distributions can be rebuilt
	// from cached per-source stats.
	Prices []float64 `json:"-"`
}

// QuartileInterpretation describes a quartile result in words.
type QuartileInterpretation struct {
	MarketWidth           string `json:"market_width"`
	PriceRangeDescription string `json:"price_range_description"`
	IQRDescription        string `json:"iqr_description"`
	BudgetRange           string `json:"budget_range"`
	AffordableRange       string `json:"affordable_range"`
	MidRange              string `json:"mid_range"`
	PremiumRange          string `json:"premium_range"`
}

// QuartileReport is the combined quartile analysis across sources.
type QuartileReport struct {
	QuartileResult
	TotalAds           int                     `json:"total_ads"`
	OutliersRemoved    int                     `json:"outliers_removed"`
	OutliersPercentage float64                 `json:"outliers_percentage"`
	Interpretation     *QuartileInterpretation `json:"interpretation,omitempty"`
	Sources            map[string]int          `json:"sources"`
}
