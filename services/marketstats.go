package services

import (
	"realestate-market/models"
)

// ComputeMarketStats summarises the price-per-area samples of one source.
// Empty input yields zero stats.
func ComputeMarketStats(source, url string, prices []float64) *models.MarketStats {
	data := validSamples(prices)
	stats := &models.MarketStats{
		Source:   source,
		URL:      url,
		TotalAds: len(data),
		Prices:   data,
	}
	if len(data) == 0 {
		return stats
	}

	lo, hi := minMax(data)
	stats.MinPricePerSqm = round2(lo)
	stats.MaxPricePerSqm = round2(hi)
	stats.AvgPricePerSqm = round2(mean(data))
	stats.MedianPricePerSqm = round2(median(data))

	summary := PriceDistributionSummary(data)
	stats.PriceHistogram = summary.Histogram
	if summary.DominantRange != nil {
		stats.DominantRange = *summary.DominantRange
	}
	stats.DominantPercentage = summary.DominantPercentage

	q := CalculateQuartiles(data)
	stats.Q1PricePerSqm = q.Q1
	stats.Q2PricePerSqm = q.Q2
	stats.Q3PricePerSqm = q.Q3
	stats.IQRPricePerSqm = q.IQR
	return stats
}

// PricesPerSqm extracts the positive price-per-area values of listings.
func PricesPerSqm(listings []*models.Listing) []float64 {
	prices := make([]float64, 0, len(listings))
	for _, l := range listings {
		if l.PricePerSqm > 0 {
			prices = append(prices, l.PricePerSqm)
		}
	}
	return prices
}
