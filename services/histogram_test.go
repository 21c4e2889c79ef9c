package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestPriceDistributionSummaryDominantCluster(t *testing.T) {
	var prices []float64
	prices = append(prices, repeat(2000, 10)...)
	prices = append(prices, repeat(1400, 2)...)
	prices = append(prices, repeat(3200, 3)...)

	s := PriceDistributionSummary(prices)

	assert.Equal(t, 15, s.TotalAds)
	require.NotNil(t, s.DominantRange)
	assert.Equal(t, "1800-2200", *s.DominantRange)
	assert.Greater(t, s.DominantPercentage, 50.0)
	assert.Equal(t, 66.7, s.DominantPercentage)

	total := 0
	for _, b := range s.Histogram {
		total += b.Count
	}
	assert.Equal(t, len(prices), total)
}

func TestBuildHistogramBoundaries(t *testing.T) {
	bins := BuildHistogram([]float64{-50, 1099.99, 1100, 3499, 3500, 99000})
	require.Len(t, bins, len(priceIntervals))

	counts := map[string]int{}
	for _, b := range bins {
		counts[b.Label] = b.Count
	}
	assert.Equal(t, 2, counts["<1100"])
	assert.Equal(t, 1, counts["1100-1500"])
	assert.Equal(t, 1, counts["3000-3500"])
	assert.Equal(t, 2, counts[">3500"])

	last := bins[len(bins)-1]
	assert.Nil(t, last.End)
	for i := 1; i < len(bins); i++ {
		require.NotNil(t, bins[i-1].End)
		assert.Equal(t, *bins[i-1].End, bins[i].Start, "bins must be contiguous")
	}
}

func TestBuildHistogramPercentagesSumToHundred(t *testing.T) {
	// Eleven samples over every band; each share is a repeating decimal.
	prices := []float64{950, 1234.5, 1650, 1999, 2450, 2777, 3333, 4100, 1510, 2201, 2999}

	bins := BuildHistogram(prices)
	require.Len(t, bins, len(priceIntervals))

	var sum float64
	count := 0
	for _, b := range bins {
		sum += b.Percentage
		count += b.Count
	}
	assert.Equal(t, len(prices), count)
	assert.InDelta(t, 100.0, sum, 1.0)
}

func TestPriceDistributionSummaryTieGoesToLowestBin(t *testing.T) {
	s := PriceDistributionSummary([]float64{1000, 1600})
	require.NotNil(t, s.DominantRange)
	assert.Equal(t, "<1100", *s.DominantRange)
	assert.Equal(t, 50.0, s.DominantPercentage)
}

func TestPriceDistributionSummaryEmpty(t *testing.T) {
	s := PriceDistributionSummary(nil)
	assert.Zero(t, s.TotalAds)
	assert.Empty(t, s.Histogram)
	assert.NotNil(t, s.Histogram)
	assert.Nil(t, s.DominantRange)
	assert.Zero(t, s.DominantPercentage)
}

func TestComputeMarketStats(t *testing.T) {
	s := ComputeMarketStats("accesimobil", "https://example.test", nineSamples)

	assert.Equal(t, "accesimobil", s.Source)
	assert.Equal(t, 9, s.TotalAds)
	assert.Equal(t, 1200.0, s.MinPricePerSqm)
	assert.Equal(t, 2400.0, s.MaxPricePerSqm)
	assert.Equal(t, 1755.56, s.AvgPricePerSqm)
	assert.Equal(t, 1700.0, s.MedianPricePerSqm)
	assert.Equal(t, s.MedianPricePerSqm, s.Q2PricePerSqm)
	assert.Equal(t, 650.0, s.IQRPricePerSqm)
	assert.NotEmpty(t, s.DominantRange)
	assert.Len(t, s.Prices, 9)
}

func TestComputeMarketStatsEmpty(t *testing.T) {
	s := ComputeMarketStats("999md", "", nil)
	assert.Zero(t, s.TotalAds)
	assert.Empty(t, s.PriceHistogram)
	assert.Empty(t, s.DominantRange)
}
