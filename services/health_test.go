package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-market/models"
)

// healthListings: three sold listings (two Botanica|2 in the last 30 days,
// one Centru|3 sold 60 days ago) and three active ones.
func healthListings() []*models.Listing {
	s1 := newListing("s1", "Botanica", 60000, 50, 2)
	s1.Sold = true
	s1.CreatedAt, s1.UpdatedAt = daysAgo(40), daysAgo(10)

	s2 := newListing("s2", "Botanica", 62000, 50, 2)
	s2.Sold = true
	s2.CreatedAt, s2.UpdatedAt = daysAgo(25), daysAgo(5)

	s3 := newListing("s3", "Centru", 150000, 75, 3)
	s3.Sold = true
	s3.CreatedAt, s3.UpdatedAt = daysAgo(100), daysAgo(60)

	a1 := newListing("a1", "Botanica", 64000, 50, 2)
	a1.CreatedAt = daysAgo(3)

	a2 := newListing("a2", "Ciocana", 40000, 30, 1)
	a2.CreatedAt = daysAgo(1)

	a3 := newListing("a3", "Centru", 160000, 80, 3)
	a3.CreatedAt = daysAgo(50)

	return []*models.Listing{s1, s2, s3, a1, a2, a3}
}

func predictionFor(t *testing.T, tts models.TimeToSell, id string) models.TimeToSellPrediction {
	t.Helper()
	for _, p := range tts.Predictions {
		if p.ListingID == id {
			return p
		}
	}
	t.Fatalf("no prediction for %s", id)
	return models.TimeToSellPrediction{}
}

func TestPredictTimeToSell(t *testing.T) {
	tts := PredictTimeToSell(healthListings())

	assert.Equal(t, 3, tts.SampleSize)
	require.NotNil(t, tts.GlobalMedianDays)
	assert.Equal(t, 30.0, *tts.GlobalMedianDays)
	assert.Equal(t, 25.0, tts.SegmentMedians["Botanica|2"])
	assert.Equal(t, 40.0, tts.SegmentMedians["Centru|3"])
	assert.Len(t, tts.Predictions, 3)

	a1 := predictionFor(t, tts, "a1")
	require.NotNil(t, a1.PredictedDays)
	assert.Equal(t, 25.0, *a1.PredictedDays)
	assert.Equal(t, 2, a1.SampleSize)
	assert.Equal(t, ConfidenceLow, a1.Confidence)

	a2 := predictionFor(t, tts, "a2")
	require.NotNil(t, a2.PredictedDays)
	assert.Equal(t, 30.0, *a2.PredictedDays)
	assert.Zero(t, a2.SampleSize)
	assert.Equal(t, ConfidenceVeryLow, a2.Confidence)
}

func TestPredictTimeToSellWithoutSales(t *testing.T) {
	tts := PredictTimeToSell(sampleListings())

	assert.Zero(t, tts.SampleSize)
	assert.Nil(t, tts.GlobalMedianDays)
	require.Len(t, tts.Predictions, len(sampleListings()))
	for _, p := range tts.Predictions {
		assert.Nil(t, p.PredictedDays)
		assert.Equal(t, ConfidenceVeryLow, p.Confidence)
	}
}

func TestConfidenceFor(t *testing.T) {
	assert.Equal(t, ConfidenceVeryLow, confidenceFor(0))
	assert.Equal(t, ConfidenceLow, confidenceFor(4))
	assert.Equal(t, ConfidenceMedium, confidenceFor(5))
	assert.Equal(t, ConfidenceHigh, confidenceFor(20))
}

func TestAssessMarketHealth(t *testing.T) {
	h := AssessMarketHealth(healthListings(), testNow)
	require.Len(t, h.Sectors, 3)

	botanica := h.Sectors[0]
	assert.Equal(t, "Botanica", botanica.Sector)
	assert.Equal(t, 1, botanica.ActiveListings)
	assert.Equal(t, 2, botanica.SoldLast30Days)
	assert.Equal(t, 2, botanica.NewLast30Days)
	assert.Equal(t, 0.5, botanica.StressIndex)
	require.NotNil(t, botanica.HealthScore)
	assert.Equal(t, 9.07, *botanica.HealthScore)

	centru := h.Sectors[1]
	assert.Zero(t, centru.SoldLast30Days)
	assert.Equal(t, 1.0, centru.StressIndex)
	assert.Equal(t, -37.5, *centru.HealthScore)

	ciocana := h.Sectors[2]
	assert.Equal(t, -0.3, *ciocana.HealthScore)

	require.NotNil(t, h.GlobalHealthScore)
	assert.Equal(t, -9.58, *h.GlobalHealthScore)
	assert.Equal(t, 3, h.TimeToSell.SampleSize)
}

func TestWithinLastExcludesWindowEdge(t *testing.T) {
	assert.True(t, withinLast(daysAgo(29), testNow, recentActivityWindow))
	assert.False(t, withinLast(daysAgo(30), testNow, recentActivityWindow))
	assert.False(t, withinLast(nil, testNow, recentActivityWindow))
	assert.False(t, withinLast(daysAgo(-1), testNow, recentActivityWindow))
}

func TestAnalyzeListings(t *testing.T) {
	l1 := newListing("l1", "Botanica", 50000, 50, 2)
	l1.CreatedAt, l1.Views, l1.Orders, l1.IsHot = daysAgo(1), 10, 1, true
	l2 := newListing("l2", "Botanica", 52000, 50, 2)
	l2.CreatedAt, l2.Views, l2.Orders, l2.Booked = daysAgo(10), 100, 2, true
	l3 := newListing("l3", "Centru", 90000, 60, 3)
	l3.CreatedAt, l3.Orders, l3.Sold, l3.IsExclusive = daysAgo(20), 3, true, true
	l4 := newListing("l4", "", 40000, 40, 0)
	l4.Views, l4.Orders = 50, 2

	a := AnalyzeListings([]*models.Listing{l1, l2, l3, l4}, testNow)

	assert.Equal(t, 4, a.TotalListings)
	assert.Equal(t, 10.33, a.TimeOnMarket.AvgDays)
	assert.Equal(t, 10.0, a.TimeOnMarket.MedianDays)
	assert.Equal(t, 10.0, a.TimeOnMarket.P75Days)
	assert.Equal(t, 20, a.TimeOnMarket.MaxDays)

	assert.Equal(t, 1, a.Reservations.TotalBooked)
	assert.Equal(t, 1, a.Reservations.TotalSold)
	assert.Equal(t, 2.0, a.Reservations.AvgOrdersPerListing)
	assert.Equal(t, 40.0, a.Engagement.AvgViewsPerListing)
	assert.Equal(t, 6.67, a.Engagement.ViewsPerDayAvg)
	assert.Equal(t, 0.25, a.HotOffersRatio)
	assert.Equal(t, 0.25, a.ExclusiveRatio)

	assert.Equal(t, 2, len(a.TimeOnMarketByGroup.BySector))
	assert.Contains(t, a.TimeOnMarketByGroup.ByRooms, "2")
	assert.NotContains(t, a.TimeOnMarketByGroup.BySector, "")
}

func TestAnalyzeListingsEmpty(t *testing.T) {
	a := AnalyzeListings(nil, testNow)
	assert.Zero(t, a.TotalListings)
	assert.Equal(t, models.TimeOnMarketStats{}, a.TimeOnMarket)
}
