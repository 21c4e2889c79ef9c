package services

import (
	"realestate-market/models"
)

type priceInterval struct {
	start float64
	end   *float64
	label string
}

func bound(v float64) *float64 { return &v }

// priceIntervals are the fixed €/m² bands used for every histogram.
var priceIntervals = []priceInterval{
	{0, bound(1100), "<1100"},
	{1100, bound(1500), "1100-1500"},
	{1500, bound(1800), "1500-1800"},
	{1800, bound(2200), "1800-2200"},
	{2200, bound(2600), "2200-2600"},
	{2600, bound(3000), "2600-3000"},
	{3000, bound(3500), "3000-3500"},
	{3500, nil, ">3500"},
}

// BuildHistogram buckets samples into the fixed price bands. NaN values
// count as missing. Empty input yields no bins.
func BuildHistogram(samples []float64) []models.HistogramBin {
	data := validSamples(samples)
	if len(data) == 0 {
		return []models.HistogramBin{}
	}

	total := float64(len(data))
	bins := make([]models.HistogramBin, 0, len(priceIntervals))
	for _, iv := range priceIntervals {
		bin := models.HistogramBin{Start: iv.start, Label: iv.label}
		if iv.end != nil {
			end := *iv.end
			bin.End = &end
		}
		for _, p := range data {
			if p < 0 {
				p = 0
			}
			if bin.Contains(p) {
				bin.Count++
			}
		}
		bin.Percentage = round1(float64(bin.Count) / total * 100)
		bins = append(bins, bin)
	}
	return bins
}

// PriceDistributionSummary returns the histogram with its dominant band.
// Ties go to the lowest band.
func PriceDistributionSummary(samples []float64) models.DistributionSummary {
	bins := BuildHistogram(samples)
	if len(bins) == 0 {
		return models.DistributionSummary{Histogram: bins}
	}

	dominant := 0
	total := 0
	for i, b := range bins {
		total += b.Count
		if b.Count > bins[dominant].Count {
			dominant = i
		}
	}

	label := bins[dominant].Label
	return models.DistributionSummary{
		TotalAds:           total,
		Histogram:          bins,
		DominantRange:      &label,
		DominantPercentage: bins[dominant].Percentage,
	}
}
