package services

import (
	"fmt"
	"sort"

	"realestate-market/models"
)

// Price position relative to the quartile range.
const (
	CategoryBelowMarket = "below_market"
	CategoryBudget      = "budget"
	CategoryAffordable  = "affordable"
	CategoryMidRange    = "mid_range"
	CategoryPremium     = "premium"
	CategoryLuxury      = "luxury"
)

// DefaultOutlierFactor is Tukey's fence multiplier.
const DefaultOutlierFactor = 1.5

// CalculateQuartiles returns Q1, median, Q3 and IQR rounded to 2 decimals.
// Cut points use the exclusive method: linear interpolation over n+1
// partitions of the sorted samples. Empty input yields zeros.
func CalculateQuartiles(samples []float64) models.QuartileResult {
	data := validSamples(samples)
	switch len(data) {
	case 0:
		return models.QuartileResult{}
	case 1:
		v := round2(data[0])
		return models.QuartileResult{Q1: v, Q2: v, Q3: v}
	}

	sort.Float64s(data)
	q1 := round2(exclusiveQuartile(data, 1))
	q2 := round2(exclusiveQuartile(data, 2))
	q3 := round2(exclusiveQuartile(data, 3))

	return models.QuartileResult{
		Q1:  q1,
		Q2:  q2,
		Q3:  q3,
		IQR: round2(q3 - q1),
	}
}

// exclusiveQuartile computes the i-th of 3 cut points over sorted data
// (len >= 2). Integer index math keeps it exact.
func exclusiveQuartile(sorted []float64, i int) float64 {
	const n = 4
	ld := len(sorted)
	m := ld + 1

	j := i * m / n
	if j < 1 {
		j = 1
	} else if j > ld-1 {
		j = ld - 1
	}
	delta := i*m - j*n
	return (sorted[j-1]*float64(n-delta) + sorted[j]*float64(delta)) / n
}

// RemoveOutliersIQR drops samples outside [Q1-factor*IQR, Q3+factor*IQR].
// Fewer than 4 samples are returned unchanged. Order is preserved.
func RemoveOutliersIQR(samples []float64, factor float64) ([]float64, int) {
	if len(samples) < 4 {
		return samples, 0
	}

	q := CalculateQuartiles(samples)
	lower := q.Q1 - factor*q.IQR
	upper := q.Q3 + factor*q.IQR

	filtered := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s >= lower && s <= upper {
			filtered = append(filtered, s)
		}
	}
	return filtered, len(samples) - len(filtered)
}

// InterpretPrice places price relative to the quartiles. The first matching
// threshold wins.
func InterpretPrice(price, q1, q3 float64) string {
	switch {
	case price < q1*0.85:
		return CategoryBelowMarket
	case price < q1:
		return CategoryBudget
	case price < (q1+q3)/2:
		return CategoryAffordable
	case price < q3:
		return CategoryMidRange
	case price < q3*1.15:
		return CategoryPremium
	default:
		return CategoryLuxury
	}
}

// BuildQuartileReport combines quartiles and outlier counts over all samples.
// perSource carries the sample count contributed by each source.
func BuildQuartileReport(samples []float64, perSource map[string]int) models.QuartileReport {
	report := models.QuartileReport{
		TotalAds: len(samples),
		Sources:  perSource,
	}
	if report.Sources == nil {
		report.Sources = map[string]int{}
	}
	if len(samples) == 0 {
		return report
	}

	report.QuartileResult = CalculateQuartiles(samples)
	_, removed := RemoveOutliersIQR(samples, DefaultOutlierFactor)
	report.OutliersRemoved = removed
	report.OutliersPercentage = round2(float64(removed) / float64(len(samples)) * 100)
	report.Interpretation = interpretQuartiles(report.QuartileResult)
	return report
}

func interpretQuartiles(q models.QuartileResult) *models.QuartileInterpretation {
	width := "wide"
	switch {
	case q.IQR < 300:
		width = "narrow"
	case q.IQR < 600:
		width = "moderate"
	}

	return &models.QuartileInterpretation{
		MarketWidth:           width,
		PriceRangeDescription: fmt.Sprintf("Most prices are between %.0f €/m² (Q1) and %.0f €/m² (Q3)", q.Q1, q.Q3),
		IQRDescription:        fmt.Sprintf("The central price distribution has a width of %.0f €/m²", q.IQR),
		BudgetRange:           fmt.Sprintf("< %.0f €/m²", q.Q1),
		AffordableRange:       fmt.Sprintf("%.0f - %.0f €/m²", q.Q1, q.Q2),
		MidRange:              fmt.Sprintf("%.0f - %.0f €/m²", q.Q2, q.Q3),
		PremiumRange:          fmt.Sprintf("> %.0f €/m²", q.Q3),
	}
}
