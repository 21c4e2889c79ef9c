package services

import (
	"time"

	"realestate-market/models"
)

// Confidence labels for time-to-sell predictions.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceVeryLow = "very_low"
)

func confidenceFor(samples int) string {
	switch {
	case samples >= 20:
		return ConfidenceHigh
	case samples >= 5:
		return ConfidenceMedium
	case samples >= 1:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// saleDuration is updated_at - created_at in whole days for a sold listing.
func saleDuration(l *models.Listing) (int, bool) {
	if !l.Sold {
		return 0, false
	}
	d, ok := wholeDays(l.CreatedAt, l.UpdatedAt)
	if !ok {
		return 0, false
	}
	if d < 0 {
		d = 0
	}
	return d, true
}

// PredictTimeToSell learns sale durations from sold listings and predicts
// the remaining active ones. The segment median is preferred, the global
// median is the fallback.
func PredictTimeToSell(listings []*models.Listing) models.TimeToSell {
	var all []float64
	segments := make(map[string][]float64)
	for _, l := range listings {
		d, ok := saleDuration(l)
		if !ok {
			continue
		}
		all = append(all, float64(d))
		k := segmentKey(l)
		segments[k] = append(segments[k], float64(d))
	}

	result := models.TimeToSell{
		SampleSize:     len(all),
		SegmentMedians: make(map[string]float64, len(segments)),
		Predictions:    []models.TimeToSellPrediction{},
	}
	if len(all) > 0 {
		result.GlobalMedianDays = floatPtr(round2(median(all)))
	}
	for k, v := range segments {
		result.SegmentMedians[k] = round2(median(v))
	}

	for _, l := range listings {
		if l.Sold {
			continue
		}
		if len(result.Predictions) >= predictionsLimit {
			break
		}
		p := models.TimeToSellPrediction{
			ListingID: l.ID,
			Sector:    l.SectorOrUnknown(),
			Rooms:     l.Rooms,
		}
		k := segmentKey(l)
		if seg, ok := segments[k]; ok {
			p.PredictedDays = floatPtr(result.SegmentMedians[k])
			p.SampleSize = len(seg)
		} else if result.GlobalMedianDays != nil {
			p.PredictedDays = floatPtr(*result.GlobalMedianDays)
		}
		p.Confidence = confidenceFor(p.SampleSize)
		result.Predictions = append(result.Predictions, p)
	}
	return result
}

// withinLast reports whether t falls in (now - window, now].
func withinLast(t *time.Time, now time.Time, window time.Duration) bool {
	if t == nil || t.IsZero() {
		return false
	}
	age := now.Sub(*t)
	return age >= 0 && age < window
}

// AssessMarketHealth computes per-sector supply/demand health and the
// time-to-sell model. stress = active / max(sold in 30 days, 1);
// health = sold30*10 - avg_days_on_market*0.5 + new30*0.2.
func AssessMarketHealth(listings []*models.Listing, now time.Time) *models.MarketHealth {
	order, groups := groupBySector(listings)

	health := &models.MarketHealth{
		Sectors:    make([]models.SectorHealth, 0, len(order)),
		TimeToSell: PredictTimeToSell(listings),
	}

	var scores []float64
	for _, name := range order {
		sh := models.SectorHealth{Sector: name}
		var days []float64
		for _, l := range groups[name] {
			if l.Sold {
				if withinLast(l.UpdatedAt, now, recentActivityWindow) {
					sh.SoldLast30Days++
				}
			} else {
				sh.ActiveListings++
			}
			if withinLast(l.CreatedAt, now, recentActivityWindow) {
				sh.NewLast30Days++
			}
			if d, ok := daysOnMarket(l, now); ok {
				days = append(days, float64(d))
			}
		}

		denominator := sh.SoldLast30Days
		if denominator < 1 {
			denominator = 1
		}
		sh.StressIndex = round2(float64(sh.ActiveListings) / float64(denominator))

		if len(days) > 0 {
			avg := mean(days)
			sh.AvgDaysOnMarket = floatPtr(round2(avg))
			score := float64(sh.SoldLast30Days)*10 - avg*0.5 + float64(sh.NewLast30Days)*0.2
			sh.HealthScore = floatPtr(round2(score))
			scores = append(scores, score)
		}
		health.Sectors = append(health.Sectors, sh)
	}

	if len(scores) > 0 {
		health.GlobalHealthScore = floatPtr(round2(mean(scores)))
	}
	return health
}
