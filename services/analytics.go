package services

import (
	"math"
	"sort"

	"realestate-market/models"
)

const (
	topSectorsLimit     = 5
	premiumLimit        = 5
	budgetLimit         = 5
	bestValueLimit      = 5
	emergingLimit       = 3
	bestValueMinSurface = 45
	bestValueMinCount   = 3
	emergingMinCount    = 5
	defaultRooms        = 2
	idealSqmPerRoom     = 25
)

// Value assessments.
const (
	ValueExcellent = "excellent"
	ValueGood      = "good"
	ValueFair      = "fair"
	ValuePoor      = "poor"
)

type sectorAccumulator struct {
	prices   []float64
	surfaces []float64
}

// AnalyzeMarket computes the market-wide and per-sector picture. Sectors are
// reported in first-seen order and every ranking is a stable sort, so ties
// keep that order.
func AnalyzeMarket(listings []*models.Listing) (*models.MarketInsights, error) {
	if len(listings) == 0 {
		return nil, ErrNoListings
	}

	prices := make([]float64, 0, len(listings))
	var perSqm, surfaces []float64
	sectors := make(map[string]*sectorAccumulator)
	var order []string
	roomCounts := make(map[int]int)

	for _, l := range listings {
		prices = append(prices, l.PriceEUR)
		if l.PricePerSqm > 0 {
			perSqm = append(perSqm, l.PricePerSqm)
		}
		if l.SurfaceSqm > 0 {
			surfaces = append(surfaces, l.SurfaceSqm)
		}

		name := l.SectorOrUnknown()
		acc, ok := sectors[name]
		if !ok {
			acc = &sectorAccumulator{}
			sectors[name] = acc
			order = append(order, name)
		}
		acc.prices = append(acc.prices, l.PriceEUR)
		acc.surfaces = append(acc.surfaces, l.SurfaceSqm)

		if rooms, ok := l.RoomCount(); ok && rooms > 0 {
			roomCounts[rooms]++
		}
	}

	stats := make(map[string]*models.SectorStats, len(order))
	for _, name := range order {
		acc := sectors[name]
		avgPrice := mean(acc.prices)
		avgSurface := mean(acc.surfaces)
		var avgPerSqm float64
		if avgSurface > 0 {
			avgPerSqm = avgPrice / avgSurface
		}
		lo, hi := minMax(acc.prices)
		stats[name] = &models.SectorStats{
			Sector:         name,
			Count:          len(acc.prices),
			AvgPriceEUR:    round2(avgPrice),
			AvgSurfaceSqm:  round2(avgSurface),
			AvgPricePerSqm: round2(avgPerSqm),
			MinPrice:       lo,
			MaxPrice:       hi,
		}
	}

	medianPerSqm := median(perSqm)
	avgPerSqm := mean(perSqm)

	insights := &models.MarketInsights{
		TotalListings:      len(listings),
		AveragePriceEUR:    round2(mean(prices)),
		MedianPriceEUR:     round2(median(prices)),
		AveragePricePerSqm: round2(avgPerSqm),
		MedianPricePerSqm:  round2(medianPerSqm),
		SectorStats:        stats,
		SectorOrder:        order,
		TopSectorsByVolume: topSectorsByVolume(order, stats),
		TopSectorsByPrice:  topSectorsByPrice(order, stats),
		RoomDistribution:   roomCounts,
		MostCommonRooms:    mostCommonRooms(roomCounts),
		PriceRanges:        priceRanges(prices),
		PremiumSectors:     []string{},
		BudgetSectors:      []string{},
		EmergingAreas:      []string{},
	}
	if len(surfaces) > 0 {
		insights.AverageSurface = round2(mean(surfaces))
	}

	for _, p := range perSqm {
		switch {
		case p < medianPerSqm*0.85:
			insights.UnderpricedCount++
		case p > medianPerSqm*1.15:
			insights.OverpricedCount++
		}
	}
	insights.FairPricedCount = insights.TotalListings - insights.UnderpricedCount - insights.OverpricedCount

	var bestValue []models.SectorValue
	for _, name := range order {
		s := stats[name]
		if s.AvgPricePerSqm > avgPerSqm*1.1 && len(insights.PremiumSectors) < premiumLimit {
			insights.PremiumSectors = append(insights.PremiumSectors, name)
		}
		if s.AvgPricePerSqm < avgPerSqm*0.9 && len(insights.BudgetSectors) < budgetLimit {
			insights.BudgetSectors = append(insights.BudgetSectors, name)
		}
		if s.AvgSurfaceSqm >= bestValueMinSurface && s.Count >= bestValueMinCount {
			bestValue = append(bestValue, models.SectorValue{Sector: name, Value: s.AvgPricePerSqm})
		}
		if s.Count >= emergingMinCount &&
			s.AvgPricePerSqm >= avgPerSqm*0.9 && s.AvgPricePerSqm <= avgPerSqm*1.1 &&
			len(insights.EmergingAreas) < emergingLimit {
			insights.EmergingAreas = append(insights.EmergingAreas, name)
		}
	}
	sort.SliceStable(bestValue, func(i, j int) bool { return bestValue[i].Value < bestValue[j].Value })
	if len(bestValue) > bestValueLimit {
		bestValue = bestValue[:bestValueLimit]
	}
	if bestValue == nil {
		bestValue = []models.SectorValue{}
	}
	insights.BestValueSectors = bestValue

	return insights, nil
}

func topSectorsByVolume(order []string, stats map[string]*models.SectorStats) []models.SectorCount {
	out := make([]models.SectorCount, 0, len(order))
	for _, name := range order {
		out = append(out, models.SectorCount{Sector: name, Count: stats[name].Count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > topSectorsLimit {
		out = out[:topSectorsLimit]
	}
	return out
}

func topSectorsByPrice(order []string, stats map[string]*models.SectorStats) []models.SectorValue {
	out := make([]models.SectorValue, 0, len(order))
	for _, name := range order {
		out = append(out, models.SectorValue{Sector: name, Value: stats[name].AvgPricePerSqm})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > topSectorsLimit {
		out = out[:topSectorsLimit]
	}
	return out
}

// mostCommonRooms returns the mode; ties go to the smallest room count.
func mostCommonRooms(counts map[int]int) int {
	best, bestCount := defaultRooms, 0
	for rooms, n := range counts {
		if n > bestCount || (n == bestCount && rooms < best) {
			best, bestCount = rooms, n
		}
	}
	return best
}

func priceRanges(prices []float64) []models.PriceRangeCount {
	ranges := []models.PriceRangeCount{
		{Label: "under_50k"},
		{Label: "50k_70k"},
		{Label: "70k_90k"},
		{Label: "90k_120k"},
		{Label: "over_120k"},
	}
	for _, p := range prices {
		switch {
		case p < 50000:
			ranges[0].Count++
		case p < 70000:
			ranges[1].Count++
		case p < 90000:
			ranges[2].Count++
		case p < 120000:
			ranges[3].Count++
		default:
			ranges[4].Count++
		}
	}
	return ranges
}

// ScoreProperty rates a listing against the market insights.
func ScoreProperty(l *models.Listing, insights *models.MarketInsights) models.PropertyScore {
	med := insights.MedianPricePerSqm

	var priceScore float64
	switch {
	case l.PricePerSqm <= med*0.85:
		priceScore = 100
	case l.PricePerSqm <= med:
		priceScore = 85
	case l.PricePerSqm <= med*1.1:
		priceScore = 70
	case l.PricePerSqm <= med*1.2:
		priceScore = 50
	default:
		priceScore = 30
	}

	locationScore := 50.0
	if s, ok := insights.SectorStats[l.SectorOrUnknown()]; ok && insights.TotalListings > 0 {
		locationScore = math.Min(100, float64(s.Count)/float64(insights.TotalListings)*500)
	}

	rooms := defaultRooms
	if r, ok := l.RoomCount(); ok {
		rooms = r
	}
	sizeScore := 70.0
	if rooms > 0 {
		ratio := l.SurfaceSqm / float64(rooms) / idealSqmPerRoom
		switch {
		case ratio >= 0.8 && ratio <= 1.2:
			sizeScore = 100
		case ratio >= 0.6 && ratio <= 1.4:
			sizeScore = 80
		default:
			sizeScore = 60
		}
	}

	overall := priceScore*0.5 + locationScore*0.3 + sizeScore*0.2

	assessment := ValuePoor
	switch {
	case overall >= 85:
		assessment = ValueExcellent
	case overall >= 70:
		assessment = ValueGood
	case overall >= 50:
		assessment = ValueFair
	}

	predicted := med * l.SurfaceSqm
	var vsMarket float64
	if med > 0 {
		vsMarket = (l.PricePerSqm - med) / med * 100
	}

	return models.PropertyScore{
		ListingID:           l.ID,
		PriceScore:          round1(priceScore),
		LocationScore:       round1(locationScore),
		SizeScore:           round1(sizeScore),
		OverallScore:        round1(overall),
		ValueAssessment:     assessment,
		PredictedPriceRange: [2]float64{round2(predicted * 0.9), round2(predicted * 1.1)},
		VsMarketPercentage:  round1(vsMarket),
	}
}

// PredictPrice estimates the price of a hypothetical property. An empty
// sector means the market average.
func PredictPrice(surface float64, rooms int, sector string, insights *models.MarketInsights) models.PricePrediction {
	med := insights.MedianPricePerSqm
	base := med

	if s, ok := insights.SectorStats[sector]; ok && sector != "" {
		if s.Count >= 5 {
			base = base*0.3 + s.AvgPricePerSqm*0.7
		} else {
			base = base*0.6 + s.AvgPricePerSqm*0.4
		}
	}

	sizeFactor := 1.0
	switch {
	case surface > 60:
		sizeFactor = 0.95
	case surface < 40:
		sizeFactor = 1.05
	}

	adjusted := base * sizeFactor
	predicted := adjusted * surface

	label := sector
	if label == "" {
		label = "Market average"
	}
	var vsMedian float64
	if med > 0 {
		vsMedian = (adjusted - med) / med * 100
	}

	return models.PricePrediction{
		PredictedPriceEUR:    round2(predicted),
		PredictedPricePerSqm: round2(adjusted),
		ConfidenceInterval: models.ConfidenceInterval{
			Min:        round2(predicted * 0.85),
			Max:        round2(predicted * 1.15),
			Confidence: "85%",
		},
		Inputs: models.PredictionInputs{SurfaceSqm: surface, Rooms: rooms, Sector: label},
		MarketComparison: models.MarketComparison{
			VsMarketMedianPct:    round1(vsMedian),
			MarketMedianPriceSqm: med,
		},
	}
}

// FindSimilar ranks listings by similarity to ref (surface 40%, rooms 30%,
// sector 30%). The reference itself and scores below 40 are excluded.
func FindSimilar(ref *models.Listing, all []*models.Listing, limit int) []models.SimilarListing {
	refRooms := defaultRooms
	if r, ok := ref.RoomCount(); ok {
		refRooms = r
	}

	similar := make([]models.SimilarListing, 0)
	for _, l := range all {
		if l.ID == ref.ID {
			continue
		}

		surfaceDiff := 1.0
		if ref.SurfaceSqm > 0 {
			surfaceDiff = math.Min(math.Abs(l.SurfaceSqm-ref.SurfaceSqm)/ref.SurfaceSqm, 1)
		}
		roomsMatch := 0.5
		if r, ok := l.RoomCount(); ok && r == refRooms {
			roomsMatch = 1
		}
		sectorMatch := 0.3
		if l.Sector == ref.Sector {
			sectorMatch = 1
		}

		score := (1-surfaceDiff)*40 + roomsMatch*30 + sectorMatch*30
		if score >= 40 {
			similar = append(similar, models.SimilarListing{Listing: l, SimilarityScore: round1(score)})
		}
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].SimilarityScore > similar[j].SimilarityScore
	})
	if limit >= 0 && len(similar) > limit {
		similar = similar[:limit]
	}
	return similar
}
