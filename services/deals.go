package services

import (
	"math"
	"sort"
	"strconv"
	"time"

	"realestate-market/models"
)

const (
	bestDealsLimit       = 20
	topInvestmentLimit   = 10
	predictionsLimit     = 1000
	DefaultTrendWindow   = 30
	recentActivityWindow = 30 * 24 * time.Hour
	unknownGroup         = "unknown"
)

// wholeDays returns the whole days from -> to, floored, and false when
// either end is missing.
func wholeDays(from, to *time.Time) (int, bool) {
	if from == nil || to == nil || from.IsZero() || to.IsZero() {
		return 0, false
	}
	return int(math.Floor(to.Sub(*from).Hours() / 24)), true
}

// daysOnMarket is the non-negative age of a listing at now.
func daysOnMarket(l *models.Listing, now time.Time) (int, bool) {
	d, ok := wholeDays(l.CreatedAt, &now)
	if !ok {
		return 0, false
	}
	if d < 0 {
		d = 0
	}
	return d, true
}

// FloorCategory classifies the floor as first, last, other or unknown.
// "last" needs the building floor count.
func FloorCategory(l *models.Listing) string {
	if l.Floor == nil {
		return unknownGroup
	}
	switch {
	case *l.Floor == 1:
		return "first"
	case l.NumberOfFloors != nil && *l.Floor == *l.NumberOfFloors:
		return "last"
	default:
		return "other"
	}
}

// AreaBucket places a surface into one of four fixed bands.
func AreaBucket(surface float64) string {
	switch {
	case surface < 40:
		return "<40"
	case surface < 60:
		return "40-60"
	case surface < 80:
		return "60-80"
	default:
		return "80+"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownGroup
	}
	return s
}

func roomsKey(l *models.Listing) string {
	if r, ok := l.RoomCount(); ok {
		return strconv.Itoa(r)
	}
	return unknownGroup
}

// segmentKey identifies a (sector, rooms) segment.
func segmentKey(l *models.Listing) string {
	return l.SectorOrUnknown() + "|" + roomsKey(l)
}

func groupStats(values []float64) *models.GroupStats {
	return &models.GroupStats{
		Mean:   round2(mean(values)),
		Median: round2(median(values)),
		Count:  len(values),
	}
}

func groupBy(listings []*models.Listing, key func(*models.Listing) string) map[string]*models.GroupStats {
	groups := make(map[string][]float64)
	for _, l := range listings {
		k := key(l)
		groups[k] = append(groups[k], l.PricePerSqm)
	}
	out := make(map[string]*models.GroupStats, len(groups))
	for k, v := range groups {
		out[k] = groupStats(v)
	}
	return out
}

func pricedListings(listings []*models.Listing) []*models.Listing {
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.PricePerSqm > 0 {
			out = append(out, l)
		}
	}
	return out
}

// AnalyzePrices groups price-per-area along every listing dimension.
// Listings without a price-per-area are left out.
func AnalyzePrices(listings []*models.Listing) models.PriceAnalysis {
	priced := pricedListings(listings)
	values := PricesPerSqm(priced)
	lo, hi := minMax(values)

	return models.PriceAnalysis{
		Global: models.GlobalPriceStats{
			GroupStats: *groupStats(values),
			Min:        round2(lo),
			Max:        round2(hi),
		},
		BySector:     groupBy(priced, func(l *models.Listing) string { return l.SectorOrUnknown() }),
		ByCondition:  groupBy(priced, func(l *models.Listing) string { return orUnknown(l.Condition) }),
		ByState:      groupBy(priced, func(l *models.Listing) string { return orUnknown(l.State) }),
		ByRooms:      groupBy(priced, roomsKey),
		ByFloor:      groupBy(priced, FloorCategory),
		ByAreaBucket: groupBy(priced, func(l *models.Listing) string { return AreaBucket(l.SurfaceSqm) }),
	}
}

// SegmentBaselines is the mean price-per-area per (sector, rooms) segment.
func SegmentBaselines(listings []*models.Listing) map[string]float64 {
	sums := make(map[string][]float64)
	for _, l := range pricedListings(listings) {
		k := segmentKey(l)
		sums[k] = append(sums[k], l.PricePerSqm)
	}
	out := make(map[string]float64, len(sums))
	for k, v := range sums {
		out[k] = mean(v)
	}
	return out
}

// viewsPerDay is views over days since creation (at least 1); 0 when the
// creation date is unknown.
func viewsPerDay(l *models.Listing, now time.Time) float64 {
	d, ok := daysOnMarket(l, now)
	if !ok {
		return 0
	}
	if d < 1 {
		d = 1
	}
	return float64(l.Views) / float64(d)
}

// ScoreDeals rates every listing against its segment baseline. Score is
// minus the below-market percentage plus views per day, so cheaper and
// busier listings rank higher.
func ScoreDeals(listings []*models.Listing, now time.Time) []models.DealScore {
	baselines := SegmentBaselines(listings)

	scores := make([]models.DealScore, 0, len(listings))
	for _, l := range listings {
		ds := models.DealScore{
			ListingID:   l.ID,
			URL:         l.URL,
			Sector:      l.SectorOrUnknown(),
			Rooms:       l.Rooms,
			PriceEUR:    l.PriceEUR,
			PricePerSqm: l.PricePerSqm,
			ViewsPerDay: round2(viewsPerDay(l, now)),
		}
		if base, ok := baselines[segmentKey(l)]; ok && base > 0 && l.PricePerSqm > 0 {
			below := (l.PricePerSqm - base) / base * 100
			ds.BaselinePerSqm = floatPtr(round2(base))
			ds.BelowMarketPct = floatPtr(round2(below))
			ds.Score = floatPtr(round2(-below + viewsPerDay(l, now)))
		}
		scores = append(scores, ds)
	}
	return scores
}

// BestDeals returns the highest scoring deals with a defined score.
func BestDeals(scores []models.DealScore, limit int) []models.DealScore {
	out := make([]models.DealScore, 0, len(scores))
	for _, s := range scores {
		if s.Score != nil {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Score > *out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Conversion computes booked and sold rates per group.
func Conversion(listings []*models.Listing, key func(*models.Listing) string) map[string]*models.ConversionStats {
	out := make(map[string]*models.ConversionStats)
	for _, l := range listings {
		k := key(l)
		c, ok := out[k]
		if !ok {
			c = &models.ConversionStats{}
			out[k] = c
		}
		c.Total++
		if l.Booked {
			c.Booked++
		}
		if l.Sold {
			c.Sold++
		}
	}
	for _, c := range out {
		c.BookedRate = round2(float64(c.Booked) / float64(c.Total))
		c.SoldRate = round2(float64(c.Sold) / float64(c.Total))
	}
	return out
}

// AnalyzeDeals bundles price analysis, the best deals and conversion rates.
func AnalyzeDeals(listings []*models.Listing, now time.Time) *models.DealAnalytics {
	return &models.DealAnalytics{
		PriceAnalysis:         AnalyzePrices(listings),
		BestDeals:             BestDeals(ScoreDeals(listings, now), bestDealsLimit),
		ConversionBySector:    Conversion(listings, func(l *models.Listing) string { return l.SectorOrUnknown() }),
		ConversionByCondition: Conversion(listings, func(l *models.Listing) string { return orUnknown(l.Condition) }),
		ConversionByState:     Conversion(listings, func(l *models.Listing) string { return orUnknown(l.State) }),
	}
}

// groupBySector splits listings per sector keeping first-seen order.
func groupBySector(listings []*models.Listing) ([]string, map[string][]*models.Listing) {
	var order []string
	groups := make(map[string][]*models.Listing)
	for _, l := range listings {
		name := l.SectorOrUnknown()
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], l)
	}
	return order, groups
}

// InvestmentInsights ranks sectors by attractiveness:
// sold_rate*1000 - avg_price/1000 - avg_days_on_market.
func InvestmentInsights(listings []*models.Listing, now time.Time) *models.InvestmentInsights {
	order, groups := groupBySector(listings)

	sectors := make([]models.SectorInvestment, 0, len(order))
	for _, name := range order {
		group := groups[name]
		inv := models.SectorInvestment{Sector: name, Count: len(group)}

		var prices, perSqm, days []float64
		booked, sold := 0, 0
		for _, l := range group {
			if l.PriceEUR > 0 {
				prices = append(prices, l.PriceEUR)
			}
			if l.PricePerSqm > 0 {
				perSqm = append(perSqm, l.PricePerSqm)
			}
			if d, ok := daysOnMarket(l, now); ok {
				days = append(days, float64(d))
			}
			if l.Booked {
				booked++
			}
			if l.Sold {
				sold++
			}
		}
		inv.BookedRate = round2(float64(booked) / float64(len(group)))
		inv.SoldRate = round2(float64(sold) / float64(len(group)))

		if len(prices) > 0 {
			inv.AvgPriceEUR = floatPtr(round2(mean(prices)))
		}
		if len(perSqm) > 0 {
			inv.AvgPricePerSqm = floatPtr(round2(mean(perSqm)))
		}
		if len(days) > 0 {
			inv.AvgDaysOnMarket = floatPtr(round2(mean(days)))
			inv.MedianDaysOnMarket = floatPtr(round2(median(days)))
		}
		if len(prices) > 0 && len(days) > 0 {
			soldRate := float64(sold) / float64(len(group))
			score := soldRate*1000 - mean(prices)/1000 - mean(days)
			inv.AttractivenessScore = floatPtr(round2(score))
		}
		sectors = append(sectors, inv)
	}

	var top []models.SectorInvestment
	for _, s := range sectors {
		if s.AttractivenessScore != nil {
			top = append(top, s)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return *top[i].AttractivenessScore > *top[j].AttractivenessScore
	})
	if len(top) > topInvestmentLimit {
		top = top[:topInvestmentLimit]
	}
	if top == nil {
		top = []models.SectorInvestment{}
	}

	return &models.InvestmentInsights{Sectors: sectors, TopSectors: top}
}

// MarketTrends counts created and updated listings per calendar day (UTC)
// over the trailing window ending today, and price-per-area by listing age.
func MarketTrends(listings []*models.Listing, now time.Time, windowDays int) *models.MarketTrends {
	if windowDays <= 0 {
		windowDays = DefaultTrendWindow
	}
	today := now.UTC().Truncate(24 * time.Hour)
	first := today.AddDate(0, 0, -(windowDays - 1))

	newDaily := make([]models.DailyCount, windowDays)
	updatedDaily := make([]models.DailyCount, windowDays)
	for i := 0; i < windowDays; i++ {
		day := first.AddDate(0, 0, i).Format("2006-01-02")
		newDaily[i].Date = day
		updatedDaily[i].Date = day
	}
	bump := func(series []models.DailyCount, t *time.Time) {
		if t == nil || t.IsZero() {
			return
		}
		idx := int(t.UTC().Truncate(24*time.Hour).Sub(first).Hours() / 24)
		if idx >= 0 && idx < windowDays {
			series[idx].Count++
		}
	}

	ageLabels := []string{"0-7", "8-30", "30+"}
	ageValues := make([][]float64, len(ageLabels))
	for _, l := range listings {
		bump(newDaily, l.CreatedAt)
		bump(updatedDaily, l.UpdatedAt)

		d, ok := daysOnMarket(l, now)
		if !ok || l.PricePerSqm <= 0 {
			continue
		}
		switch {
		case d <= 7:
			ageValues[0] = append(ageValues[0], l.PricePerSqm)
		case d <= 30:
			ageValues[1] = append(ageValues[1], l.PricePerSqm)
		default:
			ageValues[2] = append(ageValues[2], l.PricePerSqm)
		}
	}

	byAge := make([]models.AgeBucketStats, len(ageLabels))
	for i, label := range ageLabels {
		byAge[i] = models.AgeBucketStats{Bucket: label, Count: len(ageValues[i])}
		if len(ageValues[i]) > 0 {
			byAge[i].AvgPricePerSqm = floatPtr(round2(mean(ageValues[i])))
		}
	}

	return &models.MarketTrends{
		WindowDays:        windowDays,
		NewListingsDaily:  newDaily,
		UpdatedDaily:      updatedDaily,
		PriceByListingAge: byAge,
	}
}
