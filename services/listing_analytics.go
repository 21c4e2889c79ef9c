package services

import (
	"sort"
	"strconv"
	"time"

	"realestate-market/models"
)

func timeOnMarket(days []int) models.TimeOnMarketStats {
	if len(days) == 0 {
		return models.TimeOnMarketStats{}
	}
	sorted := append([]int(nil), days...)
	sort.Ints(sorted)

	values := make([]float64, len(sorted))
	for i, d := range sorted {
		values[i] = float64(d)
	}
	n := len(sorted)
	return models.TimeOnMarketStats{
		AvgDays:    round2(mean(values)),
		MedianDays: median(values),
		P75Days:    values[int(0.75*float64(n-1))],
		MaxDays:    sorted[n-1],
	}
}

func timeOnMarketBy(listings []*models.Listing, now time.Time, key func(*models.Listing) string) map[string]models.TimeOnMarketStats {
	groups := make(map[string][]int)
	for _, l := range listings {
		k := key(l)
		if k == "" {
			continue
		}
		if d, ok := daysOnMarket(l, now); ok {
			groups[k] = append(groups[k], d)
		}
	}
	out := make(map[string]models.TimeOnMarketStats, len(groups))
	for k, days := range groups {
		out[k] = timeOnMarket(days)
	}
	return out
}

// AnalyzeListings reports time on market, reservations, engagement and the
// share of hot and exclusive offers. Listings without a creation date are
// left out of the time-based figures only.
func AnalyzeListings(listings []*models.Listing, now time.Time) *models.ListingAnalytics {
	total := len(listings)
	out := &models.ListingAnalytics{TotalListings: total}

	var days []int
	var perDay []float64
	views, orders, hot, exclusive := 0, 0, 0, 0
	for _, l := range listings {
		if d, ok := daysOnMarket(l, now); ok {
			days = append(days, d)
			perDay = append(perDay, viewsPerDay(l, now))
		}
		views += l.Views
		orders += l.Orders
		if l.Booked {
			out.Reservations.TotalBooked++
		}
		if l.Sold {
			out.Reservations.TotalSold++
		}
		if l.IsHot {
			hot++
		}
		if l.IsExclusive {
			exclusive++
		}
	}

	out.TimeOnMarket = timeOnMarket(days)
	out.TimeOnMarketByGroup = models.TimeOnMarketByGroup{
		BySector:    timeOnMarketBy(listings, now, func(l *models.Listing) string { return l.Sector }),
		ByState:     timeOnMarketBy(listings, now, func(l *models.Listing) string { return l.State }),
		ByCondition: timeOnMarketBy(listings, now, func(l *models.Listing) string { return l.Condition }),
		ByRooms: timeOnMarketBy(listings, now, func(l *models.Listing) string {
			if r, ok := l.RoomCount(); ok && r > 0 {
				return strconv.Itoa(r)
			}
			return ""
		}),
	}

	if total > 0 {
		out.Reservations.AvgOrdersPerListing = round2(float64(orders) / float64(total))
		out.Engagement.AvgViewsPerListing = round2(float64(views) / float64(total))
		out.HotOffersRatio = round2(float64(hot) / float64(total))
		out.ExclusiveRatio = round2(float64(exclusive) / float64(total))
	}
	if len(perDay) > 0 {
		out.Engagement.ViewsPerDayAvg = round2(mean(perDay))
	}
	return out
}
