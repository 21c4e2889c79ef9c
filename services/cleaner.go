package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"realestate-market/models"
	"realestate-market/utils"
)

var (
	// euroRegexp captures an amount written before or after a euro sign,
	// e.g. "85 000 €", "1 693 €/m²", "€85,000"
	euroRegexp      = regexp.MustCompile(`([\d\s\x{00a0}.,]+)\s*€`)
	euroAfterRegexp = regexp.MustCompile(`€\s*([\d\s\x{00a0}.,]+)`)
	// areaRegexp captures a surface such as "54 m²", "54.5 m2" or "60 mp"
	areaRegexp = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:m²|m2|mp)`)
)

// timestampLayouts are tried in order when parsing source timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Cleaner transforms RawListings into clean, validated Listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean normalises raw listings. Records without an id or a price are
// dropped, duplicates are skipped, and unparsable timestamps become nil.
func (c *Cleaner) Clean(raw []*models.RawListing) []*models.Listing {
	seen := utils.NewIDSet()
	result := make([]*models.Listing, 0, len(raw))
	duplicates := 0

	for _, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			c.logger.Warn("[cleaner] Dropping listing without id: %s", r.URL)
			continue
		}
		if seen.Contains(id) {
			duplicates++
			c.logger.Debug("[cleaner] Duplicate listing skipped: %s", id)
			continue
		}
		seen.Add(id)
		if r.PriceEUR <= 0 {
			c.logger.Debug("[cleaner] Dropping listing %s with no price", id)
			continue
		}

		listing := &models.Listing{
			ID:             id,
			Platform:       normalisePlatform(r.Platform),
			URL:            strings.TrimSpace(r.URL),
			City:           normaliseText(r.City),
			Sector:         normaliseText(r.Sector),
			Street:         normaliseText(r.Street),
			PriceEUR:       r.PriceEUR,
			SurfaceSqm:     r.SurfaceSqm,
			Rooms:          positive(r.Rooms),
			Condition:      normaliseText(r.Condition),
			State:          normaliseText(r.State),
			Floor:          positive(r.Floor),
			NumberOfFloors: positive(r.NumberOfFloors),
			Views:          max(r.Views, 0),
			Orders:         max(r.Orders, 0),
			Booked:         r.Booked,
			Sold:           r.Deal,
			IsHot:          r.IsHot,
			IsExclusive:    r.IsExclusive,
			CreatedAt:      c.parseTimestamp(id, r.CreatedAt),
			UpdatedAt:      c.parseTimestamp(id, r.UpdatedAt),
		}
		if r.SurfaceSqm > 0 {
			listing.PricePerSqm = r.PriceEUR / r.SurfaceSqm
		}

		result = append(result, listing)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d, %d unique ids, %d duplicates)",
		len(raw), len(result), len(raw)-len(result), seen.Size(), duplicates)
	return result
}

func (c *Cleaner) parseTimestamp(id, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, ok := ParseTimestamp(raw)
	if !ok {
		c.logger.Debug("[cleaner] Listing %s has malformed timestamp %q", id, raw)
		return nil
	}
	return &t
}

// ParseTimestamp accepts RFC 3339 and a few common ISO-8601 variants.
// Timestamps without a zone are taken as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseEuroAmount extracts the euro amount from text such as "85 000 €",
// "1 693 €/m²" or "€85,000". Separators are dropped, so decimals are not
// supported; listing prices are whole euros.
func ParseEuroAmount(text string) (float64, bool) {
	m := euroRegexp.FindStringSubmatch(text)
	if m == nil {
		m = euroAfterRegexp.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, m[1])
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseArea extracts a surface in square metres.
func ParseArea(text string) (float64, bool) {
	m := areaRegexp.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func positive(v int) *int {
	if v <= 0 {
		return nil
	}
	return models.IntPtr(v)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func normalisePlatform(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
