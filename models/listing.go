package models

import "time"

// RawListing holds an unprocessed record exactly as a source collaborator
// returned it. Timestamps are still strings and numeric fields use zero for
// "not provided". It is normalised into a Listing by the cleaner.
type RawListing struct {
	ID             string
	Platform       string
	Offer          string
	Category       string
	Status         string
	CityID         string
	City           string
	Sector         string
	Street         string
	State          string
	Condition      string
	PriceEUR       float64
	SurfaceSqm     float64
	Rooms          int
	Floor          int
	NumberOfFloors int
	Views          int
	Orders         int
	IsHot          bool
	IsExclusive    bool
	Deal           bool
	Booked         bool
	CreatedAt      string
	UpdatedAt      string
	URL            string
	ScrapedAt      time.Time
}

// Listing is the cleaned, immutable property ad consumed by the analytics
// engines. Optional fields are pointers (or empty strings) so that "missing"
// is distinguishable from zero.
type Listing struct {
	ID             string     `json:"id"`
	Platform       string     `json:"platform"`
	URL            string     `json:"url,omitempty"`
	City           string     `json:"city,omitempty"`
	Sector         string     `json:"sector,omitempty"`
	Street         string     `json:"street,omitempty"`
	PriceEUR       float64    `json:"price_eur"`
	PricePerSqm    float64    `json:"price_per_sqm"`
	SurfaceSqm     float64    `json:"surface_sqm"`
	Rooms          *int       `json:"rooms,omitempty"`
	Condition      string     `json:"condition,omitempty"`
	State          string     `json:"state,omitempty"`
	Floor          *int       `json:"floor,omitempty"`
	NumberOfFloors *int       `json:"number_of_floors,omitempty"`
	Views          int        `json:"views"`
	Orders         int        `json:"orders"`
	Booked         bool       `json:"booked"`
	Sold           bool       `json:"deal"`
	IsHot          bool       `json:"is_hot"`
	IsExclusive    bool       `json:"is_exclusive"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// UnknownSector is the bucket used for listings without a sector.
const UnknownSector = "Unknown"

// SectorOrUnknown returns the listing sector, or UnknownSector when absent.
func (l *Listing) SectorOrUnknown() string {
	if l.Sector == "" {
		return UnknownSector
	}
	return l.Sector
}

// RoomCount returns the room count and whether it is known. A known count
// may still be zero (studios).
func (l *Listing) RoomCount() (int, bool) {
	if l.Rooms == nil {
		return 0, false
	}
	return *l.Rooms, true
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
