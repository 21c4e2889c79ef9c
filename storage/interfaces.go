package storage

import "realestate-market/models"

// Store is the cache surface shared by request handlers, the market service
// and the refresh scheduler.
type Store interface {
	Get(key string) (any, models.CacheInfo, bool)
	Set(key string, value any, source string)
	Invalidate(key string) bool
	Clear() int
	Stats() models.CacheStats
}

// ListingWriter is the interface any listing export target must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}
