package services

import "errors"

var (
	// ErrNoListings is returned when an analysis needs at least one listing.
	ErrNoListings = errors.New("no listings provided for analysis")
	// ErrListingNotFound is returned when a listing id is not in the snapshot.
	ErrListingNotFound = errors.New("listing not found")
	// ErrSourceDisabled is returned for a data source switched off in config.
	ErrSourceDisabled = errors.New("data source disabled")
)
