package proimobil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id any, cityID, offer string, price any) map[string]any {
	return map[string]any{
		"id":             id,
		"cityId":         cityID,
		"offer":          offer,
		"status":         "active",
		"price":          map[string]any{"amount": price},
		"surface":        map[string]any{"value": 50},
		"urlSlug":        fmt.Sprintf("apartament-%v", id),
		"rooms":          2,
		"floor":          3,
		"numberOfFloors": 9,
		"views":          42,
		"order":          1,
		"isHot":          true,
		"booked":         false,
		"deal":           false,
		"condition":      "renovated",
		"createdAt":      "2024-06-01T10:00:00Z",
		"updatedAt":      "2024-06-15T10:00:00Z",
		"i18n":           map[string]any{"ro": map[string]any{"address": "str. Dacia 10"}},
		"_embedded": map[string]any{
			"city":   map[string]any{"i18n": map[string]any{"ro": map[string]any{"name": "Chișinău"}}},
			"region": map[string]any{"i18n": map[string]any{"ro": map[string]any{"name": "Botanica"}}},
		},
	}
}

func newTestClient(url string, opts ...ClientOption) *Client {
	base := []ClientOption{WithBaseURL(url), WithRateLimit(0), WithRetry(1, 0)}
	return NewClient(append(base, opts...)...)
}

func TestFetchListingsFiltersCityAndOffer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "status:active", r.URL.Query().Get("filter"))
		assert.Equal(t, "agents,city,region", r.URL.Query().Get("embedded"))
		assert.Equal(t, "150", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			item("a1", ChisinauCityID, "sell", 75000),
			item(12345, ChisinauCityID, "sell", "82000"),
			item("a3", "other-city", "sell", 50000),
			item("a4", ChisinauCityID, "rent", 400),
		})
	}))
	defer srv.Close()

	listings, err := newTestClient(srv.URL).FetchListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "a1", first.ID)
	assert.Equal(t, 75000.0, first.PriceEUR)
	assert.Equal(t, 50.0, first.SurfaceSqm)
	assert.Equal(t, "Botanica", first.Sector)
	assert.Equal(t, "Chișinău", first.City)
	assert.Equal(t, "str. Dacia 10", first.Street)
	assert.Equal(t, 9, first.NumberOfFloors)
	assert.True(t, first.IsHot)
	assert.Equal(t, "2024-06-01T10:00:00Z", first.CreatedAt)
	assert.Equal(t, SiteURL+"/apartament-a1", first.URL)

	assert.Equal(t, "12345", listings[1].ID)
	assert.Equal(t, 82000.0, listings[1].PriceEUR)
}

func TestFetchListingsToleratesStringNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loose := item("s1", ChisinauCityID, "sell", 64000)
		loose["rooms"] = "3"
		loose["floor"] = "2"
		loose["views"] = "n/a"
		loose["numberOfFloors"] = 5.0
		delete(loose, "urlSlug")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{loose, item("s2", ChisinauCityID, "sell", 70000)})
	}))
	defer srv.Close()

	listings, err := newTestClient(srv.URL).FetchListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	l := listings[0]
	assert.Equal(t, 3, l.Rooms)
	assert.Equal(t, 2, l.Floor)
	assert.Equal(t, 5, l.NumberOfFloors)
	assert.Zero(t, l.Views)
	assert.Empty(t, l.URL, "no slug means no public link")
	assert.Equal(t, 42, listings[1].Views)
}

func TestFetchListingsPaginates(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		n := pageSize
		if offset >= pageSize {
			n = 2
		}
		page := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			page = append(page, item(fmt.Sprintf("p%d", offset+i), ChisinauCityID, "sell", 60000))
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	listings, err := newTestClient(srv.URL).FetchListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, pageSize+2)
	assert.Equal(t, int32(2), requests.Load())
}

func TestFetchListingsRespectsMaxItems(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page := make([]map[string]any, pageSize)
		for i := range page {
			page[i] = item(fmt.Sprintf("%d-%d", requests.Load(), i), ChisinauCityID, "sell", 60000)
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	listings, err := newTestClient(srv.URL, WithMaxItems(200)).FetchListings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	assert.Len(t, listings, 2*pageSize)
}

func TestFetchListingsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchListings(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestFetchListingsRetries(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{item("a1", ChisinauCityID, "sell", 75000)})
	}))
	defer srv.Close()

	listings, err := newTestClient(srv.URL, WithRetry(2, 0)).FetchListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, int32(2), requests.Load())
}
