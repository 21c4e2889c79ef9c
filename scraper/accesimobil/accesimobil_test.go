package accesimobil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(mortgage string) string {
	if mortgage == "" {
		return `<div class="rs-card"><div class="price">85 000 €</div></div>`
	}
	return fmt.Sprintf(`<div class="rs-card"><div class="price">85 000 €</div><div class="card-mortgage">%s</div></div>`, mortgage)
}

func page(pages int, cards ...string) string {
	var links strings.Builder
	for i := 1; i <= pages; i++ {
		fmt.Fprintf(&links, `<a class="link" href="?page=%d">%d</a>`, i, i)
	}
	if pages > 1 {
		links.WriteString(`<a class="link next" href="#">»</a>`)
	}
	return `<html><body>
<div class="catalog-products grid">` + strings.Join(cards, "") + `</div>
<div class="pagination mt-20"><div class="links">` + links.String() + `</div></div>
</body></html>`
}

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestExtractPrices(t *testing.T) {
	html := page(1,
		card("1 693 €/m²"),
		card("€ 1 250 / m²"),
		card(""),
		card("la cerere"),
	)
	assert.Equal(t, []float64{1693, 1250}, ExtractPrices(doc(t, html)))
}

func TestExtractPricesWithoutProductsContainer(t *testing.T) {
	prices := ExtractPrices(doc(t, `<html><body><div class="rs-card"><div class="mortgage">1 500 €</div></div></body></html>`))
	assert.Empty(t, prices)
}

func TestDetectTotalPages(t *testing.T) {
	assert.Equal(t, 4, DetectTotalPages(doc(t, page(4))))
	assert.Equal(t, 1, DetectTotalPages(doc(t, page(1))))
	assert.Equal(t, 1, DetectTotalPages(doc(t, `<html><body></body></html>`)))
}

func TestFetchPricesAllPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, page(3, card("1 500 €/m²"), card("1 600 €/m²")))
		case "2":
			fmt.Fprint(w, page(3, card("1 700 €/m²")))
		case "3":
			fmt.Fprint(w, page(3, card("1 800 €/m²")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL + "/apartamente?fi1[]=8", Timeout: 5 * time.Second, MaxRetries: 1}, nil)
	prices, err := s.FetchPrices(context.Background())
	require.NoError(t, err)

	sort.Float64s(prices)
	assert.Equal(t, []float64{1500, 1600, 1700, 1800}, prices)
}

func TestFetchPricesSkipsFailedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, page(2, card("1 500 €/m²")))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1}, nil)
	prices, err := s.FetchPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{1500}, prices)
}

func TestFetchPricesFirstPageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1}, nil)
	_, err := s.FetchPrices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first page")
}

func TestConcurrentFetchesDoNotWaitOnEachOther(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slow := strings.HasPrefix(r.URL.Path, "/slow")
		switch {
		case r.URL.Query().Get("page") == "":
			fmt.Fprint(w, page(2, card("1 500 €/m²")))
		case slow:
			<-release
			fmt.Fprint(w, page(2, card("1 900 €/m²")))
		default:
			fmt.Fprint(w, page(2, card("1 600 €/m²")))
		}
	}))
	defer srv.Close()
	defer unblock()

	s := New(Config{BaseURL: srv.URL + "/slow", Timeout: 5 * time.Second, MaxRetries: 1, MaxConcurrency: 2}, nil)
	fast := *s
	fast.baseURL = srv.URL + "/fast"

	slowDone := make(chan []float64, 1)
	go func() {
		prices, _ := s.FetchPrices(context.Background())
		slowDone <- prices
	}()

	fastDone := make(chan []float64, 1)
	go func() {
		prices, _ := fast.FetchPrices(context.Background())
		fastDone <- prices
	}()

	select {
	case prices := <-fastDone:
		sort.Float64s(prices)
		assert.Equal(t, []float64{1500, 1600}, prices)
	case <-time.After(3 * time.Second):
		t.Fatal("fetch waited on another call's pages")
	}

	unblock()
	select {
	case prices := <-slowDone:
		sort.Float64s(prices)
		assert.Equal(t, []float64{1500, 1900}, prices)
	case <-time.After(5 * time.Second):
		t.Fatal("slow fetch did not finish")
	}
}
