// Package accesimobil collects price-per-m² samples from accesimobil.md
// listing pages.
package accesimobil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"realestate-market/services"
	"realestate-market/utils"
)

const (
	Name = "accesimobil"

	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageWorkers = 6
)

// Scraper reads the first result page, detects the page count and fetches
// the remaining pages concurrently.
type Scraper struct {
	baseURL    string
	httpClient *http.Client
	workers    int
	rateLimit  int
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// Config holds the scraper settings.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	RetryDelay     time.Duration
}

// New creates a Scraper.
func New(cfg Config, logger *utils.Logger) *Scraper {
	if logger == nil {
		logger = utils.NewSilentLogger()
	}
	workers := cfg.MaxConcurrency
	if workers <= 0 || workers > maxPageWorkers {
		workers = maxPageWorkers
	}
	return &Scraper{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		workers:    workers,
		rateLimit:  cfg.RateLimitMs,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Name identifies the source.
func (s *Scraper) Name() string { return Name }

// URL is the first result page.
func (s *Scraper) URL() string { return s.baseURL }

// FetchPrices returns every €/m² value found on all result pages. The first
// page must load; later pages that fail are skipped.
func (s *Scraper) FetchPrices(ctx context.Context) ([]float64, error) {
	first, err := s.fetchDocument(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("accesimobil: first page: %w", err)
	}

	prices := ExtractPrices(first)
	totalPages := DetectTotalPages(first)
	s.logger.Info("[accesimobil] Page 1/%d — %d prices", totalPages, len(prices))
	if totalPages <= 1 {
		return prices, nil
	}

	// One pool per call: concurrent fetches must not share a WaitGroup.
	pool := utils.NewWorkerPool(s.workers, s.rateLimit)
	var mu sync.Mutex
	perPage := make([][]float64, totalPages+1)
	for page := 2; page <= totalPages; page++ {
		page := page
		pool.Submit(func() {
			doc, err := s.fetchDocument(ctx, s.pageURL(page))
			if err != nil {
				s.logger.Warn("[accesimobil] Page %d failed: %v", page, err)
				return
			}
			found := ExtractPrices(doc)
			mu.Lock()
			perPage[page] = found
			mu.Unlock()
			s.logger.Debug("[accesimobil] Page %d — %d prices", page, len(found))
		})
	}
	pool.Wait()

	for _, p := range perPage {
		prices = append(prices, p...)
	}
	s.logger.Info("[accesimobil] Collected %d prices from %d pages", len(prices), totalPages)
	return prices, nil
}

func (s *Scraper) pageURL(page int) string {
	sep := "&"
	if !strings.Contains(s.baseURL, "?") {
		sep = "?"
	}
	return s.baseURL + sep + "page=" + strconv.Itoa(page)
}

func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := s.retry.Do(ctx, "accesimobil-fetch", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
		}
		doc, err = goquery.NewDocumentFromReader(resp.Body)
		return err
	})
	return doc, err
}

// ExtractPrices reads the mortgage block (€/m²) of every card inside the
// products container.
func ExtractPrices(doc *goquery.Document) []float64 {
	products := doc.Find(`div[class*="products"]`).First()
	if products.Length() == 0 {
		return []float64{}
	}

	prices := make([]float64, 0)
	products.Find("div.rs-card").Each(func(_ int, card *goquery.Selection) {
		mortgage := card.Find(`div[class*="mortgage"]`).First()
		if mortgage.Length() == 0 {
			return
		}
		text := strings.Join(strings.Fields(mortgage.Text()), " ")
		if v, ok := services.ParseEuroAmount(text); ok {
			prices = append(prices, v)
		}
	})
	return prices
}

// DetectTotalPages returns the highest page number in the pagination links,
// or 1 when there is no pagination.
func DetectTotalPages(doc *goquery.Document) int {
	total := 1
	doc.Find("div.pagination.mt-20").First().
		Find(`div[class*="links"] a[class*="link"]`).
		Each(func(_ int, a *goquery.Selection) {
			if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > total {
				total = n
			}
		})
	return total
}
