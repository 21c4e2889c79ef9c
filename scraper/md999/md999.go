// Package md999 collects price-per-m² samples from 999.md. The listing grid
// is rendered client-side, so pages are loaded in headless Chrome.
package md999

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"realestate-market/services"
	"realestate-market/utils"
)

const (
	Name = "999md"

	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	pageTimeout = 60 * time.Second
)

// perSqmRegexp matches the "1 693 €/m²" badge shown on each card.
var perSqmRegexp = regexp.MustCompile(`([\d\s\x{00a0},.]+)\s*€\s*/\s*m`)

// Card is the text extracted from one rendered ad.
type Card struct {
	Price    string `json:"price"`
	Distance string `json:"distance"`
	Title    string `json:"title"`
}

// Config holds the scraper settings.
type Config struct {
	BaseURL    string
	MaxPages   int
	ChromeBin  string
	MaxRetries int
	PageDelay  time.Duration
}

// Scraper drives headless Chrome through the result pages.
type Scraper struct {
	cfg    Config
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// New creates a Scraper.
func New(cfg Config, logger *utils.Logger) *Scraper {
	if logger == nil {
		logger = utils.NewSilentLogger()
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	return &Scraper{
		cfg: cfg,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Name identifies the source.
func (s *Scraper) Name() string { return Name }

// URL is the first result page.
func (s *Scraper) URL() string { return s.cfg.BaseURL }

// FetchPrices renders up to MaxPages result pages and returns the €/m²
// samples found on them. It stops early on an empty page or when the
// pagination has no next page.
func (s *Scraper) FetchPrices(ctx context.Context) ([]float64, error) {
	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	if chromeBin == "" {
		return nil, fmt.Errorf("md999: no Chrome/Chromium binary found")
	}
	s.logger.Info("[999md] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
		chromedp.ExecPath(chromeBin),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	var prices []float64
	for page := 1; page <= s.cfg.MaxPages; page++ {
		cards, hasNext, err := s.scrapePage(browserCtx, page)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("md999: page 1: %w", err)
			}
			s.logger.Error("[999md] Page %d failed: %v", page, err)
			break
		}
		if len(cards) == 0 {
			s.logger.Warn("[999md] Page %d returned 0 ads — stopping", page)
			break
		}

		found := PricesFromCards(cards)
		prices = append(prices, found...)
		s.logger.Info("[999md] Page %d — %d ads, %d prices (total %d)", page, len(cards), len(found), len(prices))

		if !hasNext {
			break
		}
		if s.cfg.PageDelay > 0 && page < s.cfg.MaxPages {
			select {
			case <-ctx.Done():
				return prices, ctx.Err()
			case <-time.After(s.cfg.PageDelay):
			}
		}
	}
	return prices, nil
}

func (s *Scraper) pageURL(page int) string {
	if page == 1 {
		return s.cfg.BaseURL
	}
	sep := "&"
	if !strings.Contains(s.cfg.BaseURL, "?") {
		sep = "?"
	}
	return s.cfg.BaseURL + sep + "page=" + strconv.Itoa(page)
}

func (s *Scraper) scrapePage(browserCtx context.Context, page int) ([]Card, bool, error) {
	var cards []Card
	var hasNext bool

	err := s.retry.Do(browserCtx, fmt.Sprintf("999md-page-%d", page), func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, pageTimeout)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(s.pageURL(page)),
			chromedp.WaitVisible(`[class*="AdShort_wrapper"]`, chromedp.ByQuery),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(time.Second),
			chromedp.Evaluate(`
				(function() {
					var text = function(root, sel) {
						var el = root.querySelector(sel);
						return el ? el.innerText.trim() : '';
					};
					var out = [];
					document.querySelectorAll('[class*="AdShort_wrapper"]').forEach(function(ad) {
						out.push({
							price:    text(ad, '[class*="AdShort_price"]'),
							distance: text(ad, '[class*="AdShort_distance"]'),
							title:    text(ad, '[class*="AdShort_title"]')
						});
					});
					return out;
				})()
			`, &cards),
			chromedp.Evaluate(fmt.Sprintf(`
				(function() {
					var p = document.querySelector('[class*="Pagination_pagination"]');
					return !!(p && p.querySelector('button[data-test-page-value="%d"]'));
				})()
			`, page+1), &hasNext),
		)
	})
	return cards, hasNext, err
}

// PricesFromCards returns one €/m² value per card: the per-m² badge when
// present, otherwise price divided by the area in the title. Cards without
// a price are skipped.
func PricesFromCards(cards []Card) []float64 {
	prices := make([]float64, 0, len(cards))
	for _, c := range cards {
		price, ok := services.ParseEuroAmount(c.Price)
		if !ok {
			continue
		}
		if v, ok := parsePerSqm(c.Distance); ok {
			prices = append(prices, v)
			continue
		}
		if area, ok := services.ParseArea(c.Title); ok {
			prices = append(prices, price/area)
		}
	}
	return prices
}

func parsePerSqm(text string) (float64, bool) {
	m := perSqmRegexp.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[1])
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// findChromeBinary locates Chrome/Chromium. An explicit path wins.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
