// Package proimobil fetches structured listings from the proimobil.md REST API.
package proimobil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"realestate-market/models"
	"realestate-market/utils"
)

const (
	Name = "proimobil_api"

	DefaultBaseURL   = "https://api.proimobil.md/v1/properties"
	SiteURL          = "https://proimobil.md"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second
	DefaultMaxItems  = 1000

	// ChisinauCityID is the only city kept from the feed.
	ChisinauCityID = "a36a231f-a54e-43e3-8c72-2c9204bc9a59"

	pageSize  = 150
	offerSell = "sell"
)

// flexFloat64 accepts numbers or numeric strings.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	*f = 0
	return nil
}

// flexString accepts strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

// flexInt accepts integers, floats or numeric strings. Anything else is 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var num flexFloat64
	if err := num.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt(num)
	return nil
}

type i18nName struct {
	Ro struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"ro"`
}

type embeddedName struct {
	I18n i18nName `json:"i18n"`
}

type property struct {
	ID     flexString `json:"id"`
	CityID string     `json:"cityId"`
	Price  struct {
		Amount flexFloat64 `json:"amount"`
	} `json:"price"`
	Surface struct {
		Value flexFloat64 `json:"value"`
	} `json:"surface"`
	I18n           i18nName `json:"i18n"`
	URLSlug        string   `json:"urlSlug"`
	Rooms          flexInt  `json:"rooms"`
	Offer          string   `json:"offer"`
	Category       string   `json:"category"`
	Status         string   `json:"status"`
	IsHot          bool     `json:"isHot"`
	IsExclusive    bool     `json:"isExclusive"`
	Deal           bool     `json:"deal"`
	Booked         bool     `json:"booked"`
	Order          flexInt  `json:"order"`
	Views          flexInt  `json:"views"`
	Floor          flexInt  `json:"floor"`
	NumberOfFloors flexInt  `json:"numberOfFloors"`
	State          string   `json:"state"`
	Condition      string   `json:"condition"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
	Embedded       struct {
		City   embeddedName `json:"city"`
		Region embeddedName `json:"region"`
	} `json:"_embedded"`
}

// Client pages through the property feed.
type Client struct {
	baseURL    string
	cityID     string
	maxItems   int
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the API endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *utils.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
		c.retry.Logger = logger
	}
}

// WithRateLimit sets the request rate
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxItems caps the number of feed items read per fetch
func WithMaxItems(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

// WithRetry sets attempts and the first back-off delay
func WithRetry(attempts int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.retry.MaxAttempts = attempts
		c.retry.BaseDelay = baseDelay
	}
}

// WithCityID changes the city filter
func WithCityID(id string) ClientOption {
	return func(c *Client) {
		c.cityID = id
	}
}

// NewClient creates a proimobil client
func NewClient(opts ...ClientOption) *Client {
	logger := utils.NewSilentLogger()
	c := &Client{
		baseURL:  DefaultBaseURL,
		cityID:   ChisinauCityID,
		maxItems: DefaultMaxItems,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		retry:   &utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Logger: logger},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the source.
func (c *Client) Name() string { return Name }

// URL is the API endpoint.
func (c *Client) URL() string { return c.baseURL }

// APIError is a non-200 response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proimobil API error: %s (status: %d)", e.Message, e.StatusCode)
}

// FetchListings reads pages of active listings until a short page or
// maxItems, then keeps only sale offers in the configured city.
func (c *Client) FetchListings(ctx context.Context) ([]*models.RawListing, error) {
	var all []property
	for offset := 0; offset < c.maxItems; offset += pageSize {
		var page []property
		err := c.retry.Do(ctx, fmt.Sprintf("proimobil-page-%d", offset), func() error {
			var err error
			page, err = c.fetchPage(ctx, offset)
			return err
		})
		if err != nil {
			if len(all) == 0 {
				return nil, err
			}
			c.logger.Warn("[proimobil] Page at offset %d failed, keeping %d items: %v", offset, len(all), err)
			break
		}
		all = append(all, page...)
		c.logger.Debug("[proimobil] offset=%d items=%d", offset, len(page))
		if len(page) < pageSize {
			break
		}
	}

	scrapedAt := time.Now()
	listings := make([]*models.RawListing, 0, len(all))
	for _, p := range all {
		if p.CityID != c.cityID || p.Offer != offerSell {
			continue
		}
		listings = append(listings, p.toRaw(scrapedAt))
	}
	c.logger.Info("[proimobil] Fetched %d items, kept %d sale listings", len(all), len(listings))
	return listings, nil
}

func (c *Client) fetchPage(ctx context.Context, offset int) ([]property, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("filter", "status:active")
	params.Set("sort", "-isHot,-isExclusive,-surrogateId")
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("embedded", "agents,city,region")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "ro,en-US;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var page []property
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return page, nil
}

func (p property) toRaw(scrapedAt time.Time) *models.RawListing {
	var link string
	if slug := strings.Trim(p.URLSlug, "/ "); slug != "" {
		link = SiteURL + "/" + slug
	}
	return &models.RawListing{
		ID:             string(p.ID),
		Platform:       "proimobil",
		Offer:          p.Offer,
		Category:       p.Category,
		Status:         p.Status,
		CityID:         p.CityID,
		City:           p.Embedded.City.I18n.Ro.Name,
		Sector:         p.Embedded.Region.I18n.Ro.Name,
		Street:         p.I18n.Ro.Address,
		State:          p.State,
		Condition:      p.Condition,
		PriceEUR:       float64(p.Price.Amount),
		SurfaceSqm:     float64(p.Surface.Value),
		Rooms:          int(p.Rooms),
		Floor:          int(p.Floor),
		NumberOfFloors: int(p.NumberOfFloors),
		Views:          int(p.Views),
		Orders:         int(p.Order),
		IsHot:          p.IsHot,
		IsExclusive:    p.IsExclusive,
		Deal:           p.Deal,
		Booked:         p.Booked,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		URL:            link,
		ScrapedAt:      scrapedAt,
	}
}
