package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "APP"

// Config holds all application configuration loaded from .env, APP_*
// environment variables and command-line flags.
type Config struct {
	Port        int
	Environment string
	LogLevel    string

	CacheTTL           time.Duration
	ScrapingInterval   time.Duration
	SchedulerAutoStart bool
	ProimobilAPIURL    string
	ProimobilMaxItems  int
	ProimobilRateLimit float64
	AccesimobilURL     string
	MD999URL           string
	Enable999MDScraper bool
	Max999MDPages      int
	ChromeBin          string
	MaxConcurrency     int
	RateLimitMs        int
	MaxRetries         int
	RequestTimeout     time.Duration
	CORSOrigins        []string
	ExportPath         string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl_minutes", 30)
	v.SetDefault("scraping_interval_minutes", 30)
	v.SetDefault("scheduler_auto_start", true)
	v.SetDefault("proimobil_api_url", "https://api.proimobil.md/v1/properties")
	v.SetDefault("proimobil_max_items", 1000)
	v.SetDefault("proimobil_rate_limit", 5.0)
	v.SetDefault("accesimobil_url", "https://accesimobil.md/apartamente-vanzare?fi1[]=8&fi2[]=72")
	v.SetDefault("md999_url", "https://999.md/ro/list/real-estate/apartments-and-rooms?appl=1&o_30_241=894")
	v.SetDefault("enable_999md_scraper", false)
	v.SetDefault("max_999md_pages", 3)
	v.SetDefault("chrome_bin", "")
	v.SetDefault("max_concurrency", 6)
	v.SetDefault("rate_limit_ms", 0)
	v.SetDefault("max_retries", 3)
	v.SetDefault("request_timeout", "15s")
	v.SetDefault("cors_origins", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("export_path", "./output/listings.csv")
}

// Load reads the .env file (if any), binds APP_* variables and returns a
// validated Config. Flags bound to v beforehand take precedence.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Port:               v.GetInt("port"),
		Environment:        v.GetString("environment"),
		LogLevel:           strings.ToLower(v.GetString("log_level")),
		CacheTTL:           time.Duration(v.GetInt("cache_ttl_minutes")) * time.Minute,
		ScrapingInterval:   time.Duration(v.GetInt("scraping_interval_minutes")) * time.Minute,
		SchedulerAutoStart: v.GetBool("scheduler_auto_start"),
		ProimobilAPIURL:    v.GetString("proimobil_api_url"),
		ProimobilMaxItems:  v.GetInt("proimobil_max_items"),
		ProimobilRateLimit: v.GetFloat64("proimobil_rate_limit"),
		AccesimobilURL:     v.GetString("accesimobil_url"),
		MD999URL:           v.GetString("md999_url"),
		Enable999MDScraper: v.GetBool("enable_999md_scraper"),
		Max999MDPages:      v.GetInt("max_999md_pages"),
		ChromeBin:          v.GetString("chrome_bin"),
		MaxConcurrency:     v.GetInt("max_concurrency"),
		RateLimitMs:        v.GetInt("rate_limit_ms"),
		MaxRetries:         v.GetInt("max_retries"),
		RequestTimeout:     v.GetDuration("request_timeout"),
		CORSOrigins:        splitList(v.GetString("cors_origins")),
		ExportPath:         v.GetString("export_path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}
	if c.ScrapingInterval <= 0 {
		errs = append(errs, errors.New("scraping interval must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, errors.New("max concurrency must be at least 1"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
