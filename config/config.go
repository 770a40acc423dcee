package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL         string
	Category        string
	Pages           int
	PageSize        int
	Delay           time.Duration
	RandomDelay     time.Duration
	Timeout         time.Duration
	EnrichLimit     int
	EnrichCacheSize int
	Currency        string
	Source          string
	CategoriesFile  string
	OutputFile      string
	OutputFormat    string // jsonl, csv, sqlite, or dual
	FormattedJSON   bool   // also keep <stem>_formatted.json next to JSON lines
	UserAgent       string
	AcceptLanguage  string
	Verbose         bool
	MetricsAddr     string
}

// DefaultConfig returns conservative defaults for the exito.com storefront.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.exito.com",
		Category:        "televisores",
		Pages:           1,
		PageSize:        50,
		Delay:           1 * time.Second,
		RandomDelay:     1 * time.Second,
		Timeout:         25 * time.Second,
		EnrichLimit:     10,
		EnrichCacheSize: 512,
		Currency:        "COP",
		Source:          "exito.com",
		OutputFile:      "output/products.jsonl",
		OutputFormat:    "jsonl",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage:  "es-CO,es;q=0.9",
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Category == "" {
		return fmt.Errorf("category cannot be empty")
	}
	if c.Pages <= 0 {
		return fmt.Errorf("pages must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.EnrichLimit < 0 {
		return fmt.Errorf("enrich limit cannot be negative")
	}
	if c.EnrichCacheSize < 0 {
		return fmt.Errorf("enrich cache size cannot be negative")
	}
	if c.Currency == "" {
		return fmt.Errorf("currency cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "jsonl", "csv", "sqlite", "dual":
	default:
		return fmt.Errorf("output format must be jsonl, csv, sqlite, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
