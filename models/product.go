// Package models defines data structures for the scraper.
package models

import "time"

// RatingUnavailable marks a product whose rating could not be obtained.
// It is distinct from an actual zero rating.
const RatingUnavailable = "N/A"

// Status tags the completeness of a canonical record.
type Status string

const (
	StatusOK            Status = "OK"
	StatusMissingFields Status = "MISSING_FIELDS"
)

// Tier names the extraction strategy that produced a raw item.
type Tier string

const (
	TierAPI   Tier = "api"
	TierState Tier = "state"
	TierHTML  Tier = "html"
)

// Product is the canonical record emitted for every extracted item,
// regardless of which tier supplied it.
type Product struct {
	GlobalIndex int64  `csv:"global_index" json:"global_index"`
	PageIndex   int    `csv:"page_index" json:"page_index"`
	Title       string `csv:"title" json:"title"`
	Brand       string `csv:"brand" json:"brand"`
	PriceText   string `csv:"price_text" json:"price_text"`
	PriceValue  *int64 `csv:"price_value" json:"price_value"`
	Currency    string `csv:"currency" json:"currency,omitempty"`
	Size        string `csv:"size" json:"size"`
	Rating      string `csv:"rating" json:"rating"`
	ReviewCount int    `csv:"review_count" json:"review_count"`
	Description string `csv:"description" json:"description"`
	Source      string `csv:"source" json:"source"`
	Category    string `csv:"category" json:"category"`
	ImageURL    string `csv:"image_url" json:"image_url"`
	URL         string `csv:"url" json:"url"`
	Page        int    `csv:"page" json:"page"`
	ExtractedAt string `csv:"extracted_at" json:"extracted_at"`
	Status      Status `csv:"status" json:"status"`
	Tier        Tier   `csv:"tier" json:"tier"`
}

// HasRating reports whether the product carries an actual rating.
func (p *Product) HasRating() bool {
	return p.Rating != "" && p.Rating != RatingUnavailable
}

// ScrapeResult holds the overall result of a category run.
type ScrapeResult struct {
	Category       string
	StartTime      time.Time
	EndTime        time.Time
	PagesRequested int
	PagesPersisted int
	EmptyPages     []int
	TotalCount     int
	StatusCounts   map[Status]int
	TierCounts     map[Tier]int
}
