package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-exito/models"
	"github.com/aluiziolira/go-scrape-exito/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

const opinionWords = `(?:opiniones|opinión|opinion|reseñas|calificaciones|reviews)`

var (
	// "4,5 (123 opiniones)", "4.5 de 5 · 123 opiniones"
	ratingThenCount = regexp.MustCompile(`(?i)\b([0-5](?:[.,]\d{1,2})?)(?:\s*(?:de|/)\s*5)?(?:\s+|\s*[·(|-]\s*)\(?\s*(\d[\d.]*)\s*` + opinionWords)
	// "123 opiniones 4.5 de 5"
	countThenRating = regexp.MustCompile(`(?i)(\d[\d.]*)\s*` + opinionWords + `\D{0,20}?\b([0-5](?:[.,]\d{1,2})?)\s*(?:de|/)\s*5`)
	countOnly       = regexp.MustCompile(`(?i)(\d[\d.]*)\s*` + opinionWords)
)

type pageSource interface {
	Fetch(ctx context.Context, kind, target string) ([]byte, error)
}

// RatingInfo is what a detail page revealed about a product's reviews.
type RatingInfo struct {
	Rating string
	Count  int
}

// Enricher fills rating and review count from product detail pages.
type Enricher struct {
	pages   pageSource
	limit   int
	cache   *lru.Cache[string, RatingInfo]
	metrics *Metrics
}

// NewEnricher builds an enricher that fetches at most limit detail pages
// per batch. cacheSize 0 disables the per-link cache.
func NewEnricher(pages pageSource, limit, cacheSize int, metrics *Metrics) (*Enricher, error) {
	e := &Enricher{pages: pages, limit: limit, metrics: metrics}
	if cacheSize > 0 {
		cache, err := lru.New[string, RatingInfo](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create enrichment cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Enrich looks up ratings for the first limit products, serially. Rating
// and review count come only from detail pages: items past the limit, and
// items whose lookup fails or matches nothing, carry the sentinel rating
// with a zero count. Failures never propagate.
func (e *Enricher) Enrich(ctx context.Context, products []*models.Product) {
	for i, p := range products {
		if i >= e.limit || ctx.Err() != nil {
			applyRating(p, RatingInfo{Rating: models.RatingUnavailable})
			continue
		}
		e.enrichOne(ctx, p)
	}
}

func (e *Enricher) enrichOne(ctx context.Context, p *models.Product) {
	if p.URL == "" {
		applyRating(p, RatingInfo{Rating: models.RatingUnavailable})
		e.metrics.IncEnrich("skipped")
		return
	}
	if e.cache != nil {
		if info, ok := e.cache.Get(p.URL); ok {
			e.metrics.IncEnrich("cached")
			applyRating(p, info)
			return
		}
	}

	body, err := e.pages.Fetch(ctx, "detail", p.URL)
	if err != nil {
		slog.Debug("rating enrichment failed",
			slog.String("url", p.URL),
			slog.String("error_type", errorTypeLabel(err)),
			slog.Any("error", err),
		)
		e.metrics.IncEnrich("failed")
		applyRating(p, RatingInfo{Rating: models.RatingUnavailable})
		return
	}

	info, found := ScanRating(pageText(body))
	if found {
		e.metrics.IncEnrich("hit")
	} else {
		e.metrics.IncEnrich("miss")
	}
	if e.cache != nil {
		e.cache.Add(p.URL, info)
	}
	applyRating(p, info)
}

func applyRating(p *models.Product, info RatingInfo) {
	p.Rating = info.Rating
	if p.Rating == "" {
		p.Rating = models.RatingUnavailable
	}
	p.ReviewCount = info.Count
}

// ScanRating finds a rating and opinion count in rendered page text. A
// count without a rating yields the sentinel rating; no match yields the
// sentinel and zero.
func ScanRating(text string) (RatingInfo, bool) {
	if m := ratingThenCount.FindStringSubmatch(text); m != nil {
		return RatingInfo{Rating: normalizeRating(m[1]), Count: opinionCount(m[2])}, true
	}
	if m := countThenRating.FindStringSubmatch(text); m != nil {
		return RatingInfo{Rating: normalizeRating(m[2]), Count: opinionCount(m[1])}, true
	}
	if m := countOnly.FindStringSubmatch(text); m != nil {
		return RatingInfo{Rating: models.RatingUnavailable, Count: opinionCount(m[1])}, true
	}
	return RatingInfo{Rating: models.RatingUnavailable}, false
}

func normalizeRating(raw string) string {
	return strings.ReplaceAll(raw, ",", ".")
}

func opinionCount(raw string) int {
	n, ok := parser.FirstInt(raw)
	if !ok {
		return 0
	}
	return int(n)
}

// pageText renders the visible text of a detail page on one line.
func pageText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return string(body)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}
