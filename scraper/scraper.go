package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-exito/config"
	"github.com/aluiziolira/go-scrape-exito/extract"
	"github.com/aluiziolira/go-scrape-exito/models"
	"github.com/aluiziolira/go-scrape-exito/normalizer"
)

// Scraper runs the API, embedded state and listing card tiers for one page
// at a time. It owns the run's global extraction counter, so a Scraper
// must not be shared between concurrent runs.
type Scraper struct {
	cfg        *config.Config
	categories *config.Categories
	catalog    *catalogClient
	pages      *pageFetcher
	state      *extract.StateExtractor
	normalizer *normalizer.Normalizer
	enricher   *Enricher
	counter    normalizer.Counter
	Metrics    *Metrics

	pause func(ctx context.Context, d time.Duration)
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, categories *config.Categories) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if categories == nil {
		return nil, fmt.Errorf("categories cannot be nil")
	}

	metrics := NewMetrics()
	pages, err := newPageFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	norm, err := normalizer.New(normalizer.Options{
		BaseURL:  cfg.BaseURL,
		Currency: cfg.Currency,
		Source:   cfg.Source,
	})
	if err != nil {
		return nil, err
	}
	enricher, err := NewEnricher(pages, cfg.EnrichLimit, cfg.EnrichCacheSize, metrics)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:        cfg,
		categories: categories,
		catalog:    newCatalogClient(cfg, metrics),
		pages:      pages,
		state:      extract.NewStateExtractor(),
		normalizer: norm,
		enricher:   enricher,
		Metrics:    metrics,
		pause:      sleepContext,
	}, nil
}

// SetTransport routes every request (API, listing and detail) through rt.
func (s *Scraper) SetTransport(rt http.RoundTripper) {
	s.pages.collector.WithTransport(rt)
	s.catalog.client.SetTransport(rt)
}

// Extracted returns how many records this scraper has produced so far.
func (s *Scraper) Extracted() int64 {
	return s.counter.Value()
}

// ScrapePage extracts, normalizes and enriches one listing page. An unknown
// category fails before any request; every other failure degrades to
// fewer records. The per-page pause runs before returning, whatever the
// outcome.
func (s *Scraper) ScrapePage(ctx context.Context, categoryKey string, page int) ([]*models.Product, error) {
	category, err := s.categories.Lookup(categoryKey)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("page must be positive, got %d", page)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.pause(ctx, s.nextDelay())

	raw, tier := s.acquire(ctx, category, page)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	products := make([]*models.Product, 0, len(raw))
	for i, item := range raw {
		p := s.normalizer.Normalize(item, normalizer.Position{
			GlobalIndex: s.counter.Next(),
			PageIndex:   i + 1,
			Page:        page,
			Category:    category.Key,
			Television:  category.IsTelevision(),
		})
		s.Metrics.IncRecord(string(p.Status))
		products = append(products, p)
	}

	s.enricher.Enrich(ctx, products)

	slog.Info("page extracted",
		slog.String("category", category.Key),
		slog.Int("page", page),
		slog.String("tier", string(tier)),
		slog.Int("records", len(products)),
	)
	return products, nil
}

// acquire walks the tiers in order and returns the raw items of the first
// one that is authoritative.
func (s *Scraper) acquire(ctx context.Context, category config.Category, page int) ([]models.RawItem, models.Tier) {
	products, err := s.catalog.Search(ctx, category, page)
	if err == nil {
		s.Metrics.IncTier(string(models.TierAPI), outcome(len(products)))
		s.Metrics.AddItems(string(models.TierAPI), len(products))
		items := make([]models.RawItem, len(products))
		for i, p := range products {
			items[i] = p
		}
		return items, models.TierAPI
	}
	s.Metrics.IncTier(string(models.TierAPI), "failed")
	slog.Warn("catalog api failed, falling back to listing page",
		slog.String("category", category.Key),
		slog.Int("page", page),
		slog.String("error_type", errorTypeLabel(err)),
		slog.Any("error", err),
	)
	if ctx.Err() != nil {
		return nil, models.TierAPI
	}

	listingURL, err := category.ListingURLForPage(page)
	if err != nil {
		slog.Error("listing url", slog.String("category", category.Key), slog.Any("error", err))
		return nil, models.TierState
	}
	doc, err := s.pages.Fetch(ctx, "listing", listingURL)
	if err != nil {
		s.Metrics.IncTier(string(models.TierState), "failed")
		slog.Warn("listing page fetch failed",
			slog.String("url", listingURL),
			slog.String("error_type", errorTypeLabel(err)),
			slog.Any("error", err),
		)
		return nil, models.TierState
	}

	if state, ok := s.state.Extract(doc); ok {
		if items := extract.ItemsFromState(state, s.cfg.BaseURL); len(items) > 0 {
			s.Metrics.IncTier(string(models.TierState), "ok")
			s.Metrics.AddItems(string(models.TierState), len(items))
			return items, models.TierState
		}
	}
	s.Metrics.IncTier(string(models.TierState), "empty")

	items := extract.CardsFromHTML(doc)
	s.Metrics.IncTier(string(models.TierHTML), outcome(len(items)))
	s.Metrics.AddItems(string(models.TierHTML), len(items))
	return items, models.TierHTML
}

func outcome(n int) string {
	if n == 0 {
		return "empty"
	}
	return "ok"
}

func (s *Scraper) nextDelay() time.Duration {
	d := s.cfg.Delay
	if s.cfg.RandomDelay > 0 {
		d += rand.N(s.cfg.RandomDelay + 1)
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
