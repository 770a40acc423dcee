// Package pipeline drives category runs page by page and persists the
// resulting records.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-exito/models"
)

// PageScraper extracts the canonical records of one listing page.
type PageScraper interface {
	ScrapePage(ctx context.Context, category string, page int) ([]*models.Product, error)
}

// Repository persists page batches. Implementations are append-only.
type Repository interface {
	Persist(products []*models.Product) error
	Close() error
}

// PageCounter records page outcomes ("persisted", "empty").
type PageCounter interface {
	IncPage(outcome string)
}

// Orchestrator iterates pages 1..N of a category, handing every non-empty
// page to the repository exactly once.
type Orchestrator struct {
	scraper PageScraper
	repo    Repository
	pages   PageCounter
	now     func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPageCounter reports page outcomes to c.
func WithPageCounter(c PageCounter) Option {
	return func(o *Orchestrator) {
		o.pages = c
	}
}

// NewOrchestrator wires a scraper to a repository.
func NewOrchestrator(scraper PageScraper, repo Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scraper: scraper,
		repo:    repo,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run scrapes pages 1..pages of category in order. Empty pages are recorded
// and skipped; scraper errors (configuration, cancellation) and repository
// errors stop the run. The returned summary is populated in both cases.
func (o *Orchestrator) Run(ctx context.Context, category string, pages int) (*models.ScrapeResult, error) {
	if pages < 1 {
		return nil, fmt.Errorf("pages must be at least 1, got %d", pages)
	}

	result := &models.ScrapeResult{
		Category:       category,
		StartTime:      o.now(),
		PagesRequested: pages,
		StatusCounts:   make(map[models.Status]int),
		TierCounts:     make(map[models.Tier]int),
	}
	finish := func(err error) (*models.ScrapeResult, error) {
		result.EndTime = o.now()
		return result, err
	}

	for page := 1; page <= pages; page++ {
		products, err := o.scraper.ScrapePage(ctx, category, page)
		if err != nil {
			return finish(fmt.Errorf("scrape page %d: %w", page, err))
		}

		if len(products) == 0 {
			result.EmptyPages = append(result.EmptyPages, page)
			o.countPage("empty")
			slog.Warn("empty page, skipping persistence",
				slog.String("category", category),
				slog.Int("page", page),
			)
			continue
		}

		if err := o.repo.Persist(products); err != nil {
			return finish(fmt.Errorf("persist page %d: %w", page, err))
		}
		o.countPage("persisted")
		result.PagesPersisted++
		result.TotalCount += len(products)
		for _, p := range products {
			result.StatusCounts[p.Status]++
			result.TierCounts[p.Tier]++
		}
		slog.Info("page persisted",
			slog.String("category", category),
			slog.Int("page", page),
			slog.Int("records", len(products)),
		)
	}

	return finish(nil)
}

func (o *Orchestrator) countPage(outcome string) {
	if o.pages != nil {
		o.pages.IncPage(outcome)
	}
}
