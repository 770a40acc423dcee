package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-exito/models"
)

func TestScanRating(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantRate  string
		wantCount int
		wantFound bool
	}{
		{name: "rating then count in parens", text: "Calificación 4,5 (123 opiniones)", wantRate: "4.5", wantCount: 123, wantFound: true},
		{name: "rating out of five", text: "4.5 de 5 · 123 opiniones", wantRate: "4.5", wantCount: 123, wantFound: true},
		{name: "count then rating", text: "123 opiniones 4.5 de 5", wantRate: "4.5", wantCount: 123, wantFound: true},
		{name: "thousands in count", text: "4,8 (1.204 opiniones)", wantRate: "4.8", wantCount: 1204, wantFound: true},
		{name: "count only", text: "Basado en 37 opiniones", wantRate: models.RatingUnavailable, wantCount: 37, wantFound: true},
		{name: "count only is not split into rating", text: "(123 opiniones)", wantRate: models.RatingUnavailable, wantCount: 123, wantFound: true},
		{name: "nothing", text: "Sé el primero en opinar", wantRate: models.RatingUnavailable, wantCount: 0, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ScanRating(tt.text)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if got.Rating != tt.wantRate || got.Count != tt.wantCount {
				t.Fatalf("ScanRating(%q) = %q/%d, want %q/%d", tt.text, got.Rating, got.Count, tt.wantRate, tt.wantCount)
			}
		})
	}
}

type stubPages struct {
	calls map[string]int
	body  string
	err   error
}

func (s *stubPages) Fetch(_ context.Context, _ string, target string) ([]byte, error) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[target]++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

func productsWithLinks(links ...string) []*models.Product {
	out := make([]*models.Product, 0, len(links))
	for _, link := range links {
		out = append(out, &models.Product{URL: link, Rating: models.RatingUnavailable})
	}
	return out
}

func TestEnricherCachesByLink(t *testing.T) {
	pages := &stubPages{body: "<html><body><span>4,2</span> <span>(9 opiniones)</span></body></html>"}
	e, err := NewEnricher(pages, 10, 8, NewMetrics())
	if err != nil {
		t.Fatalf("new enricher: %v", err)
	}

	products := productsWithLinks("https://www.exito.com/a/p", "https://www.exito.com/a/p", "https://www.exito.com/b/p")
	e.Enrich(context.Background(), products)

	if got := pages.calls["https://www.exito.com/a/p"]; got != 1 {
		t.Fatalf("fetches for repeated link = %d, want 1", got)
	}
	for i, p := range products {
		if p.Rating != "4.2" || p.ReviewCount != 9 {
			t.Fatalf("products[%d] = %q/%d, want 4.2/9", i, p.Rating, p.ReviewCount)
		}
	}
}

func TestEnricherSkipsMissingLinksAndSwallowsErrors(t *testing.T) {
	pages := &stubPages{err: ErrTimeout{Err: context.DeadlineExceeded}}
	e, err := NewEnricher(pages, 10, 0, NewMetrics())
	if err != nil {
		t.Fatalf("new enricher: %v", err)
	}

	products := productsWithLinks("", "https://www.exito.com/c/p")
	products[1].Rating = "4.0"
	e.Enrich(context.Background(), products)

	if len(pages.calls) != 1 {
		t.Fatalf("fetched %v, want only the linked product", pages.calls)
	}
	if products[0].Rating != models.RatingUnavailable {
		t.Fatalf("unlinked product rating = %q", products[0].Rating)
	}
	if products[1].Rating != models.RatingUnavailable || products[1].ReviewCount != 0 {
		t.Fatalf("failed enrichment = %q/%d, want sentinel/0", products[1].Rating, products[1].ReviewCount)
	}
}

func TestEnricherOverridesStateRatings(t *testing.T) {
	pages := &stubPages{body: "<html><body><p>Basado en 7 opiniones</p></body></html>"}
	e, err := NewEnricher(pages, 1, 0, NewMetrics())
	if err != nil {
		t.Fatalf("new enricher: %v", err)
	}

	products := productsWithLinks("https://www.exito.com/e/p", "https://www.exito.com/f/p")
	products[0].Rating, products[0].ReviewCount = "4.1", 2
	products[1].Rating, products[1].ReviewCount = "3.9", 5
	e.Enrich(context.Background(), products)

	if products[0].Rating != models.RatingUnavailable || products[0].ReviewCount != 7 {
		t.Fatalf("count-only match = %q/%d, want sentinel/7", products[0].Rating, products[0].ReviewCount)
	}
	if products[1].Rating != models.RatingUnavailable || products[1].ReviewCount != 0 {
		t.Fatalf("item past the limit = %q/%d, want sentinel/0", products[1].Rating, products[1].ReviewCount)
	}
	if len(pages.calls) != 1 {
		t.Fatalf("fetches = %v, want only the first product", pages.calls)
	}
}

func TestEnricherMissResetsRating(t *testing.T) {
	pages := &stubPages{body: "<html><body><p>Sé el primero en opinar</p></body></html>"}
	e, err := NewEnricher(pages, 5, 0, nil)
	if err != nil {
		t.Fatalf("new enricher: %v", err)
	}

	products := productsWithLinks("https://www.exito.com/g/p")
	products[0].Rating, products[0].ReviewCount = "4.4", 3
	e.Enrich(context.Background(), products)

	if products[0].Rating != models.RatingUnavailable || products[0].ReviewCount != 0 {
		t.Fatalf("no match = %q/%d, want sentinel/0", products[0].Rating, products[0].ReviewCount)
	}
}

func TestEnricherZeroLimitFetchesNothing(t *testing.T) {
	pages := &stubPages{err: errors.New("must not be called")}
	e, err := NewEnricher(pages, 0, 0, nil)
	if err != nil {
		t.Fatalf("new enricher: %v", err)
	}
	products := productsWithLinks("https://www.exito.com/d/p")
	products[0].Rating = "4.9"
	e.Enrich(context.Background(), products)
	if len(pages.calls) != 0 {
		t.Fatalf("fetches = %v, want none", pages.calls)
	}
	if products[0].Rating != models.RatingUnavailable {
		t.Fatalf("rating = %q, want sentinel", products[0].Rating)
	}
}
