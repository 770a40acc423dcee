// Package normalizer maps raw items of any extraction tier to the canonical
// product schema.
package normalizer

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-exito/models"
	"github.com/aluiziolira/go-scrape-exito/parser"
)

// Counter is the run-scoped global extraction counter.
type Counter struct {
	n atomic.Int64
}

// Next increments the counter and returns the new value.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.n.Load()
}

// Position locates a raw item within a run.
type Position struct {
	GlobalIndex int64
	PageIndex   int
	Page        int
	Category    string
	Television  bool
}

// Options configures a Normalizer.
type Options struct {
	BaseURL  string
	Currency string
	Source   string
	// Clean turns markup into readable text. Defaults to parser.CleanHTML.
	Clean func(string) string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Normalizer converts raw items into canonical products.
type Normalizer struct {
	base     *url.URL
	currency string
	source   string
	clean    func(string) string
	now      func() time.Time
}

// New builds a Normalizer.
func New(opts Options) (*Normalizer, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", opts.BaseURL)
	}
	n := &Normalizer{
		base:     base,
		currency: opts.Currency,
		source:   opts.Source,
		clean:    opts.Clean,
		now:      opts.Now,
	}
	if n.clean == nil {
		n.clean = parser.CleanHTML
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n, nil
}

// Normalize maps one raw item to a canonical product. It never fails: a
// product without a title is tagged MISSING_FIELDS.
func (n *Normalizer) Normalize(raw models.RawItem, pos Position) *models.Product {
	p := &models.Product{
		GlobalIndex: pos.GlobalIndex,
		PageIndex:   pos.PageIndex,
		Rating:      models.RatingUnavailable,
		Source:      n.source,
		Category:    pos.Category,
		Page:        pos.Page,
		ExtractedAt: n.now().Format(time.RFC3339),
	}

	var (
		price     *float64
		priceText string
		currency  string
	)

	switch item := raw.(type) {
	case *models.APIProduct:
		p.Tier = models.TierAPI
		if item == nil {
			break
		}
		p.Title = strings.TrimSpace(item.ProductName)
		p.Brand = strings.TrimSpace(item.Brand)
		p.ImageURL = n.absolute(item.FirstImage())
		p.URL = n.absolute(firstNonEmpty(item.Link, slugLink(item.LinkText)))
		if offer, ok := item.FirstOffer(); ok {
			price = offer.Price
			currency = offer.CurrencyCode
		}
		p.Description = n.apiDescription(item)
	case *models.StateProduct:
		p.Tier = models.TierState
		if item == nil {
			break
		}
		p.Title = strings.TrimSpace(item.Name)
		p.Brand = strings.TrimSpace(item.Brand)
		p.ImageURL = n.absolute(item.Image)
		p.URL = n.absolute(item.Link)
		price, priceText, currency = item.Price, item.PriceText, item.Currency
		if r := strings.TrimSpace(item.Rating); r != "" {
			p.Rating = r
		}
		p.Description = n.clean(item.Details)
	case *models.CardProduct:
		p.Tier = models.TierHTML
		if item == nil {
			break
		}
		p.Title = strings.TrimSpace(item.Name)
		p.ImageURL = n.absolute(item.Image)
		p.URL = n.absolute(item.Link)
		priceText = item.PriceText
	}

	n.applyPrice(p, price, strings.TrimSpace(priceText), strings.TrimSpace(currency))

	if pos.Television {
		p.Size = parser.InferSize(p.Title)
	}

	p.Status = models.StatusOK
	if err := parser.ValidateProduct(p); err != nil {
		p.Status = models.StatusMissingFields
	}
	return p
}

func (n *Normalizer) applyPrice(p *models.Product, price *float64, text, currency string) {
	if price != nil && *price > 0 {
		v := parser.RoundPrice(*price)
		p.PriceValue = &v
	} else if text != "" {
		if v, ok := parser.FirstInt(text); ok {
			p.PriceValue = &v
		}
	}

	p.Currency = currency
	if p.Currency == "" && p.PriceValue != nil {
		p.Currency = n.currency
	}

	p.PriceText = text
	if p.PriceText == "" && p.PriceValue != nil {
		p.PriceText = fmt.Sprintf("%s %d", p.Currency, *p.PriceValue)
	}
}

// apiDescription composes the meta description and the ranked
// specifications, falling back to the long description.
func (n *Normalizer) apiDescription(item *models.APIProduct) string {
	meta := strings.TrimSpace(item.MetaTagDescription)
	specs := parser.RankSpecifications(item.Specifications, parser.MaxSpecifications)
	if meta == "" && len(specs) == 0 {
		return n.clean(item.Description)
	}

	var b strings.Builder
	if meta != "" {
		b.WriteString("<p>")
		b.WriteString(meta)
		b.WriteString("</p>")
	}
	if len(specs) > 0 {
		b.WriteString("<ul>")
		for _, s := range specs {
			fmt.Fprintf(&b, "<li><strong>%s:</strong> %s</li>", html.EscapeString(s.Name), html.EscapeString(s.Value))
		}
		b.WriteString("</ul>")
	}
	return n.clean(b.String())
}

// absolute resolves a possibly relative reference against the site base.
func (n *Normalizer) absolute(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	return n.base.ResolveReference(u).String()
}

func slugLink(slug string) string {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return ""
	}
	return "/" + slug + "/p"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
