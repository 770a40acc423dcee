package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-exito/config"
	"github.com/gocolly/colly/v2"
)

// maxPageBytes bounds a listing or detail page body.
const maxPageBytes = 20 << 20

// pageFetcher issues single synchronous page visits through colly.
type pageFetcher struct {
	collector      *colly.Collector
	acceptLanguage string
	metrics        *Metrics
}

func newPageFetcher(cfg *config.Config, metrics *Metrics) (*pageFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(maxPageBytes),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &pageFetcher{
		collector:      collector,
		acceptLanguage: cfg.AcceptLanguage,
		metrics:        metrics,
	}, nil
}

// Fetch visits target once and returns the response body. kind labels the
// request in metrics ("listing" or "detail").
func (f *pageFetcher) Fetch(ctx context.Context, kind, target string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()
	var (
		body    []byte
		status  int
		failure error
	)
	c.OnRequest(func(r *colly.Request) {
		if f.acceptLanguage != "" {
			r.Headers.Set("Accept-Language", f.acceptLanguage)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		failure = err
	})

	start := time.Now()
	err := c.Visit(target)
	f.metrics.ObserveRequest(kind, time.Since(start))
	if failure == nil {
		failure = err
	}

	if classified := classifyError(failure, status); classified != nil {
		f.metrics.IncError(kind, errorTypeLabel(classified))
		return nil, classified
	}
	return body, nil
}
