package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-exito/config"
	"github.com/aluiziolira/go-scrape-exito/models"
	"github.com/go-resty/resty/v2"
)

const searchPath = "/api/catalog_system/pub/products/search"

// catalogClient queries the storefront catalog search API.
type catalogClient struct {
	client   *resty.Client
	pageSize int
	metrics  *Metrics
}

func newCatalogClient(cfg *config.Config, metrics *Metrics) *catalogClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", cfg.AcceptLanguage)

	return &catalogClient{
		client:   client,
		pageSize: cfg.PageSize,
		metrics:  metrics,
	}
}

// Search fetches one page of a category. A decodable array, even an empty
// one, is a success; transport, status and decode failures are returned
// as typed errors.
func (c *catalogClient) Search(ctx context.Context, category config.Category, page int) ([]*models.APIProduct, error) {
	from := (page - 1) * c.pageSize
	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("_from", strconv.Itoa(from)).
		SetQueryParam("_to", strconv.Itoa(from+c.pageSize-1))

	path := searchPath
	if category.SearchTerm != "" {
		req.SetQueryParam("ft", category.SearchTerm)
	} else {
		path += "/" + strings.Trim(category.APIPath, "/")
	}

	start := time.Now()
	resp, err := req.Get(path)
	c.metrics.ObserveRequest("api", time.Since(start))
	if err != nil {
		classified := classifyError(err, 0)
		c.metrics.IncError("api", errorTypeLabel(classified))
		return nil, classified
	}
	// the search endpoint answers 206 with a resources header
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		classified := classifyError(nil, resp.StatusCode())
		if classified == nil {
			classified = ErrStatus{Code: resp.StatusCode()}
		}
		c.metrics.IncError("api", errorTypeLabel(classified))
		return nil, classified
	}

	products, err := decodeCatalog(resp.Body())
	if err != nil {
		c.metrics.IncError("api", "decode")
		return nil, err
	}
	return products, nil
}

func decodeCatalog(body []byte) ([]*models.APIProduct, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrDecode{Err: fmt.Errorf("catalog response is not a JSON array")}
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, ErrDecode{Err: err}
	}

	products := make([]*models.APIProduct, 0, len(elements))
	for i, raw := range elements {
		// null and non-object elements are dropped; the rest of the array survives
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			slog.Debug("skipping null catalog item", slog.Int("index", i))
			continue
		}
		var product models.APIProduct
		if err := json.Unmarshal(raw, &product); err != nil {
			slog.Debug("skipping malformed catalog item", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		products = append(products, &product)
	}
	return products, nil
}
