package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategoriesYAML []byte

// Category maps a category key to its listing page and catalog API lookup.
type Category struct {
	Key        string `yaml:"-"`
	ListingURL string `yaml:"listing_url"`
	APIPath    string `yaml:"api_path"`
	SearchTerm string `yaml:"search_term"`
}

// ListingURLForPage returns the listing URL with its page query parameter
// replaced (or added).
func (c Category) ListingURLForPage(page int) (string, error) {
	u, err := url.Parse(c.ListingURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url for %s: %w", c.Key, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// IsTelevision reports whether the category lists televisions.
func (c Category) IsTelevision() bool {
	return strings.Contains(strings.ToLower(c.Key), "televis")
}

// Categories is the immutable category table.
type Categories struct {
	byKey map[string]Category
}

// ErrUnknownCategory is a configuration error raised before any network call.
type ErrUnknownCategory struct {
	Key string
	// Suggestion is the closest known key, if any is close enough.
	Suggestion string
}

func (e ErrUnknownCategory) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown category %q (did you mean %q?)", e.Key, e.Suggestion)
	}
	return fmt.Sprintf("unknown category %q", e.Key)
}

// minSuggestionSimilarity is the Jaro-Winkler score a known key needs to be
// offered as a suggestion.
const minSuggestionSimilarity = 0.85

type categoriesFile struct {
	Categories map[string]Category `yaml:"categories"`
}

// DefaultCategories returns the embedded category table.
func DefaultCategories() (*Categories, error) {
	return ParseCategories(defaultCategoriesYAML)
}

// LoadCategories reads a category table from path, or the embedded default
// when path is empty.
func LoadCategories(path string) (*Categories, error) {
	if path == "" {
		return DefaultCategories()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	return ParseCategories(data)
}

// ParseCategories decodes a YAML category table.
func ParseCategories(data []byte) (*Categories, error) {
	var file categoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("categories table is empty")
	}

	byKey := make(map[string]Category, len(file.Categories))
	for key, cat := range file.Categories {
		if cat.ListingURL == "" {
			return nil, fmt.Errorf("category %q has no listing_url", key)
		}
		if _, err := url.Parse(cat.ListingURL); err != nil {
			return nil, fmt.Errorf("category %q: invalid listing_url: %w", key, err)
		}
		if cat.APIPath == "" && cat.SearchTerm == "" {
			return nil, fmt.Errorf("category %q needs api_path or search_term", key)
		}
		cat.Key = key
		byKey[key] = cat
	}
	return &Categories{byKey: byKey}, nil
}

// Lookup returns the category for key.
func (c *Categories) Lookup(key string) (Category, error) {
	cat, ok := c.byKey[key]
	if !ok {
		return Category{}, ErrUnknownCategory{Key: key, Suggestion: c.closest(key)}
	}
	return cat, nil
}

func (c *Categories) closest(key string) string {
	best, bestScore := "", minSuggestionSimilarity
	for _, known := range c.Keys() {
		if score := matchr.JaroWinkler(strings.ToLower(key), known, false); score >= bestScore {
			best, bestScore = known, score
		}
	}
	return best
}

// Keys returns the sorted category keys.
func (c *Categories) Keys() []string {
	keys := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
