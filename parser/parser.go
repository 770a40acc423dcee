// Package parser holds the field heuristics and text cleanup shared by the
// extraction tiers.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-exito/models"
)

// MaxSpecifications caps the specifications kept in a composed description.
const MaxSpecifications = 15

var (
	intRunRegex = regexp.MustCompile(`\d[\d.,\s\x{00a0}]*`)
	// two digits (optionally one decimal) not preceded by another digit,
	// followed by an inch marker or the localized word for inches
	sizeRegex = regexp.MustCompile(`(?i)(?:^|\D)(\d{2}(?:\.\d)?)\s*(?:"|”|''|pulgadas|pulg\.?)`)
)

// ValidateProduct reports the first missing required field.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("product missing title")
	}
	return nil
}

// FirstInt extracts the first integer run from display text, dropping
// thousands and decimal punctuation ("$ 1.299.900" -> 1299900).
func FirstInt(text string) (int64, bool) {
	run := intRunRegex.FindString(text)
	if run == "" {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, run)
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// RoundPrice rounds a catalog price to the nearest integer.
func RoundPrice(price float64) int64 {
	return int64(math.Round(price))
}

// InferSize returns a screen size label such as `55"` from a title, or "".
func InferSize(title string) string {
	m := sizeRegex.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1] + `"`
}

// IsFalsyValue reports whether a specification value textually means "no".
func IsFalsyValue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "no", "false", "0":
		return true
	}
	return false
}

// specPriority lists, in rank order, the keywords identifying each
// specification group. Unmatched specifications rank after all groups.
var specPriority = [][]string{
	{"pantalla", "screen", "pulgadas"},
	{"resoluci", "resolution"},
	{"sistema operativo", "operating system"},
	{"conectividad", "connectivity", "wifi", "wi-fi", "bluetooth"},
	{"puerto", "ports", "hdmi", "usb"},
	{"potencia", "consumo", "voltaje", "power"},
	{"dimensi", "medidas", "dimensions"},
	{"garant", "warranty"},
	{"modelo", "referencia", "model"},
}

func specRank(name string) int {
	lower := strings.ToLower(name)
	for rank, keywords := range specPriority {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return rank
			}
		}
	}
	return len(specPriority)
}

// RankSpecifications drops empty and falsy values, orders the rest by
// priority group (source order within a group) and keeps at most limit.
func RankSpecifications(specs []models.Specification, limit int) []models.Specification {
	kept := make([]models.Specification, 0, len(specs))
	for _, s := range specs {
		name := strings.TrimSpace(s.Name)
		value := strings.TrimSpace(s.Value)
		if name == "" || value == "" || IsFalsyValue(value) {
			continue
		}
		kept = append(kept, models.Specification{Name: name, Value: value})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return specRank(kept[i].Name) < specRank(kept[j].Name)
	})
	if limit >= 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
