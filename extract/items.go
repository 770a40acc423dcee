package extract

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-exito/models"
)

// maxWalkDepth bounds the search for a product list inside a state tree.
const maxWalkDepth = 6

// ItemsFromState recovers product items from a decoded state blob. baseURL
// is used to build links from VTEX link slugs.
func ItemsFromState(state map[string]any, baseURL string) []models.RawItem {
	if len(state) == 0 {
		return nil
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	// VTEX render state: product objects keyed by cache id
	var items []models.RawItem
	for _, key := range sortedKeys(state) {
		obj, ok := state[key].(map[string]any)
		if !ok || !hasKey(obj, "productName") || !hasKey(obj, "brand") {
			continue
		}
		items = append(items, fromRenderState(obj, baseURL))
	}
	if len(items) > 0 {
		return items
	}

	// Next.js page props
	list := listFromPageProps(state)
	if list == nil {
		list = findProductList(state, 0)
	}
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, fromListEntry(obj, baseURL))
	}
	return items
}

func fromRenderState(obj map[string]any, baseURL string) *models.StateProduct {
	item := &models.StateProduct{
		Name:  firstText(obj, "productName", "product-name"),
		Brand: firstText(obj, "brand"),
	}
	if slug := firstText(obj, "linkText", "slug"); slug != "" {
		item.Link = baseURL + "/" + slug + "/p"
	}

	skus, _ := obj["items"].([]any)
	if len(skus) == 0 {
		return item
	}
	sku, _ := skus[0].(map[string]any)
	if images, _ := sku["images"].([]any); len(images) > 0 {
		if img, ok := images[0].(map[string]any); ok {
			item.Image = firstText(img, "imageUrl", "url")
		}
	}
	if sellers, _ := sku["sellers"].([]any); len(sellers) > 0 {
		if seller, ok := sellers[0].(map[string]any); ok {
			offer, _ := seller["commertialOffer"].(map[string]any)
			if offer == nil {
				offer, _ = seller["commercialOffer"].(map[string]any)
			}
			if offer != nil {
				item.Price = firstNumber(offer, "Price", "price")
				item.Currency = firstText(offer, "CurrencyCode", "currency")
			}
		}
	}
	return item
}

func fromListEntry(obj map[string]any, baseURL string) *models.StateProduct {
	item := &models.StateProduct{
		Name:    firstText(obj, "name", "productName", "product-name"),
		Brand:   firstText(obj, "brand"),
		Image:   firstText(obj, "image", "imageUrl"),
		Link:    firstText(obj, "url", "link"),
		Details: firstText(obj, "description"),
	}
	if item.Link == "" {
		if slug := firstText(obj, "linkText", "slug"); slug != "" {
			item.Link = baseURL + "/" + slug + "/p"
		}
	}

	switch price := obj["price"].(type) {
	case map[string]any:
		item.Price = firstNumber(price, "value", "amount")
		item.Currency = firstText(price, "currency", "priceCurrency")
	case nil:
		if offers, ok := obj["offers"].(map[string]any); ok {
			item.Price = firstNumber(offers, "price", "lowPrice")
			item.Currency = firstText(offers, "priceCurrency")
		}
	default:
		if n, ok := numberOf(price); ok {
			item.Price = &n
		} else {
			item.PriceText = textOf(price)
		}
	}

	if rating, ok := obj["aggregateRating"].(map[string]any); ok {
		item.Rating = firstText(rating, "ratingValue")
	}
	return item
}

func listFromPageProps(state map[string]any) []any {
	props, _ := state["props"].(map[string]any)
	pageProps, _ := props["pageProps"].(map[string]any)
	for _, key := range sortedKeys(pageProps) {
		if list, ok := pageProps[key].([]any); ok && isProductList(list) {
			return list
		}
	}
	return nil
}

func findProductList(v any, depth int) []any {
	if depth > maxWalkDepth {
		return nil
	}
	switch t := v.(type) {
	case []any:
		if isProductList(t) {
			return t
		}
		for _, child := range t {
			if found := findProductList(child, depth+1); found != nil {
				return found
			}
		}
	case map[string]any:
		for _, key := range sortedKeys(t) {
			if found := findProductList(t[key], depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

func isProductList(list []any) bool {
	if len(list) == 0 {
		return false
	}
	first, ok := list[0].(map[string]any)
	return ok && (hasKey(first, "name") || hasKey(first, "productName"))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// firstText returns the first non-empty text value among keys.
func firstText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(textOf(m[k])); s != "" {
			return s
		}
	}
	return ""
}

// textOf coerces a decoded value to text. Lists yield their first element
// and objects their "name".
func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) == 0 {
			return ""
		}
		return textOf(t[0])
	case map[string]any:
		return textOf(t["name"])
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if n, ok := numberOf(m[k]); ok {
			return &n
		}
	}
	return nil
}

func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
