package extract

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-exito/models"
)

func TestStateExtractorDetectors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantKey string
	}{
		{
			name:    "vtex state",
			doc:     `<script>window.__STATE__ = {"Product:1": {"productName": "TV"}};</script>`,
			wantKey: "Product:1",
		},
		{
			name:    "vtex state with js literal syntax",
			doc:     `<script>__STATE__ = {product: {productName: 'TV', brand: 'LG',},};</script>`,
			wantKey: "product",
		},
		{
			name:    "apollo state",
			doc:     `<script>window.__APOLLO_STATE__ = {"ROOT_QUERY": {"a": 1}} ;</script>`,
			wantKey: "ROOT_QUERY",
		},
		{
			name:    "next data followed by apollo",
			doc:     `<script>{"__NEXT_DATA__": {"props": {}}, "__APOLLO_STATE__": {}}</script>`,
			wantKey: "props",
		},
		{
			name:    "next data inline",
			doc:     `<script>var cfg = {"__NEXT_DATA__": {"page": "/tv"}</script>`,
			wantKey: "page",
		},
		{
			name:    "next data script tag",
			doc:     `<script id="__NEXT_DATA__" type="application/json">{"buildId": "abc"}</script>`,
			wantKey: "buildId",
		},
	}

	extractor := NewStateExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, ok := extractor.Extract([]byte(tt.doc))
			if !ok {
				t.Fatalf("expected state to be extracted")
			}
			if _, found := state[tt.wantKey]; !found {
				t.Fatalf("state = %v, want key %q", state, tt.wantKey)
			}
		})
	}
}

func TestStateExtractorRepairsControlCharacters(t *testing.T) {
	doc := "<script>__STATE__ = {\"p\": {\"productName\": \"TV\n55\t4K\", \"brand\": \"LG\"}};</script>"

	state, ok := NewStateExtractor().Extract([]byte(doc))
	if !ok {
		t.Fatalf("expected repaired state")
	}
	product, _ := state["p"].(map[string]any)
	if product["productName"] != "TV554K" {
		t.Fatalf("productName = %v, want TV554K", product["productName"])
	}
}

func TestStateExtractorNoMarkers(t *testing.T) {
	doc := []byte(`<html><body><div class="grid">Sin estado</div></body></html>`)
	extractor := NewStateExtractor()

	for i := 0; i < 3; i++ {
		state, ok := extractor.Extract(doc)
		if ok || state != nil {
			t.Fatalf("expected no state, got %v", state)
		}
	}
}

func TestStateExtractorFallsThroughUndecodable(t *testing.T) {
	doc := `<script>__STATE__ = {"broken": ]};</script>` +
		`<script id="__NEXT_DATA__" type="application/json">{"ok": true}</script>`

	state, ok := NewStateExtractor().Extract([]byte(doc))
	if !ok {
		t.Fatalf("expected next detector to win")
	}
	if state["ok"] != true {
		t.Fatalf("state = %v, want next data payload", state)
	}
}

func TestDetectorDistinguishesNoMatchFromDecodeError(t *testing.T) {
	d := DefaultDetectors()[0]

	if _, err := d.Detect([]byte("<p>nada</p>")); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	_, err := d.Detect([]byte(`__STATE__ = {"a": };</script>`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if errors.Is(err, ErrNoMatch) {
		t.Fatalf("decode error must not be reported as no match")
	}
}

func TestItemsFromRenderState(t *testing.T) {
	state := map[string]any{
		"Product:b": map[string]any{
			"productName": "Televisor LG 55 pulgadas",
			"brand":       "LG",
			"linkText":    "televisor-lg-55",
			"items": []any{
				map[string]any{
					"images": []any{map[string]any{"imageUrl": "https://img.exito.com/tv.jpg"}},
					"sellers": []any{
						map[string]any{"commertialOffer": map[string]any{"Price": 1299900.0}},
					},
				},
			},
		},
		"Product:a": map[string]any{"productName": "Soporte TV", "brand": "Genérico"},
		"ROOT_QUERY": map[string]any{"search": "tv"},
	}

	items := ItemsFromState(state, "https://www.exito.com/")
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	first, ok := items[0].(*models.StateProduct)
	if !ok || first.Name != "Soporte TV" {
		t.Fatalf("items[0] = %#v, want Soporte TV first (sorted keys)", items[0])
	}
	tv := items[1].(*models.StateProduct)
	if tv.Link != "https://www.exito.com/televisor-lg-55/p" {
		t.Fatalf("link = %q", tv.Link)
	}
	if tv.Price == nil || *tv.Price != 1299900 {
		t.Fatalf("price = %v, want 1299900", tv.Price)
	}
	if tv.Image != "https://img.exito.com/tv.jpg" {
		t.Fatalf("image = %q", tv.Image)
	}
}

func TestItemsFromNextData(t *testing.T) {
	state := map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{
				"breadcrumbs": []any{"tecnologia"},
				"products": []any{
					map[string]any{
						"name":            "Celular Motorola G84",
						"brand":           map[string]any{"name": "Motorola"},
						"price":           map[string]any{"value": 999900.0, "currency": "COP"},
						"image":           []any{"/img/g84.jpg", "/img/g84-2.jpg"},
						"url":             "/celular-motorola-g84/p",
						"aggregateRating": map[string]any{"ratingValue": 4.5},
						"description":     "<p>Pantalla pOLED</p>",
					},
				},
			},
		},
	}

	items := ItemsFromState(state, "https://www.exito.com")
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	got := items[0].(*models.StateProduct)
	if got.Name != "Celular Motorola G84" || got.Brand != "Motorola" {
		t.Fatalf("name/brand = %q/%q", got.Name, got.Brand)
	}
	if got.Price == nil || *got.Price != 999900 || got.Currency != "COP" {
		t.Fatalf("price = %v %q", got.Price, got.Currency)
	}
	if got.Image != "/img/g84.jpg" {
		t.Fatalf("image = %q, want first list element", got.Image)
	}
	if got.Rating != "4.5" {
		t.Fatalf("rating = %q, want 4.5", got.Rating)
	}
}

func TestItemsFromNestedList(t *testing.T) {
	state := map[string]any{
		"data": map[string]any{
			"search": map[string]any{
				"results": []any{
					map[string]any{"productName": "Lavadora Samsung", "price": "1.899.900"},
				},
			},
		},
	}

	items := ItemsFromState(state, "https://www.exito.com")
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	got := items[0].(*models.StateProduct)
	if got.Name != "Lavadora Samsung" || got.PriceText != "1.899.900" || got.Price != nil {
		t.Fatalf("unexpected item: %#v", got)
	}
}

func TestItemsFromStateWithoutProducts(t *testing.T) {
	state := map[string]any{"props": map[string]any{"pageProps": map[string]any{"title": "Televisores"}}}
	if items := ItemsFromState(state, "https://www.exito.com"); len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}
