package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAPIProductSpecifications(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Specification
	}{
		{
			name: "array values",
			body: `{
				"productName": "Televisor",
				"allSpecifications": ["Pantalla", "Conectividad"],
				"Pantalla": ["LED"],
				"Conectividad": ["WiFi", "Bluetooth"]
			}`,
			want: []Specification{
				{Name: "Pantalla", Value: "LED"},
				{Name: "Conectividad", Value: "WiFi, Bluetooth"},
			},
		},
		{
			name: "single string value",
			body: `{
				"productName": "Televisor",
				"allSpecifications": ["Garantía"],
				"Garantía": "1 año"
			}`,
			want: []Specification{{Name: "Garantía", Value: "1 año"}},
		},
		{
			name: "missing and unreadable names are skipped",
			body: `{
				"productName": "Televisor",
				"allSpecifications": ["Pantalla", "Garantía", "Missing", "Peso"],
				"Pantalla": ["OLED"],
				"Garantía": "2 años",
				"Peso": {"kg": 12}
			}`,
			want: []Specification{
				{Name: "Pantalla", Value: "OLED"},
				{Name: "Garantía", Value: "2 años"},
			},
		},
		{
			name: "no specification names",
			body: `{"productName": "Televisor", "Pantalla": ["LED"]}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p APIProduct
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.ProductName != "Televisor" {
				t.Fatalf("product name = %q", p.ProductName)
			}
			if diff := cmp.Diff(tt.want, p.Specifications); diff != "" {
				t.Fatalf("specifications mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAPIProductFirstOfferAndImage(t *testing.T) {
	body := `{
		"productName": "Televisor",
		"items": [{
			"images": [{"imageUrl": " "}, {"imageUrl": "https://img.exito.com/tv.jpg"}],
			"sellers": [{"commertialOffer": {"Price": 1299900, "CurrencyCode": "COP"}}]
		}]
	}`
	var p APIProduct
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	offer, ok := p.FirstOffer()
	if !ok || offer.Price == nil || *offer.Price != 1299900 || offer.CurrencyCode != "COP" {
		t.Fatalf("offer = %+v, %v", offer, ok)
	}
	if got := p.FirstImage(); got != "https://img.exito.com/tv.jpg" {
		t.Fatalf("image = %q", got)
	}

	var empty APIProduct
	if _, ok := empty.FirstOffer(); ok {
		t.Fatalf("product without items must have no offer")
	}
}
