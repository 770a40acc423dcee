package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-exito/models"
)

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name    string
		product *models.Product
		wantErr bool
	}{
		{
			name:    "valid product",
			product: &models.Product{Title: "Televisor LG 55 pulgadas", URL: "https://www.exito.com/tv/p"},
			wantErr: false,
		},
		{
			name:    "missing title",
			product: &models.Product{Title: "", URL: "https://www.exito.com/tv/p"},
			wantErr: true,
		},
		{
			name:    "whitespace title",
			product: &models.Product{Title: "   "},
			wantErr: true,
		},
		{
			name:    "nil product",
			product: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(tt.product)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProduct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFirstInt(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int64
		wantOK bool
	}{
		{name: "thousands dots", input: "$ 1.299.900", want: 1299900, wantOK: true},
		{name: "thousands commas", input: "COP 2,450,000", want: 2450000, wantOK: true},
		{name: "non breaking space", input: "$ 1 099 000", want: 1099000, wantOK: true},
		{name: "plain integer", input: "Precio 899000", want: 899000, wantOK: true},
		{name: "first run only", input: "Antes $1.500.000 Ahora $1.299.900", want: 1500000, wantOK: true},
		{name: "no digits", input: "Agotado", want: 0, wantOK: false},
		{name: "empty string", input: "", want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstInt(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FirstInt(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		input float64
		want  int64
	}{
		{input: 1299900, want: 1299900},
		{input: 1299899.5, want: 1299900},
		{input: 1299899.49, want: 1299899},
	}

	for _, tt := range tests {
		if got := RoundPrice(tt.input); got != tt.want {
			t.Errorf("RoundPrice(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestInferSize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "pulgadas", input: "55 pulgadas", expected: `55"`},
		{name: "inch marker", input: `Televisor Samsung 65" 4K UHD`, expected: `65"`},
		{name: "abbreviated", input: "TV LG 43 pulg. Smart", expected: `43"`},
		{name: "decimal size", input: "Monitor 23.8 pulgadas", expected: `23.8"`},
		{name: "uppercase", input: "TELEVISOR 50 PULGADAS", expected: `50"`},
		{name: "glued to model name", input: `Televisor LG55" UHD`, expected: `55"`},
		{name: "glued to pulgadas", input: "TV Kalley 32pulgadas", expected: `32"`},
		{name: "three digit model number", input: "Barra 155 pulgadas", expected: ""},
		{name: "no size", input: "Televisor Smart 4K", expected: ""},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferSize(tt.input); got != tt.expected {
				t.Errorf("InferSize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsFalsyValue(t *testing.T) {
	for _, v := range []string{"no", "No", " FALSE ", "0"} {
		if !IsFalsyValue(v) {
			t.Errorf("IsFalsyValue(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"Sí", "2", "none", ""} {
		if IsFalsyValue(v) {
			t.Errorf("IsFalsyValue(%q) = true, want false", v)
		}
	}
}

func TestRankSpecifications(t *testing.T) {
	specs := []models.Specification{
		{Name: "Color", Value: "Negro"},
		{Name: "Garantía", Value: "1 año"},
		{Name: "Bluetooth", Value: "No"},
		{Name: "Resolución", Value: "4K UHD"},
		{Name: "Modelo", Value: "55UR8750"},
		{Name: "Tamaño de pantalla", Value: "55"},
		{Name: "Incluye control", Value: "false"},
		{Name: "Sistema operativo", Value: "webOS"},
		{Name: "Puertos HDMI", Value: "3"},
		{Name: "Vacío", Value: "  "},
	}

	got := RankSpecifications(specs, MaxSpecifications)
	want := []string{"Tamaño de pantalla", "Resolución", "Sistema operativo", "Puertos HDMI", "Garantía", "Modelo", "Color"}
	if len(got) != len(want) {
		t.Fatalf("ranked %d specs, want %d: %+v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("spec[%d] = %q, want %q (all: %+v)", i, got[i].Name, name, got)
		}
	}
}

func TestRankSpecificationsCap(t *testing.T) {
	specs := make([]models.Specification, 0, 20)
	for i := 0; i < 20; i++ {
		specs = append(specs, models.Specification{Name: "Extra", Value: "si"})
	}
	if got := RankSpecifications(specs, MaxSpecifications); len(got) != MaxSpecifications {
		t.Fatalf("ranked %d specs, want %d", len(got), MaxSpecifications)
	}
}
