package models

import (
	"encoding/json"
	"strings"
)

// RawItem is one unnormalized item as produced by an extraction tier.
// The set of implementations is closed: *APIProduct, *StateProduct and
// *CardProduct.
type RawItem interface {
	Tier() Tier
	isRawItem()
}

// APIProduct is the catalog API shape of a product.
type APIProduct struct {
	ProductID          string   `json:"productId"`
	ProductName        string   `json:"productName"`
	Brand              string   `json:"brand"`
	LinkText           string   `json:"linkText"`
	Link               string   `json:"link"`
	Description        string   `json:"description"`
	MetaTagDescription string   `json:"metaTagDescription"`
	SpecificationNames []string `json:"allSpecifications"`
	Items              []APISKU `json:"items"`

	// Specifications holds the named specification values in the order
	// given by allSpecifications.
	Specifications []Specification `json:"-"`
}

// APISKU is one catalog sub-item of an API product.
type APISKU struct {
	ItemID  string      `json:"itemId"`
	Images  []APIImage  `json:"images"`
	Sellers []APISeller `json:"sellers"`
}

// APIImage is an image attached to a SKU.
type APIImage struct {
	ImageURL string `json:"imageUrl"`
}

// APISeller carries the commercial offer of one seller.
type APISeller struct {
	SellerID string   `json:"sellerId"`
	Offer    APIOffer `json:"commertialOffer"`
}

// APIOffer is the price block of a seller offer.
type APIOffer struct {
	Price        *float64 `json:"Price"`
	ListPrice    *float64 `json:"ListPrice"`
	CurrencyCode string   `json:"CurrencyCode"`
}

// Specification is one named product attribute.
type Specification struct {
	Name  string
	Value string
}

// UnmarshalJSON decodes the product and collects the specification values,
// which the API exposes as top-level keys named by allSpecifications.
func (p *APIProduct) UnmarshalJSON(data []byte) error {
	type plain APIProduct
	var base plain
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	*p = APIProduct(base)
	if len(p.SpecificationNames) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Specifications = make([]Specification, 0, len(p.SpecificationNames))
	for _, name := range p.SpecificationNames {
		msg, ok := raw[name]
		if !ok {
			continue
		}
		var values []string
		if err := json.Unmarshal(msg, &values); err != nil {
			var single string
			if json.Unmarshal(msg, &single) != nil {
				continue
			}
			values = []string{single}
		}
		p.Specifications = append(p.Specifications, Specification{
			Name:  name,
			Value: strings.Join(values, ", "),
		})
	}
	return nil
}

// FirstOffer returns the offer of the first seller of the first SKU.
func (p *APIProduct) FirstOffer() (APIOffer, bool) {
	if len(p.Items) == 0 || len(p.Items[0].Sellers) == 0 {
		return APIOffer{}, false
	}
	return p.Items[0].Sellers[0].Offer, true
}

// FirstImage returns the first image URL of the first SKU.
func (p *APIProduct) FirstImage() string {
	if len(p.Items) == 0 {
		return ""
	}
	for _, img := range p.Items[0].Images {
		if strings.TrimSpace(img.ImageURL) != "" {
			return img.ImageURL
		}
	}
	return ""
}

func (*APIProduct) Tier() Tier { return TierAPI }
func (*APIProduct) isRawItem() {}

// StateProduct is the flat shape recovered from an embedded state blob.
type StateProduct struct {
	Name      string
	Brand     string
	Price     *float64
	PriceText string
	Currency  string
	Image     string
	Link      string
	Rating    string
	Details   string
}

func (*StateProduct) Tier() Tier { return TierState }
func (*StateProduct) isRawItem() {}

// CardProduct is scraped from a product card in the listing markup.
type CardProduct struct {
	Name      string
	Link      string
	Image     string
	PriceText string
}

func (*CardProduct) Tier() Tier { return TierHTML }
func (*CardProduct) isRawItem() {}
