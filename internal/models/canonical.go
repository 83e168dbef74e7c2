package models

import (
	"encoding/json"
	"math"
	"strings"
)

// CanonicalProduct is the normalized view of an upstream product. It is the
// only product shape the reconciliation components ever see; all legacy
// field aliases in inbound payloads are resolved by ParseProductPayload
// before a CanonicalProduct is constructed.
type CanonicalProduct struct {
	ID          string             `json:"id" firestore:"id"`
	Title       string             `json:"title" firestore:"title"`
	Handle      string             `json:"handle" firestore:"handle"`
	Status      string             `json:"status" firestore:"status"`
	Vendor      string             `json:"vendor" firestore:"vendor"`
	ProductType string             `json:"productType" firestore:"productType"`
	Tags        []string           `json:"tags" firestore:"tags"`
	Options     []ProductOption    `json:"options" firestore:"options"`
	Images      []CanonicalImage   `json:"images" firestore:"images"`
	Variants    []CanonicalVariant `json:"variants" firestore:"variants"`
}

// ProductOption is one ordered variation axis (e.g. Color, Size).
type ProductOption struct {
	Name     string   `json:"name" firestore:"name"`
	Position int      `json:"position" firestore:"position"`
	Values   []string `json:"values" firestore:"values"`
}

// CanonicalImage carries the authoritative image URL and the variants it
// applies to.
type CanonicalImage struct {
	ID         string   `json:"id" firestore:"id"`
	Src        string   `json:"src" firestore:"src"`
	VariantIDs []string `json:"variantIds" firestore:"variantIds"`
}

// CanonicalVariant is the normalized upstream variant. Quantity has already
// been resolved through the legacy alias chain and Price through the
// string-or-number forms; HasPrice is false when no finite price arrived.
type CanonicalVariant struct {
	ID              string   `json:"id" firestore:"id"`
	SKU             string   `json:"sku" firestore:"sku"`
	Price           float64  `json:"price" firestore:"price"`
	HasPrice        bool     `json:"hasPrice" firestore:"hasPrice"`
	Quantity        int      `json:"quantity" firestore:"quantity"`
	InventoryItemID string   `json:"inventoryItemId" firestore:"inventoryItemId"`
	InventoryPolicy string   `json:"inventoryPolicy" firestore:"inventoryPolicy"`
	OptionValues    []string `json:"optionValues" firestore:"optionValues"`
	ImageID         string   `json:"imageId" firestore:"imageId"`
}

// BackorderPolicy is the inventory policy value that allows selling past
// zero stock.
const BackorderPolicy = "continue"

// AllowsBackorder reports whether the variant can be sold with no stock.
func (v *CanonicalVariant) AllowsBackorder() bool {
	return strings.EqualFold(strings.TrimSpace(v.InventoryPolicy), BackorderPolicy)
}

// StyleToken returns the style/color attribute derived from the variant's
// option values: the first populated option slot. Products whose first
// variation axis is not a style/color axis will mis-tag this value; that is
// a known limitation of the upstream data model.
func (v *CanonicalVariant) StyleToken() string {
	for _, val := range v.OptionValues {
		if s := strings.TrimSpace(val); s != "" {
			return s
		}
	}
	return ""
}

// SizeToken returns the size attribute: all populated option slots after
// the first, joined in order.
func (v *CanonicalVariant) SizeToken() string {
	var parts []string
	seenFirst := false
	for _, val := range v.OptionValues {
		s := strings.TrimSpace(val)
		if s == "" {
			continue
		}
		if !seenFirst {
			seenFirst = true
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// VariantByID returns the variant with the given canonical id, or nil.
func (p *CanonicalProduct) VariantByID(id string) *CanonicalVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// ImagesForVariant returns the canonical images tagged for the variant id
// followed by the product-level images, deduplicated by URL. This is the
// candidate set used when refreshing a replica variant's photo list.
func (p *CanonicalProduct) ImagesForVariant(variantID string) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(src string) {
		if src != "" && !seen[src] {
			seen[src] = true
			urls = append(urls, src)
		}
	}
	for _, img := range p.Images {
		for _, vid := range img.VariantIDs {
			if vid == variantID {
				add(img.Src)
			}
		}
	}
	for _, img := range p.Images {
		add(img.Src)
	}
	return urls
}

// ImageURLs returns the ordered product-level image URLs.
func (p *CanonicalProduct) ImageURLs() []string {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img.Src != "" {
			urls = append(urls, img.Src)
		}
	}
	return urls
}

// NormalizeID reduces any upstream id form (number, numeric string, or
// admin_graphql_api_id gid) to its bare numeric-string form so ids compare
// equal regardless of which representation a payload used.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// FiniteOrZero maps NaN/Inf to zero; reconciliation never stores a
// non-finite price.
func FiniteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// IsFinite reports whether f is a usable price value.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// jsonNumberString renders a json.Number as a plain string, tolerating the
// empty value.
func jsonNumberString(n json.Number) string {
	return NormalizeID(n.String())
}
