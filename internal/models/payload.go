package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProductPayload mirrors the upstream webhook/product-query wire shape.
// Several fields have accumulated aliases over time (quantity in
// particular); the payload structs keep every alias and ParseProductPayload
// collapses them exactly once, so nothing downstream ever re-resolves them.
type ProductPayload struct {
	ID          json.Number      `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	Status      string           `json:"status"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Tags        string           `json:"tags"`
	Options     []OptionPayload  `json:"options"`
	Images      []ImagePayload   `json:"images"`
	Variants    []VariantPayload `json:"variants"`
}

// OptionPayload is one variation axis as delivered upstream.
type OptionPayload struct {
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values"`
}

// ImagePayload is one product image as delivered upstream.
type ImagePayload struct {
	ID         json.Number   `json:"id"`
	Src        string        `json:"src"`
	VariantIDs []json.Number `json:"variant_ids"`
}

// VariantPayload is one variant as delivered upstream. The three quantity
// fields are aliases for the same concept; first-present wins in the order
// inventory_quantity, inventoryQuantity, stock.
type VariantPayload struct {
	ID                json.Number `json:"id"`
	SKU               string      `json:"sku"`
	Price             json.Number `json:"price"`
	InventoryQuantity *int        `json:"inventory_quantity"`
	InventoryQtyCamel *int        `json:"inventoryQuantity"`
	Stock             *int        `json:"stock"`
	InventoryItemID   json.Number `json:"inventory_item_id"`
	InventoryPolicy   string      `json:"inventory_policy"`
	Option1           string      `json:"option1"`
	Option2           string      `json:"option2"`
	Option3           string      `json:"option3"`
	ImageID           json.Number `json:"image_id"`
}

// DeletePayload is the product-delete webhook body.
type DeletePayload struct {
	ID json.Number `json:"id"`
}

// ParseProductPayload decodes raw webhook bytes into a normalized
// CanonicalProduct. A payload without a product id is a parse failure;
// everything else degrades field by field.
func ParseProductPayload(raw []byte) (*CanonicalProduct, error) {
	var p ProductPayload
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse product payload: %w", err)
	}
	product := p.Normalize()
	if product.ID == "" {
		return nil, fmt.Errorf("product payload missing id")
	}
	return product, nil
}

// Normalize converts the wire shape into the canonical shape, resolving
// every alias and id form.
func (p *ProductPayload) Normalize() *CanonicalProduct {
	product := &CanonicalProduct{
		ID:          jsonNumberString(p.ID),
		Title:       p.Title,
		Handle:      p.Handle,
		Status:      p.Status,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Tags:        SplitTags(p.Tags),
	}
	for _, o := range p.Options {
		product.Options = append(product.Options, ProductOption{
			Name:     o.Name,
			Position: o.Position,
			Values:   o.Values,
		})
	}
	for _, img := range p.Images {
		ci := CanonicalImage{
			ID:  jsonNumberString(img.ID),
			Src: img.Src,
		}
		for _, vid := range img.VariantIDs {
			ci.VariantIDs = append(ci.VariantIDs, jsonNumberString(vid))
		}
		product.Images = append(product.Images, ci)
	}
	for _, v := range p.Variants {
		product.Variants = append(product.Variants, v.Normalize())
	}
	return product
}

// Normalize resolves the variant's quantity alias chain and price form.
func (v *VariantPayload) Normalize() CanonicalVariant {
	cv := CanonicalVariant{
		ID:              jsonNumberString(v.ID),
		SKU:             v.SKU,
		Quantity:        ResolveQuantity(v.InventoryQuantity, v.InventoryQtyCamel, v.Stock),
		InventoryItemID: jsonNumberString(v.InventoryItemID),
		InventoryPolicy: v.InventoryPolicy,
		ImageID:         jsonNumberString(v.ImageID),
	}
	for _, opt := range []string{v.Option1, v.Option2, v.Option3} {
		if strings.TrimSpace(opt) != "" {
			cv.OptionValues = append(cv.OptionValues, opt)
		}
	}
	if price, err := strconv.ParseFloat(v.Price.String(), 64); err == nil && IsFinite(price) {
		cv.Price = price
		cv.HasPrice = true
	}
	return cv
}

// ResolveQuantity collapses the legacy quantity aliases, first-present
// wins: inventory_quantity, then inventoryQuantity, then stock, default 0.
func ResolveQuantity(snake, camel, stock *int) int {
	switch {
	case snake != nil:
		return *snake
	case camel != nil:
		return *camel
	case stock != nil:
		return *stock
	default:
		return 0
	}
}

// SplitTags splits the upstream comma-joined tag string, trimming blanks.
func SplitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseDeletePayload decodes a product-delete webhook body.
func ParseDeletePayload(raw []byte) (string, error) {
	var p DeletePayload
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return "", fmt.Errorf("failed to parse delete payload: %w", err)
	}
	id := jsonNumberString(p.ID)
	if id == "" {
		return "", fmt.Errorf("delete payload missing id")
	}
	return id, nil
}
