package recon

import (
	"strings"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/models"
)

// MatchVariant finds the existing replica variant an inbound canonical
// variant refers to. Priority order, first match wins:
//
//  1. exact SKU equality, when the canonical SKU is non-empty;
//  2. attribute similarity: the canonical size token matching the replica's
//     stored size (case-insensitive, trimmed). Size equality alone is
//     sufficient; color need not also match. Two same-size variants that
//     differ only in color can therefore be conflated — this reproduces
//     long-standing matcher behavior and is covered explicitly in tests.
//
// Returns nil when nothing matches. Callers must treat nil as "no replica
// row exists"; reconciliation never fabricates a replica row from an
// inbound event.
func MatchVariant(canonical *models.CanonicalVariant, existing []*models.ReplicaVariant) *models.ReplicaVariant {
	if canonical == nil {
		return nil
	}

	if canonical.SKU != "" {
		for _, rv := range existing {
			if rv.SKU == canonical.SKU {
				return rv
			}
		}
	}

	size := foldToken(canonical.SizeToken())
	color := foldToken(canonical.StyleToken())
	if size != "" {
		for _, rv := range existing {
			if foldToken(rv.Size) != size {
				continue
			}
			if color == "" || foldToken(rv.Color) == color {
				return rv
			}
			// Size matched, color did not: still a match.
			return rv
		}
	}

	return nil
}

// MatchVariantByIDs finds the replica variant for a canonical variant by
// stable identifiers: inventory-item id first, then canonical variant id.
// Drift correction uses this path so healing converges on the same rows
// the webhook path wrote.
func MatchVariantByIDs(canonical *models.CanonicalVariant, existing []*models.ReplicaVariant) *models.ReplicaVariant {
	if canonical == nil {
		return nil
	}
	if itemID := models.NormalizeID(canonical.InventoryItemID); itemID != "" {
		for _, rv := range existing {
			if models.NormalizeID(rv.ShopifyInventoryItemID) == itemID {
				return rv
			}
		}
	}
	if id := models.NormalizeID(canonical.ID); id != "" {
		for _, rv := range existing {
			if models.NormalizeID(rv.ShopifyVariantID) == id {
				return rv
			}
		}
	}
	return nil
}

func foldToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
