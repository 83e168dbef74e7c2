package recon

import "strings"

// NormalizeImageURL strips the query string so two signed URLs for the
// same underlying photo compare equal.
func NormalizeImageURL(url string) string {
	if i := strings.Index(url, "?"); i >= 0 {
		return url[:i]
	}
	return url
}

// ReconcileProductImages merges the canonical image list into a replica
// product's curated list.
//
// When manuallyEdited is true, each existing URL is replaced only when a
// canonical URL normalizes to the same base (picking up fresher signed
// query params); URLs with no canonical counterpart are kept, so curated
// images absent upstream survive. Order and length never change.
//
// When manuallyEdited is false the canonical list wins verbatim, unless it
// is empty, in which case the existing list is kept.
func ReconcileProductImages(existing, canonical []string, manuallyEdited bool) []string {
	if !manuallyEdited {
		if len(canonical) > 0 {
			out := make([]string, len(canonical))
			copy(out, canonical)
			return out
		}
		return existing
	}
	out, _ := replaceMatching(existing, canonical)
	return out
}

// ReconcileVariantImages applies the same replace-only-if-normalized-match
// rule to a variant's photo list. The output length must exactly equal the
// input length; if the pass would add or drop entries the input is
// returned unchanged and ok is false so the caller can log the anomaly.
// defaultPhoto is never touched here.
func ReconcileVariantImages(existing, candidates []string) (images []string, ok bool) {
	out, _ := replaceMatching(existing, candidates)
	if len(out) != len(existing) {
		return existing, false
	}
	return out, true
}

// replaceMatching maps each existing URL to its normalized canonical
// counterpart when one exists, keeping it otherwise.
func replaceMatching(existing, candidates []string) ([]string, bool) {
	byBase := make(map[string]string, len(candidates))
	for _, c := range candidates {
		base := NormalizeImageURL(c)
		if _, seen := byBase[base]; !seen {
			byBase[base] = c
		}
	}
	out := make([]string, 0, len(existing))
	changed := false
	for _, url := range existing {
		if fresh, found := byBase[NormalizeImageURL(url)]; found && fresh != url {
			out = append(out, fresh)
			changed = true
			continue
		}
		out = append(out, url)
	}
	return out, changed
}
