package search

import (
	"github.com/carryon-collective/carryon/internal/trip"
)

// Compatibility term values. The 0.6/0.4 split is fixed; this path is
// intentionally simpler than the weighted search ranking and not unified
// with it.
const (
	categoryTerm = 0.6
	sizeTerm     = 0.4
)

// Compatibility scores the fit between one item and one sharer's capacity
// offer. The result is one of exactly four discrete outcomes:
//
//	0.0  category not accepted, item does not fit
//	0.4  item fits, category not accepted
//	0.6  category accepted, item does not fit
//	1.0  category accepted and item fits
//
// The category term requires exact membership of itemCategory in
// providerCategories. The size term requires the provider's capacity tier to
// rank at or above the item's tier. An unrecognized size tier is an error,
// never a silent zero.
func Compatibility(providerCategories []string, itemCategory string, providerTier, itemTier trip.Size) (float64, error) {
	// Validate both tiers up front so a category match can never mask a
	// malformed size value.
	fits, err := providerTier.Fits(itemTier)
	if err != nil {
		return 0, err
	}

	score := 0.0
	for _, c := range providerCategories {
		if c == itemCategory {
			score += categoryTerm
			break
		}
	}
	if fits {
		score += sizeTerm
	}
	return score, nil
}
