// Package trip provides models and repository for trips listed by sharers,
// including the search filters applied when matching senders to trips.
package trip

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for trip operations.
var (
	ErrTripNotFound = errors.New("trip not found")

	// ErrUnknownVerification is returned for a verification level outside
	// the closed basic/verified/premium set.
	ErrUnknownVerification = errors.New("unknown verification level")

	// ErrUnknownSize is returned for a size tier outside the closed
	// small/medium/large set.
	ErrUnknownSize = errors.New("unknown size tier")
)

// VerificationLevel is the ordinal trust tier of a sharer.
type VerificationLevel string

// Valid verification levels.
const (
	VerificationBasic    VerificationLevel = "basic"
	VerificationVerified VerificationLevel = "verified"
	VerificationPremium  VerificationLevel = "premium"
)

// Valid reports whether the level is one of the three known tiers.
func (v VerificationLevel) Valid() bool {
	switch v {
	case VerificationBasic, VerificationVerified, VerificationPremium:
		return true
	}
	return false
}

// Size is a capacity tier for luggage space and item sizes.
type Size string

// Valid size tiers, ordered small < medium < large.
const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Valid reports whether the size is one of the three known tiers.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Rank maps a size tier to its ordinal rank (small=1, medium=2, large=3).
// Returns ErrUnknownSize for any other value so an unrecognized tier never
// silently participates in a comparison.
func (s Size) Rank() (int, error) {
	switch s {
	case SizeSmall:
		return 1, nil
	case SizeMedium:
		return 2, nil
	case SizeLarge:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSize, string(s))
}

// Fits reports whether a space of this tier can hold an item of the given
// tier. Errors if either tier is unknown.
func (s Size) Fits(item Size) (bool, error) {
	spaceRank, err := s.Rank()
	if err != nil {
		return false, err
	}
	itemRank, err := item.Rank()
	if err != nil {
		return false, err
	}
	return spaceRank >= itemRank, nil
}

// Sharer is the public profile of a traveler offering luggage space.
// Rating is on a 0-5 scale, ResponseRate is a 0-100 percentage.
type Sharer struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	AvatarURL         string            `json:"avatar_url,omitempty"`
	VerificationLevel VerificationLevel `json:"verification_level"`
	Rating            float64           `json:"rating"`
	TripCount         int               `json:"trip_count"`
	ResponseRate      float64           `json:"response_rate"`
}

// Trip represents a listed trip with spare luggage space, joined with the
// sharer profile. Sharer must be non-nil for any trip returned from search;
// scoring treats a missing sharer as an error, never a default.
type Trip struct {
	ID             string    `json:"id"`
	Departure      string    `json:"departure"`
	Arrival        string    `json:"arrival"`
	Date           time.Time `json:"date"`
	Price          float64   `json:"price"`
	SpaceAvailable Size      `json:"space_available"`
	MaxItemWeight  float64   `json:"max_item_weight"` // kg
	ItemCategories []string  `json:"item_categories,omitempty"`
	Sharer         *Sharer   `json:"sharer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AcceptsCategory reports whether the trip's accepted category set contains
// the given tag (exact membership, not substring).
func (t *Trip) AcceptsCategory(category string) bool {
	for _, c := range t.ItemCategories {
		if c == category {
			return true
		}
	}
	return false
}
