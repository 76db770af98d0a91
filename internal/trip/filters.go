package trip

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Filter validation errors.
var (
	ErrInvalidMaxPrice  = errors.New("max_price must be greater than zero")
	ErrInvalidMinRating = errors.New("min_rating must be between 0 and 5")
	ErrInvalidWeight    = errors.New("item_weight must be greater than zero")
)

// SearchFilters describes the optional constraints of a trip search.
// Every field is optional; the zero value matches the entire trip store.
// All present constraints are combined conjunctively (logical AND).
type SearchFilters struct {
	// Departure and Arrival are case-insensitive substrings matched
	// against the trip's route endpoints.
	Departure string `json:"departure,omitempty"`
	Arrival   string `json:"arrival,omitempty"`

	// DateFrom is an inclusive lower bound on the trip date. There is no
	// upper bound.
	DateFrom *time.Time `json:"date_from,omitempty"`

	// Category must be contained in the trip's accepted category set.
	Category string `json:"category,omitempty"`

	// MinRating is an inclusive lower bound on the sharer rating (0-5).
	MinRating *float64 `json:"min_rating,omitempty"`

	// VerificationLevel is an exact-match constraint on the sharer tier.
	// There are no "at least" semantics across tiers.
	VerificationLevel VerificationLevel `json:"verification_level,omitempty"`

	// MaxPrice is an inclusive upper bound on the trip price. When set it
	// also serves as the normalization ceiling for the price sub-score.
	MaxPrice *float64 `json:"max_price,omitempty"`

	// ItemSize constrains results to trips whose space tier can hold an
	// item of this tier.
	ItemSize Size `json:"item_size,omitempty"`

	// ItemWeight constrains results to trips whose max item weight (kg)
	// is at least this value.
	ItemWeight *float64 `json:"item_weight,omitempty"`
}

// Validate checks that all present filter fields are within their domains.
// Returns the first violation found.
func (f SearchFilters) Validate() error {
	if f.MaxPrice != nil && *f.MaxPrice <= 0 {
		return ErrInvalidMaxPrice
	}
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > 5) {
		return ErrInvalidMinRating
	}
	if f.ItemWeight != nil && *f.ItemWeight <= 0 {
		return ErrInvalidWeight
	}
	if f.VerificationLevel != "" && !f.VerificationLevel.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownVerification, string(f.VerificationLevel))
	}
	if f.ItemSize != "" {
		if _, err := f.ItemSize.Rank(); err != nil {
			return err
		}
	}
	return nil
}

// IsZero reports whether no constraint is present.
func (f SearchFilters) IsZero() bool {
	return f.Departure == "" && f.Arrival == "" && f.DateFrom == nil &&
		f.Category == "" && f.MinRating == nil && f.VerificationLevel == "" &&
		f.MaxPrice == nil && f.ItemSize == "" && f.ItemWeight == nil
}

// Matches evaluates all present constraints against a trip. A trip without a
// sharer never matches constraints that read the sharer profile.
func (f SearchFilters) Matches(t *Trip) (bool, error) {
	if f.Departure != "" && !containsFold(t.Departure, f.Departure) {
		return false, nil
	}
	if f.Arrival != "" && !containsFold(t.Arrival, f.Arrival) {
		return false, nil
	}
	if f.DateFrom != nil && t.Date.Before(*f.DateFrom) {
		return false, nil
	}
	if f.Category != "" && !t.AcceptsCategory(f.Category) {
		return false, nil
	}
	if f.MinRating != nil {
		if t.Sharer == nil || t.Sharer.Rating < *f.MinRating {
			return false, nil
		}
	}
	if f.VerificationLevel != "" {
		if t.Sharer == nil || t.Sharer.VerificationLevel != f.VerificationLevel {
			return false, nil
		}
	}
	if f.MaxPrice != nil && t.Price > *f.MaxPrice {
		return false, nil
	}
	if f.ItemSize != "" {
		fits, err := t.SpaceAvailable.Fits(f.ItemSize)
		if err != nil {
			return false, err
		}
		if !fits {
			return false, nil
		}
	}
	if f.ItemWeight != nil && t.MaxItemWeight < *f.ItemWeight {
		return false, nil
	}
	return true, nil
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
