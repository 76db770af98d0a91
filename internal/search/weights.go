package search

import (
	"fmt"
	"math"

	"github.com/carryon-collective/carryon/internal/trip"
)

// Weights defines how much each normalized sub-signal contributes to the
// composite trip score. A valid table sums to 1.0.
type Weights struct {
	Rating       float64 `json:"rating"`        // Sharer rating weight (default: 0.30)
	Verification float64 `json:"verification"`  // Verification tier weight (default: 0.20)
	TripCount    float64 `json:"trip_count"`    // Historical volume weight (default: 0.15)
	ResponseRate float64 `json:"response_rate"` // Responsiveness weight (default: 0.15)
	Price        float64 `json:"price"`         // Price attractiveness weight (default: 0.20)
}

// DefaultWeights returns the default ranking weight configuration.
//
// Formula: score = (rating * 0.30) + (verification * 0.20) +
// (trip_count * 0.15) + (response_rate * 0.15) + (price * 0.20)
//
// Rating carries the most weight as the strongest quality signal; price and
// verification follow; volume and responsiveness round out the table.
func DefaultWeights() *Weights {
	return &Weights{
		Rating:       0.30,
		Verification: 0.20,
		TripCount:    0.15,
		ResponseRate: 0.15,
		Price:        0.20,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Rating + w.Verification + w.TripCount + w.ResponseRate + w.Price
}

// weightSumTolerance absorbs float accumulation error when checking the sum.
const weightSumTolerance = 1e-9

// Validate checks that every weight is non-negative and the table sums to 1.
// Changing one weight without rebalancing the rest is a configuration error.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"rating":        w.Rating,
		"verification":  w.Verification,
		"trip_count":    w.TripCount,
		"response_rate": w.ResponseRate,
		"price":         w.Price,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %f", name, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %f", w.Sum())
	}
	return nil
}

// Verification tier scores. The gaps are an explicit design choice rewarding
// the top tier disproportionately, not a linear mapping.
const (
	verificationScoreBasic    = 0.3
	verificationScoreVerified = 0.6
	verificationScorePremium  = 1.0
)

// tripCountSaturation is the trip count at which the volume signal saturates
// at 1.0. Diminishing returns past this point are deliberate.
const tripCountSaturation = 100

// RatingScore normalizes a 0-5 sharer rating to [0, 1].
func RatingScore(rating float64) float64 {
	return rating / 5
}

// VerificationScore maps a verification tier to its fixed ordinal score.
// Unknown tiers are an error, never a silent default: unknown input must not
// silently degrade ranking quality.
func VerificationScore(level trip.VerificationLevel) (float64, error) {
	switch level {
	case trip.VerificationBasic:
		return verificationScoreBasic, nil
	case trip.VerificationVerified:
		return verificationScoreVerified, nil
	case trip.VerificationPremium:
		return verificationScorePremium, nil
	}
	return 0, fmt.Errorf("%w: %q", trip.ErrUnknownVerification, string(level))
}

// TripCountScore normalizes historical trip volume to [0, 1], saturating at
// tripCountSaturation.
func TripCountScore(count int) float64 {
	score := float64(count) / tripCountSaturation
	if score > 1 {
		return 1
	}
	return score
}

// ResponseRateScore normalizes a 0-100 response rate to [0, 1].
func ResponseRateScore(rate float64) float64 {
	return rate / 100
}

// PriceScore normalizes price attractiveness to [0, 1] against a ceiling:
// a free trip scores 1, a trip at the ceiling scores 0. The ceiling must be
// positive; filter validation rejects non-positive ceilings before scoring.
func PriceScore(price, ceiling float64) float64 {
	return 1 - price/ceiling
}
