package search

import (
	"errors"
	"fmt"
	"sort"

	"github.com/carryon-collective/carryon/internal/trip"
)

// ErrMalformedCandidate is returned when a trip coming out of the filter
// stage is missing required fields or carries an out-of-domain enum value.
// Such a trip fails the whole scoring pass; it never contributes a
// best-effort score.
var ErrMalformedCandidate = errors.New("malformed candidate")

// RankedTrip is a trip annotated with its composite match score. It is a
// transient, caller-scoped value and is never persisted. Each component of
// the score is normalized to [0, 1] before weighting, so with a valid weight
// table and prices within the ceiling the score itself lands in [0, 1].
type RankedTrip struct {
	Trip  *trip.Trip `json:"trip"`
	Score float64    `json:"score"`
}

// Scorer computes composite trip scores from an immutable weight table.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with the given weight table. A nil table uses
// the defaults. The table is validated once here so scoring never runs with
// an unbalanced configuration.
func NewScorer(weights *Weights) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: *weights}, nil
}

// Weights returns a copy of the scorer's weight table.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the weighted composite score for a single trip. maxPrice is
// the price normalization ceiling from the search filters. When no ceiling
// was supplied the price component is skipped and the remaining weights are
// renormalized to sum to 1, so the absence of a price constraint does not
// flatten the price signal to a constant penalty for every candidate.
func (s *Scorer) Score(t *trip.Trip, maxPrice *float64) (float64, error) {
	if t == nil {
		return 0, fmt.Errorf("%w: nil trip", ErrMalformedCandidate)
	}
	if t.Sharer == nil {
		return 0, fmt.Errorf("%w: trip %q has no sharer", ErrMalformedCandidate, t.ID)
	}

	verification, err := VerificationScore(t.Sharer.VerificationLevel)
	if err != nil {
		return 0, fmt.Errorf("%w: trip %q: %v", ErrMalformedCandidate, t.ID, err)
	}

	w := s.weights
	score := w.Rating*RatingScore(t.Sharer.Rating) +
		w.Verification*verification +
		w.TripCount*TripCountScore(t.Sharer.TripCount) +
		w.ResponseRate*ResponseRateScore(t.Sharer.ResponseRate)

	if maxPrice != nil {
		if *maxPrice <= 0 {
			return 0, fmt.Errorf("%w", trip.ErrInvalidMaxPrice)
		}
		score += w.Price * PriceScore(t.Price, *maxPrice)
	} else {
		remaining := 1 - w.Price
		if remaining <= 0 {
			return 0, fmt.Errorf("price ceiling required: price carries the entire weight table")
		}
		score /= remaining
	}

	return score, nil
}

// ScoreAll computes one RankedTrip per input trip. No filtering happens here;
// the input is assumed to already satisfy all hard constraints. Input trips
// are not mutated. A single malformed candidate fails the whole pass.
func (s *Scorer) ScoreAll(trips []*trip.Trip, maxPrice *float64) ([]RankedTrip, error) {
	results := make([]RankedTrip, 0, len(trips))
	for _, t := range trips {
		score, err := s.Score(t, maxPrice)
		if err != nil {
			return nil, err
		}
		results = append(results, RankedTrip{Trip: t, Score: score})
	}
	return results, nil
}

// SortRanked orders results descending by score, in place. Ties are broken
// deterministically: higher sharer rating first, then trip ID ascending. The
// sort is stable, so equal candidates keep their filter-stage order.
func SortRanked(results []RankedTrip) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ri, rj := ratingOf(results[i].Trip), ratingOf(results[j].Trip)
		if ri != rj {
			return ri > rj
		}
		return idOf(results[i].Trip) < idOf(results[j].Trip)
	})
}

func ratingOf(t *trip.Trip) float64 {
	if t == nil || t.Sharer == nil {
		return 0
	}
	return t.Sharer.Rating
}

func idOf(t *trip.Trip) string {
	if t == nil {
		return ""
	}
	return t.ID
}
