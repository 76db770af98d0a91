// Package search implements trip search for the CarryOn marketplace: a
// filter stage that narrows candidates through the trip repository, a scoring
// stage that ranks the survivors with a weighted composite of normalized
// sharer and price signals, and an independent compatibility score between a
// single item and a single sharer's capacity offer.
//
// Basic usage:
//
//	weights, err := search.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		slog.Warn("using default weights", "error", err)
//	}
//	scorer, err := search.NewScorer(weights)
//	if err != nil {
//		return err
//	}
//	svc := search.NewService(repo, scorer, nil, nil)
//
//	results, err := svc.Search(ctx, trip.SearchFilters{Arrival: "London"})
//
// The compatibility score is a separate, synchronous path:
//
//	score, err := search.Compatibility(
//		[]string{"Electronics", "Documents"}, "Electronics",
//		trip.SizeMedium, trip.SizeSmall)
//
// All sub-signals are normalized to [0, 1] before weighting. The weight table
// is injected, never a hidden package-level mutable, and can be tuned at
// deploy time through a JSON calibration file.
package search
