package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carryon-collective/carryon/internal/tracing"
	"github.com/carryon-collective/carryon/internal/trip"
)

// Service combines the filter and scoring stages behind a single entry
// point. It is the only asynchronous path in this package because it performs
// the repository query; scoring itself is pure CPU work.
type Service struct {
	repo    trip.TripRepository
	scorer  *Scorer
	metrics *Metrics
	logger  *slog.Logger
}

// NewService creates a search Service. metrics may be nil to disable
// instrumentation; logger falls back to slog.Default.
func NewService(repo trip.TripRepository, scorer *Scorer, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		scorer:  scorer,
		metrics: metrics,
		logger:  logger,
	}
}

// Search runs a full trip search: validate filters, narrow candidates
// through the repository, score every survivor, and sort descending by
// score. There is no partial-result mode: either the full candidate set is
// scored and returned, or the operation fails as a whole. Store failures are
// propagated to the caller; they are not retried here.
func (s *Service) Search(ctx context.Context, filters trip.SearchFilters) (results []RankedTrip, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSearch(time.Since(start).Seconds(), len(results), err)
		}
	}()

	if err = filters.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search filters: %w", err)
	}

	candidates, err := s.repo.SearchTrips(ctx, filters)
	if err != nil {
		s.logger.Error("trip search failed at filter stage",
			slog.String("error", err.Error()))
		return nil, err
	}

	ctx, endScoring := tracing.StartSpan(ctx, "score_trips")
	results, err = s.scorer.ScoreAll(candidates, filters.MaxPrice)
	endScoring(err)
	if err != nil {
		s.logger.Error("trip search failed at scoring stage",
			slog.String("error", err.Error()))
		return nil, err
	}

	SortRanked(results)

	s.logger.Debug("trip search completed",
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(results)),
		slog.Duration("took", time.Since(start)))

	return results, nil
}
