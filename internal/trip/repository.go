package trip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TripRepository defines the interface for trip data operations. SearchTrips
// is the filter stage of search: it narrows the candidate set with all
// present constraints before any scoring happens. A store failure aborts the
// whole operation; constraints are never partially applied.
type TripRepository interface {
	// Create inserts a new trip with a generated UUID if none is set.
	// The trip must carry a non-nil sharer.
	Create(ctx context.Context, t *Trip) error

	// Update modifies an existing trip.
	Update(ctx context.Context, t *Trip) error

	// GetByID retrieves a trip by its UUID.
	GetByID(ctx context.Context, id string) (*Trip, error)

	// SearchTrips returns all trips matching the given filters. Result
	// ordering is unspecified; ordering is only meaningful after scoring.
	SearchTrips(ctx context.Context, filters SearchFilters) ([]*Trip, error)
}

// InMemoryTripRepository is an in-memory implementation of TripRepository.
// Thread-safe via RWMutex. Used for testing and development.
type InMemoryTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*Trip
}

// NewInMemoryTripRepository creates a new in-memory trip repository.
func NewInMemoryTripRepository() *InMemoryTripRepository {
	return &InMemoryTripRepository{
		trips: make(map[string]*Trip),
	}
}

// copyTrip returns a deep copy so callers cannot mutate stored state.
func copyTrip(t *Trip) *Trip {
	tripCopy := *t
	if t.Sharer != nil {
		sharerCopy := *t.Sharer
		tripCopy.Sharer = &sharerCopy
	}
	if t.ItemCategories != nil {
		tripCopy.ItemCategories = append([]string(nil), t.ItemCategories...)
	}
	return &tripCopy
}

// Create inserts a new trip with a generated UUID if none is set.
func (r *InMemoryTripRepository) Create(_ context.Context, t *Trip) error {
	if t.Sharer == nil {
		return fmt.Errorf("trip %q has no sharer", t.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	r.trips[t.ID] = copyTrip(t)
	return nil
}

// Update modifies an existing trip.
func (r *InMemoryTripRepository) Update(_ context.Context, t *Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trips[t.ID]; !ok {
		return ErrTripNotFound
	}
	t.UpdatedAt = time.Now()
	r.trips[t.ID] = copyTrip(t)
	return nil
}

// GetByID retrieves a trip by its UUID.
func (r *InMemoryTripRepository) GetByID(_ context.Context, id string) (*Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	return copyTrip(t), nil
}

// SearchTrips returns all trips matching the given filters.
func (r *InMemoryTripRepository) SearchTrips(_ context.Context, filters SearchFilters) ([]*Trip, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Trip
	for _, t := range r.trips {
		ok, err := filters.Matches(t)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, copyTrip(t))
		}
	}
	return results, nil
}
