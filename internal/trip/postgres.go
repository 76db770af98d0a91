package trip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/carryon-collective/carryon/internal/tracing"
)

// PostgresTripRepository implements TripRepository using PostgreSQL.
type PostgresTripRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTripRepository creates a new PostgresTripRepository.
func NewPostgresTripRepository(db *sql.DB, logger *slog.Logger) *PostgresTripRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTripRepository{
		db:     db,
		logger: logger,
	}
}

const tripColumns = `
	t.id, t.departure, t.arrival, t.date, t.price, t.space_available,
	t.max_item_weight, t.item_categories, t.created_at, t.updated_at,
	s.id, s.name, s.avatar_url, s.verification_level, s.rating,
	s.trip_count, s.response_rate`

// Create inserts a new trip with a generated UUID if none is set.
func (r *PostgresTripRepository) Create(ctx context.Context, t *Trip) error {
	if t.Sharer == nil {
		return fmt.Errorf("trip %q has no sharer", t.ID)
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO trips (id, sharer_id, departure, arrival, date, price,
			space_available, max_item_weight, item_categories, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	ctx, endSpan := tracing.StartDBSpan(ctx, "trips", tracing.DBOperationInsert)
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Sharer.ID, t.Departure, t.Arrival, t.Date, t.Price,
		string(t.SpaceAvailable), t.MaxItemWeight, pq.Array(t.ItemCategories),
		t.CreatedAt, t.UpdatedAt)
	endSpan(err)
	if err != nil {
		r.logger.Error("failed to insert trip",
			slog.String("trip_id", t.ID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	return nil
}

// Update modifies an existing trip.
func (r *PostgresTripRepository) Update(ctx context.Context, t *Trip) error {
	t.UpdatedAt = time.Now()

	query := `
		UPDATE trips
		SET departure = $2, arrival = $3, date = $4, price = $5,
			space_available = $6, max_item_weight = $7, item_categories = $8,
			updated_at = $9
		WHERE id = $1
	`
	ctx, endSpan := tracing.StartDBSpan(ctx, "trips", tracing.DBOperationUpdate)
	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.Departure, t.Arrival, t.Date, t.Price,
		string(t.SpaceAvailable), t.MaxItemWeight, pq.Array(t.ItemCategories),
		t.UpdatedAt)
	endSpan(err)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrTripNotFound
	}
	return nil
}

// GetByID retrieves a trip joined with its sharer profile.
func (r *PostgresTripRepository) GetByID(ctx context.Context, id string) (*Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips t
		JOIN sharers s ON s.id = t.sharer_id
		WHERE t.id = $1
	`
	ctx, endSpan := tracing.StartDBSpan(ctx, "trips", tracing.DBOperationQuery)
	t, err := scanTrip(r.db.QueryRowContext(ctx, query, id))
	endSpan(err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

// SearchTrips returns all trips matching the given filters. Every present
// filter contributes one conjunctive predicate to the WHERE clause; absent
// fields impose no constraint. A query failure aborts the whole search and is
// propagated unchanged.
func (r *PostgresTripRepository) SearchTrips(ctx context.Context, filters SearchFilters) ([]*Trip, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	query, args, err := buildSearchQuery(filters)
	if err != nil {
		return nil, err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "trips", tracing.DBOperationQuery)
	rows, err := r.db.QueryContext(ctx, query, args...)
	endSpan(err)
	if err != nil {
		r.logger.Error("trip search query failed",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("trip search query failed: %w", err)
	}
	defer rows.Close()

	var results []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip row: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trip search query failed: %w", err)
	}
	return results, nil
}

// buildSearchQuery translates filters into a SQL statement with positional
// args. Split out from SearchTrips so the translation is testable without a
// database.
func buildSearchQuery(filters SearchFilters) (string, []interface{}, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Departure != "" {
		conds = append(conds, "t.departure ILIKE "+arg("%"+filters.Departure+"%"))
	}
	if filters.Arrival != "" {
		conds = append(conds, "t.arrival ILIKE "+arg("%"+filters.Arrival+"%"))
	}
	if filters.DateFrom != nil {
		conds = append(conds, "t.date >= "+arg(*filters.DateFrom))
	}
	if filters.Category != "" {
		conds = append(conds, arg(filters.Category)+" = ANY(t.item_categories)")
	}
	if filters.MinRating != nil {
		conds = append(conds, "s.rating >= "+arg(*filters.MinRating))
	}
	if filters.VerificationLevel != "" {
		conds = append(conds, "s.verification_level = "+arg(string(filters.VerificationLevel)))
	}
	if filters.MaxPrice != nil {
		conds = append(conds, "t.price <= "+arg(*filters.MaxPrice))
	}
	if filters.ItemSize != "" {
		tiers, err := tiersHolding(filters.ItemSize)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, "t.space_available = ANY("+arg(pq.Array(tiers))+")")
	}
	if filters.ItemWeight != nil {
		conds = append(conds, "t.max_item_weight >= "+arg(*filters.ItemWeight))
	}

	query := `
		SELECT ` + tripColumns + `
		FROM trips t
		JOIN sharers s ON s.id = t.sharer_id`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	return query, args, nil
}

// tiersHolding returns the space tiers large enough to hold an item of the
// given tier.
func tiersHolding(item Size) ([]string, error) {
	itemRank, err := item.Rank()
	if err != nil {
		return nil, err
	}
	var tiers []string
	for _, tier := range []Size{SizeSmall, SizeMedium, SizeLarge} {
		rank, err := tier.Rank()
		if err != nil {
			return nil, err
		}
		if rank >= itemRank {
			tiers = append(tiers, string(tier))
		}
	}
	return tiers, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTrip.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	var (
		t      Trip
		s      Sharer
		cats   pq.StringArray
		avatar sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Departure, &t.Arrival, &t.Date, &t.Price, &t.SpaceAvailable,
		&t.MaxItemWeight, &cats, &t.CreatedAt, &t.UpdatedAt,
		&s.ID, &s.Name, &avatar, &s.VerificationLevel, &s.Rating,
		&s.TripCount, &s.ResponseRate)
	if err != nil {
		return nil, err
	}
	t.ItemCategories = []string(cats)
	s.AvatarURL = avatar.String
	t.Sharer = &s
	return &t, nil
}
