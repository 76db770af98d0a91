// Package api provides HTTP handlers for the CarryOn API.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carryon-collective/carryon/internal/middleware"
	"github.com/carryon-collective/carryon/internal/search"
	"github.com/carryon-collective/carryon/internal/trip"
)

// SearchHandlers holds dependencies for search HTTP handlers.
type SearchHandlers struct {
	service *search.Service
	logger  *slog.Logger
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(service *search.Service, logger *slog.Logger) *SearchHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandlers{
		service: service,
		logger:  logger,
	}
}

// TripSearchResponse represents the response for trip search.
type TripSearchResponse struct {
	Results []*TripSearchResult `json:"results"`
	Count   int                 `json:"count"`
}

// TripSearchResult is a single ranked trip in a search response.
type TripSearchResult struct {
	ID             string        `json:"id"`
	Departure      string        `json:"departure"`
	Arrival        string        `json:"arrival"`
	Date           time.Time     `json:"date"`
	Price          float64       `json:"price"`
	SpaceAvailable string        `json:"space_available"`
	MaxItemWeight  float64       `json:"max_item_weight"`
	ItemCategories []string      `json:"item_categories,omitempty"`
	Sharer         *SharerResult `json:"sharer"`
	Score          float64       `json:"score,omitempty"`
}

// SharerResult is the sharer summary embedded in a search result.
type SharerResult struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	AvatarURL         string  `json:"avatar_url,omitempty"`
	VerificationLevel string  `json:"verification_level"`
	Rating            float64 `json:"rating"`
	TripCount         int     `json:"trip_count"`
	ResponseRate      float64 `json:"response_rate"`
}

// SearchTrips handles GET /search/trips - returns trips matching the given
// filters, ranked by score.
func (h *SearchHandlers) SearchTrips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	filters, errMsg := parseSearchFilters(r)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	ranked, err := h.service.Search(r.Context(), filters)
	if err != nil {
		if isFilterValidationError(err) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "trip search failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Search failed")
		return
	}

	results := make([]*TripSearchResult, 0, len(ranked))
	for _, rt := range ranked {
		results = append(results, toSearchResult(rt))
	}

	WriteJSON(w, r.Context(), http.StatusOK, TripSearchResponse{
		Results: results,
		Count:   len(results),
	})
}

// CompatibilityResponse represents the response for a compatibility check.
type CompatibilityResponse struct {
	Score float64 `json:"score"`
}

// Compatibility handles GET /search/compatibility - returns the compatibility
// score between a provider's trip and a requested item.
//
// Query parameters:
//   - provider_categories: comma-separated accepted categories
//   - item_category: the requested item's category
//   - provider_size: space tier offered (small, medium, large)
//   - item_size: space tier required
func (h *SearchHandlers) Compatibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	query := r.URL.Query()

	itemCategory := strings.TrimSpace(query.Get("item_category"))
	if itemCategory == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "item_category is required")
		return
	}

	var providerCategories []string
	for _, c := range strings.Split(query.Get("provider_categories"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			providerCategories = append(providerCategories, c)
		}
	}

	providerSize := trip.Size(strings.TrimSpace(query.Get("provider_size")))
	itemSize := trip.Size(strings.TrimSpace(query.Get("item_size")))

	score, err := search.Compatibility(providerCategories, itemCategory, providerSize, itemSize)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, CompatibilityResponse{Score: score})
}

// parseSearchFilters builds trip.SearchFilters from query parameters.
// Returns a non-empty message describing the first invalid parameter.
func parseSearchFilters(r *http.Request) (trip.SearchFilters, string) {
	query := r.URL.Query()

	var filters trip.SearchFilters
	filters.Departure = strings.TrimSpace(query.Get("departure"))
	filters.Arrival = strings.TrimSpace(query.Get("arrival"))
	filters.Category = strings.TrimSpace(query.Get("category"))

	if v := strings.TrimSpace(query.Get("date_from")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filters, "date_from must be RFC 3339 or YYYY-MM-DD"
		}
		filters.DateFrom = &t
	}

	if v := strings.TrimSpace(query.Get("min_rating")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filters, "min_rating must be a number"
		}
		filters.MinRating = &f
	}

	if v := strings.TrimSpace(query.Get("verification")); v != "" {
		filters.VerificationLevel = trip.VerificationLevel(v)
	}

	if v := strings.TrimSpace(query.Get("max_price")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filters, "max_price must be a number"
		}
		filters.MaxPrice = &f
	}

	if v := strings.TrimSpace(query.Get("item_size")); v != "" {
		filters.ItemSize = trip.Size(v)
	}

	if v := strings.TrimSpace(query.Get("item_weight")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filters, "item_weight must be a number"
		}
		filters.ItemWeight = &f
	}

	return filters, ""
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// isFilterValidationError reports whether the error came from filter
// validation rather than the store.
func isFilterValidationError(err error) bool {
	return errors.Is(err, trip.ErrInvalidMaxPrice) ||
		errors.Is(err, trip.ErrInvalidMinRating) ||
		errors.Is(err, trip.ErrInvalidWeight) ||
		errors.Is(err, trip.ErrUnknownVerification) ||
		errors.Is(err, trip.ErrUnknownSize)
}

func toSearchResult(rt search.RankedTrip) *TripSearchResult {
	t := rt.Trip
	res := &TripSearchResult{
		ID:             t.ID,
		Departure:      t.Departure,
		Arrival:        t.Arrival,
		Date:           t.Date,
		Price:          t.Price,
		SpaceAvailable: string(t.SpaceAvailable),
		MaxItemWeight:  t.MaxItemWeight,
		ItemCategories: t.ItemCategories,
		Score:          rt.Score,
	}
	if t.Sharer != nil {
		res.Sharer = &SharerResult{
			ID:                t.Sharer.ID,
			Name:              t.Sharer.Name,
			AvatarURL:         t.Sharer.AvatarURL,
			VerificationLevel: string(t.Sharer.VerificationLevel),
			Rating:            t.Sharer.Rating,
			TripCount:         t.Sharer.TripCount,
			ResponseRate:      t.Sharer.ResponseRate,
		}
	}
	return res
}
