// Package api provides HTTP handlers for the CarryOn API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/carryon-collective/carryon/internal/middleware"
	"github.com/carryon-collective/carryon/internal/trip"
	"github.com/carryon-collective/carryon/internal/validate"
)

// TripHandlers holds dependencies for trip HTTP handlers.
type TripHandlers struct {
	repo   trip.TripRepository
	logger *slog.Logger
}

// NewTripHandlers creates a new TripHandlers instance.
func NewTripHandlers(repo trip.TripRepository, logger *slog.Logger) *TripHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &TripHandlers{
		repo:   repo,
		logger: logger,
	}
}

// CreateTripRequest is the JSON body for POST /trips.
type CreateTripRequest struct {
	Departure      string        `json:"departure"`
	Arrival        string        `json:"arrival"`
	Date           time.Time     `json:"date"`
	Price          float64       `json:"price"`
	SpaceAvailable string        `json:"space_available"`
	MaxItemWeight  float64       `json:"max_item_weight"`
	ItemCategories []string      `json:"item_categories"`
	Sharer         *SharerResult `json:"sharer"`
}

// CreateTrip handles POST /trips - registers a new trip listing.
func (h *TripHandlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	if msg := validateCreateTrip(&req); msg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	t := &trip.Trip{
		Departure:      req.Departure,
		Arrival:        req.Arrival,
		Date:           req.Date,
		Price:          req.Price,
		SpaceAvailable: trip.Size(req.SpaceAvailable),
		MaxItemWeight:  req.MaxItemWeight,
		ItemCategories: req.ItemCategories,
		Sharer: &trip.Sharer{
			ID:                req.Sharer.ID,
			Name:              req.Sharer.Name,
			AvatarURL:         req.Sharer.AvatarURL,
			VerificationLevel: trip.VerificationLevel(req.Sharer.VerificationLevel),
			Rating:            req.Sharer.Rating,
			TripCount:         req.Sharer.TripCount,
			ResponseRate:      req.Sharer.ResponseRate,
		},
	}

	if err := h.repo.Create(r.Context(), t); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create trip", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create trip")
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, toTripResult(t))
}

// GetTrip handles GET /trips/{id} - returns a single trip listing.
func (h *TripHandlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/trips/")
	if id == "" || strings.Contains(id, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid trip ID")
		return
	}

	t, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Trip not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load trip", "error", err, "trip_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load trip")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, toTripResult(t))
}

// validateCreateTrip returns a non-empty message describing the first invalid
// field. Valid string fields are written back in sanitized form.
func validateCreateTrip(req *CreateTripRequest) string {
	departure, err := validate.CityName(req.Departure)
	if err != nil {
		return "departure must be a city name of 1-120 characters"
	}
	req.Departure = departure

	arrival, err := validate.CityName(req.Arrival)
	if err != nil {
		return "arrival must be a city name of 1-120 characters"
	}
	req.Arrival = arrival

	if req.Date.IsZero() {
		return "date is required"
	}
	if req.Price < 0 {
		return "price must be >= 0"
	}
	if !trip.Size(req.SpaceAvailable).Valid() {
		return "space_available must be one of: small, medium, large"
	}
	if req.MaxItemWeight < 0 {
		return "max_item_weight must be >= 0"
	}
	for i, category := range req.ItemCategories {
		cleaned, err := validate.ItemCategory(category)
		if err != nil {
			return "item_categories entries must be lowercase slugs of at most 50 characters"
		}
		req.ItemCategories[i] = cleaned
	}
	if req.Sharer == nil {
		return "sharer is required"
	}
	if strings.TrimSpace(req.Sharer.ID) == "" {
		return "sharer.id is required"
	}
	name, err := validate.SharerName(req.Sharer.Name)
	if err != nil {
		return "sharer.name must be 1-100 characters"
	}
	req.Sharer.Name = name
	if !trip.VerificationLevel(req.Sharer.VerificationLevel).Valid() {
		return "sharer.verification_level must be one of: basic, verified, premium"
	}
	if req.Sharer.Rating < 0 || req.Sharer.Rating > 5 {
		return "sharer.rating must be between 0 and 5"
	}
	if req.Sharer.ResponseRate < 0 || req.Sharer.ResponseRate > 100 {
		return "sharer.response_rate must be between 0 and 100"
	}
	return ""
}

// toTripResult converts a trip into its API representation without a score.
func toTripResult(t *trip.Trip) *TripSearchResult {
	res := &TripSearchResult{
		ID:             t.ID,
		Departure:      t.Departure,
		Arrival:        t.Arrival,
		Date:           t.Date,
		Price:          t.Price,
		SpaceAvailable: string(t.SpaceAvailable),
		MaxItemWeight:  t.MaxItemWeight,
		ItemCategories: t.ItemCategories,
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
