package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/carryon-collective/carryon/internal/search"
	"github.com/carryon-collective/carryon/internal/trip"
)

// newTestSearchHandlers builds handlers over an in-memory repository seeded
// with the given trips.
func newTestSearchHandlers(t *testing.T, trips ...*trip.Trip) *SearchHandlers {
	t.Helper()

	repo := trip.NewInMemoryTripRepository()
	for _, tr := range trips {
		if err := repo.Create(context.Background(), tr); err != nil {
			t.Fatalf("failed to seed trip: %v", err)
		}
	}

	scorer, err := search.NewScorer(nil)
	if err != nil {
		t.Fatalf("failed to create scorer: %v", err)
	}
	service := search.NewService(repo, scorer, nil, nil)
	return NewSearchHandlers(service, nil)
}

func testTrip(mutate func(*trip.Trip)) *trip.Trip {
	tr := &trip.Trip{
		Departure:      "Paris",
		Arrival:        "Berlin",
		Date:           time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC),
		Price:          40,
		SpaceAvailable: trip.SizeMedium,
		MaxItemWeight:  10,
		ItemCategories: []string{"documents", "electronics"},
		Sharer: &trip.Sharer{
			ID:                "sharer-1",
			Name:              "Ana",
			VerificationLevel: trip.VerificationVerified,
			Rating:            4.5,
			TripCount:         30,
			ResponseRate:      90,
		},
	}
	if mutate != nil {
		mutate(tr)
	}
	return tr
}

func TestSearchTrips_ReturnsRankedResults(t *testing.T) {
	cheap := testTrip(func(tr *trip.Trip) { tr.Price = 30 })
	pricey := testTrip(func(tr *trip.Trip) { tr.Price = 45 })
	handlers := newTestSearchHandlers(t, cheap, pricey)

	req := httptest.NewRequest(http.MethodGet, "/search/trips?max_price=50", nil)
	w := httptest.NewRecorder()

	handlers.SearchTrips(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp TripSearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("expected 2 results, got %d", resp.Count)
	}
	// The cheaper trip scores higher with identical sharers.
	if resp.Results[0].Price != 30 {
		t.Errorf("expected cheapest trip first, got price %v", resp.Results[0].Price)
	}
	if resp.Results[0].Score <= resp.Results[1].Score {
		t.Errorf("expected descending scores, got %v then %v",
			resp.Results[0].Score, resp.Results[1].Score)
	}
	if resp.Results[0].Sharer == nil || resp.Results[0].Sharer.Name != "Ana" {
		t.Error("expected sharer summary in results")
	}
}

func TestSearchTrips_FiltersApplied(t *testing.T) {
	match := testTrip(nil)
	wrongRoute := testTrip(func(tr *trip.Trip) { tr.Arrival = "Madrid" })
	handlers := newTestSearchHandlers(t, match, wrongRoute)

	req := httptest.NewRequest(http.MethodGet, "/search/trips?arrival=berl", nil)
	w := httptest.NewRecorder()

	handlers.SearchTrips(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp TripSearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Count != 1 {
		t.Fatalf("expected 1 result, got %d", resp.Count)
	}
	if resp.Results[0].Arrival != "Berlin" {
		t.Errorf("expected Berlin trip, got %s", resp.Results[0].Arrival)
	}
}

func TestSearchTrips_InvalidParams(t *testing.T) {
	handlers := newTestSearchHandlers(t)

	tests := []struct {
		name  string
		query string
	}{
		{"non-numeric min_rating", "min_rating=high"},
		{"non-numeric max_price", "max_price=cheap"},
		{"non-numeric item_weight", "item_weight=heavy"},
		{"bad date_from", "date_from=tomorrow"},
		{"zero max_price", "max_price=0"},
		{"negative max_price", "max_price=-5"},
		{"unknown verification", "verification=platinum"},
		{"unknown item_size", "item_size=huge"},
		{"out of range min_rating", "min_rating=7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/search/trips?"+tt.query, nil)
			w := httptest.NewRecorder()

			handlers.SearchTrips(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Error.Code != ErrCodeValidation {
				t.Errorf("expected code %s, got %s", ErrCodeValidation, resp.Error.Code)
			}
		})
	}
}

func TestSearchTrips_MethodNotAllowed(t *testing.T) {
	handlers := newTestSearchHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/search/trips", nil)
	w := httptest.NewRecorder()

	handlers.SearchTrips(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestCompatibility_Scores(t *testing.T) {
	handlers := newTestSearchHandlers(t)

	tests := []struct {
		name      string
		params    url.Values
		wantScore float64
	}{
		{
			name: "category and size match",
			params: url.Values{
				"provider_categories": {"documents,electronics"},
				"item_category":       {"documents"},
				"provider_size":       {"large"},
				"item_size":           {"small"},
			},
			wantScore: 1.0,
		},
		{
			name: "category only",
			params: url.Values{
				"provider_categories": {"documents"},
				"item_category":       {"documents"},
				"provider_size":       {"medium"},
				"item_size":           {"large"},
			},
			wantScore: 0.6,
		},
		{
			name: "size only",
			params: url.Values{
				"provider_categories": {"clothing"},
				"item_category":       {"documents"},
				"provider_size":       {"medium"},
				"item_size":           {"medium"},
			},
			wantScore: 0.4,
		},
		{
			name: "no match",
			params: url.Values{
				"provider_categories": {"clothing"},
				"item_category":       {"documents"},
				"provider_size":       {"small"},
				"item_size":           {"large"},
			},
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/search/compatibility?"+tt.params.Encode(), nil)
			w := httptest.NewRecorder()

			handlers.Compatibility(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}

			var resp CompatibilityResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Score != tt.wantScore {
				t.Errorf("expected score %v, got %v", tt.wantScore, resp.Score)
			}
		})
	}
}

func TestCompatibility_InvalidParams(t *testing.T) {
	handlers := newTestSearchHandlers(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing item_category", "provider_size=small&item_size=small"},
		{"unknown provider_size", "item_category=documents&provider_size=huge&item_size=small"},
		{"unknown item_size", "item_category=documents&provider_size=small&item_size=huge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/search/compatibility?"+tt.query, nil)
			w := httptest.NewRecorder()

			handlers.Compatibility(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
