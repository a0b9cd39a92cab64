package openfoodfacts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchFoodParsesOpenFoodFactsResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_terms"); got != "pad thai" {
			t.Errorf("search_terms = %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "products": [
    {"code": "1", "product_name": "", "nutriments": {"energy-kcal_100g": 100}},
    {"code": "2", "product_name": "Pad Thai Sauce", "nutriments": {}},
    {
      "code": "8850000000001",
      "product_name": "Pad Thai",
      "brands": "Brand Co",
      "nutriments": {
        "energy-kcal_100g": "175",
        "energy-kcal_serving": 612,
        "proteins_100g": 6.2,
        "carbohydrates_100g": 24,
        "fat_100g": 5.8
      }
    }
  ]
}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	p, err := c.SearchFood(context.Background(), " pad thai ")
	if err != nil {
		t.Fatalf("search food: %v", err)
	}
	if p.Name != "Pad Thai" || p.Calories != 175 || p.ProteinG != 6.2 || p.CarbsG != 24 || p.FatG != 5.8 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestSearchFoodNoMatch(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	if _, err := c.SearchFood(context.Background(), "nothing"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if _, err := c.SearchFood(context.Background(), "  "); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for empty query, got %v", err)
	}
}
