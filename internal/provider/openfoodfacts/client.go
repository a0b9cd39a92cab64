// Package openfoodfacts searches the Open Food Facts product database by name.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://world.openfoodfacts.org"

const userAgent = "kcal-snap/1.0 (+https://github.com/saadjs/kcal-snap)"

var ErrNoMatch = errors.New("no openfoodfacts product matched")

// Product carries per-100 g macro nutrients.
type Product struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// SearchFood returns the first product for query that reports energy.
func (c *Client) SearchFood(ctx context.Context, query string) (Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Product{}, fmt.Errorf("%w: empty query", ErrNoMatch)
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=10",
		base, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Product{}, fmt.Errorf("create openfoodfacts search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return Product{}, fmt.Errorf("execute openfoodfacts search request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Product{}, fmt.Errorf("read openfoodfacts search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Product{}, fmt.Errorf("openfoodfacts search request failed with status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Product{}, fmt.Errorf("decode openfoodfacts search response: %w", err)
	}
	for _, p := range parsed.Products {
		name := strings.TrimSpace(p.ProductName)
		if name == "" {
			continue
		}
		out := Product{
			Code:     strings.TrimSpace(p.Code),
			Name:     name,
			Brand:    strings.TrimSpace(p.Brands),
			Calories: per100g(p.Nutriments, "energy-kcal"),
			ProteinG: per100g(p.Nutriments, "proteins"),
			CarbsG:   per100g(p.Nutriments, "carbohydrates"),
			FatG:     per100g(p.Nutriments, "fat"),
		}
		if out.Calories > 0 {
			return out, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %q", ErrNoMatch, query)
}

func per100g(n map[string]any, base string) float64 {
	if v, ok := parseFloatAny(n[base+"_100g"]); ok {
		return v
	}
	return 0
}

// Nutriment values arrive as numbers or numeric strings depending on the
// product's contributor.
func parseFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

type searchResponse struct {
	Products []product `json:"products"`
}

type product struct {
	Code        string         `json:"code"`
	ProductName string         `json:"product_name"`
	Brands      string         `json:"brands"`
	Nutriments  map[string]any `json:"nutriments"`
}
