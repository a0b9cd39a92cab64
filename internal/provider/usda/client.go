// Package usda searches USDA FoodData Central for the nutrients of a named
// food.
package usda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.nal.usda.gov"

var (
	ErrMissingAPIKey = errors.New("missing USDA API key")
	ErrNoMatch       = errors.New("no USDA food matched")
)

// generic data types carry per-100 g values for unbranded foods.
var searchDataTypes = []string{"Survey (FNDDS)", "Foundation", "SR Legacy"}

// FoodMatch is the best search hit with its macro nutrients.
type FoodMatch struct {
	FDCID       int64   `json:"fdc_id"`
	Description string  `json:"description"`
	DataType    string  `json:"data_type"`
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
	CarbsG      float64 `json:"carbs_g"`
	FatG        float64 `json:"fat_g"`
}

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// SearchFood returns the first search hit for query that reports energy.
func (c *Client) SearchFood(ctx context.Context, query string) (FoodMatch, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return FoodMatch{}, ErrMissingAPIKey
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return FoodMatch{}, fmt.Errorf("%w: empty query", ErrNoMatch)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	payload, err := json.Marshal(map[string]any{
		"query":    query,
		"dataType": searchDataTypes,
		"pageSize": 10,
	})
	if err != nil {
		return FoodMatch{}, fmt.Errorf("marshal USDA search payload: %w", err)
	}

	url := fmt.Sprintf("%s/fdc/v1/foods/search?api_key=%s", baseURL, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return FoodMatch{}, fmt.Errorf("create USDA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return FoodMatch{}, fmt.Errorf("execute USDA request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FoodMatch{}, fmt.Errorf("read USDA response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FoodMatch{}, fmt.Errorf("USDA request failed with status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return FoodMatch{}, fmt.Errorf("decode USDA response: %w", err)
	}
	for _, f := range parsed.Foods {
		m := f.match()
		if m.Calories > 0 {
			return m, nil
		}
	}
	return FoodMatch{}, fmt.Errorf("%w: %q", ErrNoMatch, query)
}

type searchResponse struct {
	Foods []usdaFood `json:"foods"`
}

type usdaFood struct {
	FDCID         int64          `json:"fdcId"`
	Description   string         `json:"description"`
	DataType      string         `json:"dataType"`
	FoodNutrients []usdaNutrient `json:"foodNutrients"`
}

type usdaNutrient struct {
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

func (f usdaFood) match() FoodMatch {
	out := FoodMatch{
		FDCID:       f.FDCID,
		Description: strings.TrimSpace(f.Description),
		DataType:    f.DataType,
	}
	for _, n := range f.FoodNutrients {
		switch strings.ToLower(strings.TrimSpace(n.NutrientName)) {
		case "energy":
			// Foundation foods list energy in both kcal and kJ.
			if strings.EqualFold(strings.TrimSpace(n.UnitName), "kj") {
				continue
			}
			out.Calories = n.Value
		case "protein":
			out.ProteinG = n.Value
		case "carbohydrate, by difference":
			out.CarbsG = n.Value
		case "total lipid (fat)":
			out.FatG = n.Value
		}
	}
	return out
}
