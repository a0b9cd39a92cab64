package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
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

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
	maxResponse    = 1 << 20
)

var ErrMissingAPIKey = errors.New("missing Gemini API key")

// FoodEstimate is what the model returned. A nil field was absent or could
// not be read as the expected type.
type FoodEstimate struct {
	Name     *string  `json:"name,omitempty"`
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
}

type Client struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// AnalyzeFoodImage sends the image with the instruction and decodes the
// structured answer. The raw response body is returned alongside for logging.
func (c *Client) AnalyzeFoodImage(ctx context.Context, image []byte, mimeType, instruction string) (FoodEstimate, []byte, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return FoodEstimate{}, nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = DefaultModel
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
				{Text: instruction},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   foodSchema,
		},
	})
	if err != nil {
		return FoodEstimate{}, nil, fmt.Errorf("marshal Gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return FoodEstimate{}, nil, fmt.Errorf("create Gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return FoodEstimate{}, nil, fmt.Errorf("execute Gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return FoodEstimate{}, nil, fmt.Errorf("read Gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr generateResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			return FoodEstimate{}, body, fmt.Errorf("Gemini request failed with status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return FoodEstimate{}, body, fmt.Errorf("Gemini request failed with status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return FoodEstimate{}, body, fmt.Errorf("decode Gemini response: %w", err)
	}
	if parsed.PromptFeedback.BlockReason != "" {
		return FoodEstimate{}, body, fmt.Errorf("Gemini blocked the request: %s", parsed.PromptFeedback.BlockReason)
	}
	text := parsed.text()
	if text == "" {
		return FoodEstimate{}, body, fmt.Errorf("Gemini returned no content")
	}
	est, err := ParseFoodEstimate(text)
	if err != nil {
		return FoodEstimate{}, body, err
	}
	return est, body, nil
}

// ParseFoodEstimate reads the model's JSON answer. The payload must be a JSON
// object; individual fields of the wrong type are treated as absent.
func ParseFoodEstimate(text string) (FoodEstimate, error) {
	text = stripCodeFence(text)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return FoodEstimate{}, fmt.Errorf("decode Gemini food payload: %w", err)
	}
	if fields == nil {
		return FoodEstimate{}, fmt.Errorf("decode Gemini food payload: not a JSON object")
	}
	var out FoodEstimate
	if raw, ok := fields["name"]; ok {
		var name string
		if json.Unmarshal(raw, &name) == nil {
			out.Name = &name
		}
	}
	out.Calories = lenientNumber(fields["calories"])
	out.Protein = lenientNumber(fields["protein"])
	out.Carbs = lenientNumber(fields["carbs"])
	out.Fat = lenientNumber(fields["fat"])
	return out, nil
}

func lenientNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return &f
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "g"))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return &v
		}
	}
	return nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

var foodSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"name":     {Type: "STRING", Description: "Name of the food in the image"},
		"calories": {Type: "NUMBER", Description: "Estimated calories (kcal)"},
		"protein":  {Type: "NUMBER", Description: "Estimated protein (g)"},
		"carbs":    {Type: "NUMBER", Description: "Estimated carbohydrates (g)"},
		"fat":      {Type: "NUMBER", Description: "Estimated fat (g)"},
	},
	Required: []string{"name", "calories", "protein", "carbs", "fat"},
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (r generateResponse) text() string {
	var b strings.Builder
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
