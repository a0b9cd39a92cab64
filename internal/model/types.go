package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Energy per gram of each macro. Only used when presenting a calorie split;
// stored nutrients are never derived from these.
const (
	KcalPerGramProtein = 4
	KcalPerGramCarbs   = 4
	KcalPerGramFat     = 9
)

type NutrientProfile struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Add returns the element-wise sum of p and o.
func (p NutrientProfile) Add(o NutrientProfile) NutrientProfile {
	return NutrientProfile{
		Calories: p.Calories + o.Calories,
		Protein:  p.Protein + o.Protein,
		Carbs:    p.Carbs + o.Carbs,
		Fat:      p.Fat + o.Fat,
	}
}

type DailyTotals = NutrientProfile

type FoodEntry struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	MealType  MealType        `json:"meal_type"`
	Nutrients NutrientProfile `json:"nutrients"`
	Amount    string          `json:"amount"`
	ImageRef  string          `json:"image_ref,omitempty"`
	LoggedAt  time.Time       `json:"logged_at"`
}

type AnalyzedFood struct {
	Name      string          `json:"name"`
	Nutrients NutrientProfile `json:"nutrients"`
	Provider  string          `json:"provider,omitempty"`
	Trail     []string        `json:"trail,omitempty"`
}

// WeightEntry is a single weight observation on a calendar day.
type WeightEntry struct {
	Date   time.Time
	Weight float64
}

// DateOf strips the clock from t, keeping its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

type weightEntryJSON struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
}

func (w WeightEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(weightEntryJSON{Date: FormatDate(w.Date), Weight: w.Weight})
}

func (w *WeightEntry) UnmarshalJSON(data []byte) error {
	var raw weightEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.Weight = raw.Weight
	w.Date = time.Time{}
	if strings.TrimSpace(raw.Date) == "" {
		return nil
	}
	d, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	w.Date = d
	return nil
}
