package service

import "github.com/saadjs/kcal-snap/internal/model"

type MacroCalories struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

type DailySummary struct {
	Totals            model.DailyTotals `json:"totals"`
	TDEE              float64           `json:"tdee"`
	RemainingCalories float64           `json:"remaining_calories"`
	MacroCalories     MacroCalories     `json:"macro_calories"`
	Entries           int               `json:"entries"`
}

// Summarize compares totals against the daily energy target.
func Summarize(totals model.DailyTotals, tdee float64, entries int) DailySummary {
	return DailySummary{
		Totals:            totals,
		TDEE:              tdee,
		RemainingCalories: tdee - totals.Calories,
		MacroCalories: MacroCalories{
			Protein: totals.Protein * model.KcalPerGramProtein,
			Carbs:   totals.Carbs * model.KcalPerGramCarbs,
			Fat:     totals.Fat * model.KcalPerGramFat,
		},
		Entries: entries,
	}
}
