package api

import (
	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/service"
)

// CreateFoodRequest is the body of POST /api/foods.
type CreateFoodRequest struct {
	Name     string         `json:"name"`
	MealType model.MealType `json:"meal_type"`
	Calories float64        `json:"calories"`
	Protein  float64        `json:"protein"`
	Carbs    float64        `json:"carbs"`
	Fat      float64        `json:"fat"`
	Amount   string         `json:"amount"`
}

func (r CreateFoodRequest) entry() model.FoodEntry {
	return model.FoodEntry{
		Name:     r.Name,
		MealType: r.MealType,
		Nutrients: model.NutrientProfile{
			Calories: r.Calories,
			Protein:  r.Protein,
			Carbs:    r.Carbs,
			Fat:      r.Fat,
		},
		Amount: r.Amount,
	}
}

// UpdateDraftRequest is the body of PATCH /api/drafts/{id}.
type UpdateDraftRequest = service.DraftEdit

type DraftView = service.DraftView

type DailySummary = service.DailySummary
