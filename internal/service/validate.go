package service

import (
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/saadjs/kcal-snap/internal/model"
)

var (
	errNotFinite = validation.NewError("validation_not_finite", "must be a finite number")
	errNegative  = validation.NewError("validation_negative", "must be >= 0")
	errPositive  = validation.NewError("validation_not_positive", "must be > 0")
	errMealType  = validation.NewError("validation_meal_type", "must be breakfast, lunch, dinner, or snack")
)

// nonNegative accepts finite values >= 0.
var nonNegative = validation.By(func(value any) error {
	v, _ := value.(float64)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errNotFinite
	}
	if v < 0 {
		return errNegative
	}
	return nil
})

// positive accepts finite values > 0.
var positive = validation.By(func(value any) error {
	v, _ := value.(float64)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errNotFinite
	}
	if v <= 0 {
		return errPositive
	}
	return nil
})

var validMealType = validation.By(func(value any) error {
	m, _ := value.(model.MealType)
	if !m.Valid() {
		return errMealType
	}
	return nil
})

func validateNutrients(n model.NutrientProfile) error {
	return fromValidationErrors(validation.Errors{
		"calories": validation.Validate(n.Calories, nonNegative),
		"protein":  validation.Validate(n.Protein, nonNegative),
		"carbs":    validation.Validate(n.Carbs, nonNegative),
		"fat":      validation.Validate(n.Fat, nonNegative),
	}.Filter())
}

// validateFoodEntry enforces the commit rules: a name, calories > 0, sane
// macros and a known meal type. It returns the entry with its text trimmed.
func validateFoodEntry(e model.FoodEntry) (model.FoodEntry, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.Amount = strings.TrimSpace(e.Amount)
	err := validation.Errors{
		"name":      validation.Validate(e.Name, validation.Required.Error("food name is required")),
		"meal_type": validation.Validate(e.MealType, validMealType),
		"calories":  validation.Validate(e.Nutrients.Calories, positive),
		"protein":   validation.Validate(e.Nutrients.Protein, nonNegative),
		"carbs":     validation.Validate(e.Nutrients.Carbs, nonNegative),
		"fat":       validation.Validate(e.Nutrients.Fat, nonNegative),
		"id":        validation.Validate(e.ID, validation.Min(int64(0))),
	}.Filter()
	if err != nil {
		return model.FoodEntry{}, fromValidationErrors(err)
	}
	return e, nil
}

func validateWeightEntry(w model.WeightEntry) error {
	if w.Date.IsZero() {
		return invalid("date", "date is required")
	}
	return fromValidationErrors(validation.Errors{
		"weight": validation.Validate(w.Weight, positive),
	}.Filter())
}
