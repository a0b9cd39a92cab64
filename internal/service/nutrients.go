package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/provider/openfoodfacts"
	"github.com/saadjs/kcal-snap/internal/provider/usda"
)

// NutrientLookup finds per-100 g nutrients for a named food.
type NutrientLookup interface {
	LookupNutrients(ctx context.Context, name string) (model.NutrientProfile, error)
}

type usdaLookup struct {
	client *usda.Client
}

func NewUSDALookup(client *usda.Client) NutrientLookup {
	return &usdaLookup{client: client}
}

func (l *usdaLookup) LookupNutrients(ctx context.Context, name string) (model.NutrientProfile, error) {
	m, err := l.client.SearchFood(ctx, name)
	if err != nil {
		return model.NutrientProfile{}, err
	}
	return model.NutrientProfile{Calories: m.Calories, Protein: m.ProteinG, Carbs: m.CarbsG, Fat: m.FatG}, nil
}

type openFoodFactsLookup struct {
	client *openfoodfacts.Client
}

func NewOpenFoodFactsLookup(client *openfoodfacts.Client) NutrientLookup {
	return &openFoodFactsLookup{client: client}
}

func (l *openFoodFactsLookup) LookupNutrients(ctx context.Context, name string) (model.NutrientProfile, error) {
	p, err := l.client.SearchFood(ctx, name)
	if err != nil {
		return model.NutrientProfile{}, err
	}
	return model.NutrientProfile{Calories: p.Calories, Protein: p.ProteinG, Carbs: p.CarbsG, Fat: p.FatG}, nil
}

// NutrientLookups tries each lookup in order and returns the first answer.
type NutrientLookups []NutrientLookup

func (ls NutrientLookups) LookupNutrients(ctx context.Context, name string) (model.NutrientProfile, error) {
	if len(ls) == 0 {
		return model.NutrientProfile{}, errors.New("no nutrient sources configured")
	}
	var errs []error
	for _, l := range ls {
		n, err := l.LookupNutrients(ctx, name)
		if err == nil {
			return n, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return model.NutrientProfile{}, fmt.Errorf("lookup nutrients for %q: %w", name, errors.Join(errs...))
}
