package service_test

import (
	"testing"
	"time"

	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/service"
)

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestWeightSeriesSortsByDate(t *testing.T) {
	t.Parallel()
	series := service.NewWeightSeries(newTestDB(t))

	for _, w := range []model.WeightEntry{
		{Date: day("2024-07-29"), Weight: 79.2},
		{Date: day("2024-07-15"), Weight: 80.5},
		{Date: day("2024-07-22"), Weight: 79.8},
	} {
		if err := series.Insert(w); err != nil {
			t.Fatalf("insert %s: %v", model.FormatDate(w.Date), err)
		}
	}

	items, err := series.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []struct {
		date   string
		weight float64
	}{{"2024-07-15", 80.5}, {"2024-07-22", 79.8}, {"2024-07-29", 79.2}}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		if model.FormatDate(items[i].Date) != w.date || items[i].Weight != w.weight {
			t.Fatalf("item %d: expected %s %.1f, got %s %.1f", i, w.date, w.weight, model.FormatDate(items[i].Date), items[i].Weight)
		}
	}
}

func TestWeightSeriesKeepsInsertionOrderForSameDate(t *testing.T) {
	t.Parallel()
	series := service.NewWeightSeries(newTestDB(t))

	for _, w := range []model.WeightEntry{
		{Date: day("2024-08-02"), Weight: 78.0},
		{Date: time.Date(2024, 8, 1, 21, 30, 0, 0, time.UTC), Weight: 79.0},
		{Date: day("2024-08-01"), Weight: 78.6},
	} {
		if err := series.Insert(w); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	items, err := series.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].Weight != 79.0 || items[1].Weight != 78.6 || items[2].Weight != 78.0 {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestWeightSeriesRejectsInvalidEntries(t *testing.T) {
	t.Parallel()
	series := service.NewWeightSeries(newTestDB(t))

	var ve *service.ValidationError
	if err := series.Insert(model.WeightEntry{Date: day("2024-07-15"), Weight: 0}); !asValidation(err, &ve) || ve.Field != "weight" {
		t.Fatalf("expected weight validation error, got %v", err)
	}
	if err := series.Insert(model.WeightEntry{Date: day("2024-07-15"), Weight: -3}); !asValidation(err, &ve) {
		t.Fatalf("expected validation error for negative weight, got %v", err)
	}
	if err := series.Insert(model.WeightEntry{Weight: 70}); !asValidation(err, &ve) || ve.Field != "date" {
		t.Fatalf("expected date validation error, got %v", err)
	}
	items, err := series.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty series, got %d", len(items))
	}
}

func TestWeightSeriesSeedSample(t *testing.T) {
	t.Parallel()
	series := service.NewWeightSeries(newTestDB(t))
	if err := series.SeedSample(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	items, err := series.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 || items[0].Weight != 80.5 || items[2].Weight != 79.2 {
		t.Fatalf("unexpected sample series: %+v", items)
	}
}
