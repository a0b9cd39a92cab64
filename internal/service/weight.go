package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/saadjs/kcal-snap/internal/model"
)

// WeightSeries keeps weight observations ordered by calendar date.
type WeightSeries struct {
	db *sql.DB
}

func NewWeightSeries(db *sql.DB) *WeightSeries {
	return &WeightSeries{db: db}
}

// Insert adds an observation. Observations sharing a date keep the order in
// which they were inserted.
func (s *WeightSeries) Insert(w model.WeightEntry) error {
	if err := validateWeightEntry(w); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO weight_entries(entry_date, weight) VALUES(?, ?)`, model.FormatDate(model.DateOf(w.Date)), w.Weight)
	if err != nil {
		return fmt.Errorf("insert weight entry: %w", err)
	}
	return nil
}

// List returns the series ascending by date.
func (s *WeightSeries) List() ([]model.WeightEntry, error) {
	rows, err := s.db.Query(`SELECT entry_date, weight FROM weight_entries ORDER BY entry_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list weight entries: %w", err)
	}
	defer rows.Close()

	items := make([]model.WeightEntry, 0)
	for rows.Next() {
		var w model.WeightEntry
		var dateRaw string
		if err := rows.Scan(&dateRaw, &w.Weight); err != nil {
			return nil, fmt.Errorf("scan weight entry: %w", err)
		}
		w.Date, err = model.ParseDate(dateRaw)
		if err != nil {
			return nil, fmt.Errorf("parse weight entry date: %w", err)
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weight entries: %w", err)
	}
	return items, nil
}

// SampleWeights is the starter trend shown before the user logs anything.
var SampleWeights = []model.WeightEntry{
	{Date: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), Weight: 80.5},
	{Date: time.Date(2024, 7, 22, 0, 0, 0, 0, time.UTC), Weight: 79.8},
	{Date: time.Date(2024, 7, 29, 0, 0, 0, 0, time.UTC), Weight: 79.2},
}

func (s *WeightSeries) SeedSample() error {
	for _, w := range SampleWeights {
		if err := s.Insert(w); err != nil {
			return fmt.Errorf("seed sample weight %s: %w", model.FormatDate(w.Date), err)
		}
	}
	return nil
}
