package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/saadjs/kcal-snap/internal/model"
)

// FoodLog is the ordered log of food entries for the running session.
type FoodLog struct {
	db  *sql.DB
	now func() time.Time
}

func NewFoodLog(db *sql.DB) *FoodLog {
	return &FoodLog{db: db, now: time.Now}
}

// Append validates e and adds it at the end of the log. A zero ID gets a fresh
// one; the stored entry is returned.
func (l *FoodLog) Append(e model.FoodEntry) (model.FoodEntry, error) {
	e, err := validateFoodEntry(e)
	if err != nil {
		return model.FoodEntry{}, err
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = l.now()
	}

	var idArg any
	if e.ID > 0 {
		idArg = e.ID
	}
	// seq, not id, is the log order: a caller may reuse a removed id.
	res, err := l.db.Exec(`
INSERT INTO food_entries(id, name, meal_type, calories, protein_g, carbs_g, fat_g, amount, image_ref, logged_at, seq)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT IFNULL(MAX(seq), 0) + 1 FROM food_entries))
ON CONFLICT(id) DO NOTHING
`, idArg, e.Name, e.MealType.String(), e.Nutrients.Calories, e.Nutrients.Protein, e.Nutrients.Carbs, e.Nutrients.Fat, e.Amount, e.ImageRef, e.LoggedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return model.FoodEntry{}, fmt.Errorf("insert food entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.FoodEntry{}, fmt.Errorf("check inserted food entry: %w", err)
	}
	if n == 0 {
		return model.FoodEntry{}, invalid("id", "entry %d already exists", e.ID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.FoodEntry{}, fmt.Errorf("resolve inserted food entry id: %w", err)
	}
	e.ID = id
	return e, nil
}

// Remove deletes the entry with the given id. Unknown ids are ignored.
func (l *FoodLog) Remove(id int64) error {
	if _, err := l.db.Exec(`DELETE FROM food_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete food entry %d: %w", id, err)
	}
	return nil
}

// Totals sums the nutrients of every entry currently in the log.
func (l *FoodLog) Totals() (model.DailyTotals, error) {
	var t model.DailyTotals
	err := l.db.QueryRow(`
SELECT IFNULL(SUM(calories), 0), IFNULL(SUM(protein_g), 0), IFNULL(SUM(carbs_g), 0), IFNULL(SUM(fat_g), 0)
FROM food_entries
`).Scan(&t.Calories, &t.Protein, &t.Carbs, &t.Fat)
	if err != nil {
		return model.DailyTotals{}, fmt.Errorf("sum food entries: %w", err)
	}
	return t, nil
}

// List returns a snapshot of the log in append order.
func (l *FoodLog) List() ([]model.FoodEntry, error) {
	rows, err := l.db.Query(`
SELECT id, name, meal_type, calories, protein_g, carbs_g, fat_g, amount, image_ref, logged_at
FROM food_entries
ORDER BY seq ASC, id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list food entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.FoodEntry, 0)
	for rows.Next() {
		var e model.FoodEntry
		var mealRaw, loggedAtRaw string
		if err := rows.Scan(&e.ID, &e.Name, &mealRaw, &e.Nutrients.Calories, &e.Nutrients.Protein, &e.Nutrients.Carbs, &e.Nutrients.Fat, &e.Amount, &e.ImageRef, &loggedAtRaw); err != nil {
			return nil, fmt.Errorf("scan food entry: %w", err)
		}
		e.MealType, err = model.ParseMealType(mealRaw)
		if err != nil {
			return nil, fmt.Errorf("food entry %d: %w", e.ID, err)
		}
		e.LoggedAt, err = time.Parse(time.RFC3339Nano, loggedAtRaw)
		if err != nil {
			return nil, fmt.Errorf("parse logged_at for food entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate food entries: %w", err)
	}
	return entries, nil
}
