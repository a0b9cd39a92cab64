package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saadjs/kcal-snap/internal/locale"
	"github.com/saadjs/kcal-snap/internal/model"
)

const (
	DefaultTDEE             = 2000
	DefaultMaxDrafts        = 8
	DefaultDraftIdleTimeout = 30 * time.Minute
)

var ErrDraftNotFound = errors.New("draft not found")

type TrackerOptions struct {
	TDEE          float64
	Locale        locale.Locale
	MaxImageBytes int
	Logger        *slog.Logger

	// MaxDrafts caps open drafts; opening one more evicts the least recently
	// used. Drafts not looked up for DraftIdleTimeout are evicted too.
	MaxDrafts        int
	DraftIdleTimeout time.Duration
	Now              func() time.Time
}

// Tracker is the command surface front ends drive: the food log, the weight
// series, image analysis and the open drafts.
type Tracker struct {
	foods    *FoodLog
	weights  *WeightSeries
	analyzer FoodAnalyzer
	opts     TrackerOptions

	mu     sync.Mutex
	drafts map[string]*openDraft
}

type openDraft struct {
	draft *Draft
	seen  time.Time
}

func NewTracker(db *sql.DB, analyzer FoodAnalyzer, opts TrackerOptions) *Tracker {
	if opts.TDEE <= 0 {
		opts.TDEE = DefaultTDEE
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxDrafts <= 0 {
		opts.MaxDrafts = DefaultMaxDrafts
	}
	if opts.DraftIdleTimeout <= 0 {
		opts.DraftIdleTimeout = DefaultDraftIdleTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		foods:    NewFoodLog(db),
		weights:  NewWeightSeries(db),
		analyzer: analyzer,
		opts:     opts,
		drafts:   map[string]*openDraft{},
	}
}

func (t *Tracker) TDEE() float64 { return t.opts.TDEE }

func (t *Tracker) AddFood(e model.FoodEntry) (model.FoodEntry, error) {
	stored, err := t.foods.Append(e)
	if err != nil {
		return model.FoodEntry{}, err
	}
	t.opts.Logger.Info("food logged", slog.Int64("id", stored.ID), slog.String("name", stored.Name), slog.String("meal", stored.MealType.String()))
	return stored, nil
}

// DeleteFood removes an entry; unknown ids are not an error.
func (t *Tracker) DeleteFood(id int64) error {
	return t.foods.Remove(id)
}

func (t *Tracker) AddWeightEntry(w model.WeightEntry) error {
	return t.weights.Insert(w)
}

// SeedSampleWeights loads the demo weight observations.
func (t *Tracker) SeedSampleWeights() error {
	return t.weights.SeedSample()
}

func (t *Tracker) DailyTotals() (model.DailyTotals, error) {
	return t.foods.Totals()
}

func (t *Tracker) Summary() (DailySummary, error) {
	totals, err := t.foods.Totals()
	if err != nil {
		return DailySummary{}, err
	}
	entries, err := t.foods.List()
	if err != nil {
		return DailySummary{}, err
	}
	return Summarize(totals, t.opts.TDEE, len(entries)), nil
}

func (t *Tracker) FoodLog() ([]model.FoodEntry, error) {
	return t.foods.List()
}

func (t *Tracker) WeightSeries() ([]model.WeightEntry, error) {
	return t.weights.List()
}

// StageImage validates an uploaded image against the configured size limit.
func (t *Tracker) StageImage(data []byte, mimeType string) (StagedImage, error) {
	return StageImage(data, mimeType, t.opts.MaxImageBytes)
}

// AnalyzeImage runs a one-off analysis outside of any draft.
func (t *Tracker) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (model.AnalyzedFood, error) {
	img, err := t.StageImage(data, mimeType)
	if err != nil {
		return model.AnalyzedFood{}, err
	}
	if t.analyzer == nil {
		return model.AnalyzedFood{}, &AnalysisError{Message: locale.For(t.opts.Locale).AnalysisDisabled, Err: ErrAnalysisUnavailable}
	}
	return t.analyzer.Analyze(ctx, img.Data, img.MIMEType)
}

// NewDraft opens a draft. It is forgotten once committed or cancelled, and
// evicted when idle or when too many drafts are open.
func (t *Tracker) NewDraft() *Draft {
	d := NewDraft(t.analyzer, t.foods, DraftOptions{
		Locale:  t.opts.Locale,
		Logger:  t.opts.Logger,
		OnClose: t.forgetDraft,
	})
	t.mu.Lock()
	now := t.opts.Now()
	expired := t.expireLocked(now)
	var overflow []*Draft
	for len(t.drafts) >= t.opts.MaxDrafts {
		overflow = append(overflow, t.evictOldestLocked())
	}
	t.drafts[d.ID()] = &openDraft{draft: d, seen: now}
	t.mu.Unlock()

	t.discard(expired, "draft idle")
	t.discard(overflow, "draft limit reached")
	return d
}

// Draft looks up an open draft and marks it as recently used.
func (t *Tracker) Draft(id string) (*Draft, error) {
	t.mu.Lock()
	now := t.opts.Now()
	evicted := t.expireLocked(now)
	od, ok := t.drafts[id]
	if ok {
		od.seen = now
	}
	t.mu.Unlock()

	t.discard(evicted, "draft idle")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return od.draft, nil
}

// ExpireDrafts evicts drafts idle for longer than the configured timeout and
// returns how many went.
func (t *Tracker) ExpireDrafts() int {
	t.mu.Lock()
	evicted := t.expireLocked(t.opts.Now())
	t.mu.Unlock()

	t.discard(evicted, "draft idle")
	return len(evicted)
}

func (t *Tracker) expireLocked(now time.Time) []*Draft {
	var out []*Draft
	for id, od := range t.drafts {
		if now.Sub(od.seen) >= t.opts.DraftIdleTimeout {
			delete(t.drafts, id)
			out = append(out, od.draft)
		}
	}
	return out
}

func (t *Tracker) evictOldestLocked() *Draft {
	var oldest *openDraft
	for _, od := range t.drafts {
		if oldest == nil || od.seen.Before(oldest.seen) {
			oldest = od
		}
	}
	delete(t.drafts, oldest.draft.ID())
	return oldest.draft
}

// discard cancels evicted drafts, stopping any analysis in flight. It must
// run without t.mu held since Cancel calls back into forgetDraft.
func (t *Tracker) discard(drafts []*Draft, reason string) {
	for _, d := range drafts {
		t.opts.Logger.Info("evicting draft", slog.String("draft", d.ID()), slog.String("reason", reason))
		_ = d.Cancel()
	}
}

func (t *Tracker) forgetDraft(id string) {
	t.mu.Lock()
	delete(t.drafts, id)
	t.mu.Unlock()
}
