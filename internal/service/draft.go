package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/saadjs/kcal-snap/internal/locale"
	"github.com/saadjs/kcal-snap/internal/model"
)

type DraftState int

const (
	DraftEmpty DraftState = iota
	DraftImageSelected
	DraftAnalyzing
	DraftReady
	DraftCommitted
	DraftCancelled
)

func (s DraftState) String() string {
	switch s {
	case DraftEmpty:
		return "empty"
	case DraftImageSelected:
		return "image_selected"
	case DraftAnalyzing:
		return "analyzing"
	case DraftReady:
		return "ready"
	case DraftCommitted:
		return "committed"
	case DraftCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("DraftState(%d)", int(s))
	}
}

func (s DraftState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DraftState) UnmarshalText(text []byte) error {
	for st := DraftEmpty; st <= DraftCancelled; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown draft state %q", text)
}

// Terminal reports whether the draft can no longer change.
func (s DraftState) Terminal() bool {
	return s == DraftCommitted || s == DraftCancelled
}

// FoodAnalyzer turns an image into a food estimate.
type FoodAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (model.AnalyzedFood, error)
}

// FoodAppender receives committed entries.
type FoodAppender interface {
	Append(e model.FoodEntry) (model.FoodEntry, error)
}

// DraftEdit carries the fields a user changed. Nil fields are left alone.
type DraftEdit struct {
	Name     *string         `json:"name,omitempty"`
	MealType *model.MealType `json:"meal_type,omitempty"`
	Calories *float64        `json:"calories,omitempty"`
	Protein  *float64        `json:"protein,omitempty"`
	Carbs    *float64        `json:"carbs,omitempty"`
	Fat      *float64        `json:"fat,omitempty"`
	Amount   *string         `json:"amount,omitempty"`
}

// DraftView is a read-only copy of a draft.
type DraftView struct {
	ID        string                `json:"id"`
	State     DraftState            `json:"state"`
	Name      string                `json:"name"`
	MealType  model.MealType        `json:"meal_type"`
	Nutrients model.NutrientProfile `json:"nutrients"`
	Amount    string                `json:"amount"`
	ImageRef  string                `json:"image_ref,omitempty"`
	Provider  string                `json:"provider,omitempty"`
	LastError string                `json:"last_error,omitempty"`
	EntryID   int64                 `json:"entry_id,omitempty"`
}

type DraftOptions struct {
	ID      string
	Locale  locale.Locale
	Logger  *slog.Logger
	OnClose func(id string)
}

// editedField records which fields the user touched while an analysis was in
// flight.
type editedField uint8

const (
	editedName editedField = 1 << iota
	editedCalories
	editedProtein
	editedCarbs
	editedFat
)

// Draft is one food entry under construction. It may hold an empty name or
// zero calories until it is committed. All methods are safe for concurrent
// use.
type Draft struct {
	mu sync.Mutex

	id        string
	state     DraftState
	name      string
	mealType  model.MealType
	nutrients model.NutrientProfile
	amount    string
	image     *StagedImage
	provider  string
	lastErr   string
	entryID   int64

	edited     editedField
	generation uint64
	cancel     context.CancelFunc

	analyzer FoodAnalyzer
	log      FoodAppender
	messages locale.Messages
	logger   *slog.Logger
	onClose  func(id string)
}

func NewDraft(analyzer FoodAnalyzer, log FoodAppender, opts DraftOptions) *Draft {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	messages := locale.For(opts.Locale)
	return &Draft{
		id:       opts.ID,
		state:    DraftEmpty,
		mealType: model.MealBreakfast,
		amount:   messages.DefaultAmount,
		analyzer: analyzer,
		log:      log,
		messages: messages,
		logger:   opts.Logger.With(slog.String("draft", opts.ID)),
		onClose:  opts.OnClose,
	}
}

func (d *Draft) ID() string { return d.id }

func (d *Draft) State() DraftState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Draft) Snapshot() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *Draft) viewLocked() DraftView {
	v := DraftView{
		ID:        d.id,
		State:     d.state,
		Name:      d.name,
		MealType:  d.mealType,
		Nutrients: d.nutrients,
		Amount:    d.amount,
		Provider:  d.provider,
		LastError: d.lastErr,
		EntryID:   d.entryID,
	}
	if d.image != nil {
		v.ImageRef = d.image.Ref
	}
	return v
}

func (d *Draft) transitionLocked(to DraftState) {
	if d.state == to {
		return
	}
	d.logger.Debug("draft transition", slog.String("from", d.state.String()), slog.String("to", to.String()))
	d.state = to
}

func (d *Draft) checkOpenLocked() error {
	if d.state.Terminal() {
		return invalid("state", "draft is %s", d.state)
	}
	return nil
}

// SelectImage stages img for analysis. It replaces any earlier image.
func (d *Draft) SelectImage(img StagedImage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpenLocked(); err != nil {
		return err
	}
	if d.state == DraftAnalyzing {
		return invalid("image", "analysis in progress")
	}
	if len(img.Data) == 0 {
		return invalid("image", "%s", d.messages.SelectImageFirst)
	}
	d.image = &img
	d.lastErr = ""
	d.transitionLocked(DraftImageSelected)
	return nil
}

// RequestAnalysis starts analysing the staged image on its own goroutine. The
// returned channel is closed once the outcome has been applied or dropped.
// The analysis outlives ctx's cancellation but keeps its values.
func (d *Draft) RequestAnalysis(ctx context.Context) (<-chan struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpenLocked(); err != nil {
		return nil, err
	}
	if d.state == DraftAnalyzing {
		return nil, invalid("state", "analysis already in progress")
	}
	if d.image == nil {
		return nil, invalid("image", "%s", d.messages.SelectImageFirst)
	}
	if d.analyzer == nil {
		return nil, &AnalysisError{Message: d.messages.AnalysisDisabled, Err: ErrAnalysisUnavailable}
	}

	d.generation++
	gen := d.generation
	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.edited = 0
	d.lastErr = ""
	d.transitionLocked(DraftAnalyzing)

	img := *d.image
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		food, err := d.analyzer.Analyze(actx, img.Data, img.MIMEType)
		d.finishAnalysis(gen, food, err)
	}()
	return done, nil
}

func (d *Draft) finishAnalysis(gen uint64, food model.AnalyzedFood, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation || d.state != DraftAnalyzing {
		d.logger.Info("dropping analysis result", slog.String("state", d.state.String()))
		return
	}
	d.cancel = nil
	if err != nil {
		d.lastErr = displayMessage(err, d.messages.AnalysisFailed)
		d.transitionLocked(DraftReady)
		return
	}

	if d.edited&editedName == 0 {
		d.name = food.Name
	}
	if d.edited&editedCalories == 0 {
		d.nutrients.Calories = food.Nutrients.Calories
	}
	if d.edited&editedProtein == 0 {
		d.nutrients.Protein = food.Nutrients.Protein
	}
	if d.edited&editedCarbs == 0 {
		d.nutrients.Carbs = food.Nutrients.Carbs
	}
	if d.edited&editedFat == 0 {
		d.nutrients.Fat = food.Nutrients.Fat
	}
	d.provider = food.Provider
	d.transitionLocked(DraftReady)
}

func displayMessage(err error, fallback string) string {
	switch e := err.(type) {
	case *AnalysisError:
		return e.Message
	case *ValidationError:
		return e.Message
	}
	return fallback
}

// Edit applies user changes and moves a draft without analysed values to
// Ready. An empty name or zero calories are accepted here; only commit
// requires them.
func (d *Draft) Edit(e DraftEdit) error {
	if err := validateDraftEdit(e); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpenLocked(); err != nil {
		return err
	}
	if e.Name != nil {
		d.name = *e.Name
		d.edited |= editedName
	}
	if e.MealType != nil {
		d.mealType = *e.MealType
	}
	if e.Calories != nil {
		d.nutrients.Calories = *e.Calories
		d.edited |= editedCalories
	}
	if e.Protein != nil {
		d.nutrients.Protein = *e.Protein
		d.edited |= editedProtein
	}
	if e.Carbs != nil {
		d.nutrients.Carbs = *e.Carbs
		d.edited |= editedCarbs
	}
	if e.Fat != nil {
		d.nutrients.Fat = *e.Fat
		d.edited |= editedFat
	}
	if e.Amount != nil {
		d.amount = *e.Amount
	}
	if d.state == DraftEmpty || d.state == DraftImageSelected {
		d.transitionLocked(DraftReady)
	}
	return nil
}

func validateDraftEdit(e DraftEdit) error {
	for _, f := range []struct {
		field string
		value *float64
	}{
		{"calories", e.Calories},
		{"protein", e.Protein},
		{"carbs", e.Carbs},
		{"fat", e.Fat},
	} {
		if f.value == nil {
			continue
		}
		v := *f.value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid(f.field, "must be a finite number")
		}
		if v < 0 {
			return invalid(f.field, "must be >= 0")
		}
	}
	if e.MealType != nil && !e.MealType.Valid() {
		return invalid("meal_type", "must be breakfast, lunch, dinner, or snack")
	}
	return nil
}

// Commit hands a Ready draft to the food log. A rejected commit leaves the
// draft editable.
func (d *Draft) Commit() (model.FoodEntry, error) {
	d.mu.Lock()
	if err := d.checkOpenLocked(); err != nil {
		d.mu.Unlock()
		return model.FoodEntry{}, err
	}
	if d.state == DraftAnalyzing {
		d.mu.Unlock()
		return model.FoodEntry{}, invalid("state", "analysis in progress")
	}
	if d.state != DraftReady {
		d.mu.Unlock()
		return model.FoodEntry{}, invalid("state", "draft is %s; analyse or edit it first", d.state)
	}
	entry := model.FoodEntry{
		Name:      strings.TrimSpace(d.name),
		MealType:  d.mealType,
		Nutrients: d.nutrients,
		Amount:    d.amount,
	}
	if d.image != nil {
		entry.ImageRef = d.image.Ref
	}
	stored, err := d.log.Append(entry)
	if err != nil {
		d.mu.Unlock()
		return model.FoodEntry{}, err
	}
	d.entryID = stored.ID
	d.image = nil
	d.transitionLocked(DraftCommitted)
	d.mu.Unlock()

	d.logger.Info("draft committed", slog.Int64("entry_id", stored.ID), slog.String("name", stored.Name))
	d.close()
	return stored, nil
}

// Cancel discards the draft. An analysis still in flight is cancelled and its
// result ignored.
func (d *Draft) Cancel() error {
	d.mu.Lock()
	if err := d.checkOpenLocked(); err != nil {
		d.mu.Unlock()
		return err
	}
	d.generation++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.image = nil
	d.transitionLocked(DraftCancelled)
	d.mu.Unlock()

	d.close()
	return nil
}

func (d *Draft) close() {
	if d.onClose != nil {
		d.onClose(d.id)
	}
}
