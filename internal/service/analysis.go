package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/saadjs/kcal-snap/internal/locale"
	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/provider/gemini"
	"github.com/saadjs/kcal-snap/internal/provider/rekognition"
)

const (
	AnalysisProviderGemini      = "gemini"
	AnalysisProviderRekognition = "rekognition"
	DefaultAnalysisTimeout      = 30 * time.Second
)

// ErrAnalysisUnavailable marks a provider that cannot be called at all, for
// example because it has no credentials.
var ErrAnalysisUnavailable = errors.New("image analysis is not configured")

// FoodEstimate is a provider answer before defaults are applied. Nil fields
// were not reported.
type FoodEstimate struct {
	Name     *string
	Calories *float64
	Protein  *float64
	Carbs    *float64
	Fat      *float64
}

// ImageProvider is one external image-understanding backend.
type ImageProvider interface {
	Name() string
	Estimate(ctx context.Context, image []byte, mimeType, instruction string) (FoodEstimate, error)
}

type AnalyzerOptions struct {
	Timeout time.Duration
	Locale  locale.Locale
	Logger  *slog.Logger
}

// ImageAnalyzer asks the configured providers, in order, to identify the food
// in an image and normalizes the first answer it gets.
type ImageAnalyzer struct {
	providers []ImageProvider
	timeout   time.Duration
	messages  locale.Messages
	logger    *slog.Logger
}

func NewImageAnalyzer(providers []ImageProvider, opts AnalyzerOptions) *ImageAnalyzer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAnalysisTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ImageAnalyzer{
		providers: providers,
		timeout:   opts.Timeout,
		messages:  locale.For(opts.Locale),
		logger:    opts.Logger,
	}
}

// Providers lists the provider names in the order they are tried.
func (a *ImageAnalyzer) Providers() []string {
	out := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		out = append(out, p.Name())
	}
	return out
}

// Analyze identifies the food in image. Every failure is an *AnalysisError,
// except an empty image which is a *ValidationError.
func (a *ImageAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (model.AnalyzedFood, error) {
	if len(image) == 0 {
		return model.AnalyzedFood{}, invalid("image", "%s", a.messages.SelectImageFirst)
	}
	if len(a.providers) == 0 {
		return model.AnalyzedFood{}, &AnalysisError{Message: a.messages.AnalysisDisabled, Err: ErrAnalysisUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	trail := make([]string, 0, len(a.providers))
	errs := make([]error, 0, len(a.providers))
	unavailable := 0
	last := ""
	for _, p := range a.providers {
		last = p.Name()
		trail = append(trail, last)
		started := time.Now()
		est, err := p.Estimate(ctx, image, mimeType, a.messages.AnalysisPrompt)
		if err == nil {
			food := a.normalize(est)
			food.Provider = last
			food.Trail = trail
			a.logger.Info("image analyzed",
				slog.String("provider", last),
				slog.String("name", food.Name),
				slog.Float64("calories", food.Nutrients.Calories),
				slog.Duration("elapsed", time.Since(started)))
			return food, nil
		}
		a.logger.Warn("image analysis attempt failed",
			slog.String("provider", last),
			slog.Duration("elapsed", time.Since(started)),
			slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", last, err))
		if errors.Is(err, ErrAnalysisUnavailable) {
			unavailable++
		}
		if ctx.Err() != nil {
			break
		}
	}

	msg := a.messages.AnalysisFailed
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		msg = a.messages.AnalysisTimeout
		errs = append(errs, fmt.Errorf("no answer within %s: %w", a.timeout, ctx.Err()))
	case unavailable == len(errs):
		msg = a.messages.AnalysisDisabled
	}
	return model.AnalyzedFood{}, &AnalysisError{Provider: last, Message: msg, Err: errors.Join(errs...)}
}

// normalize fills what the provider left out: a placeholder name and zero
// for any missing or unusable number.
func (a *ImageAnalyzer) normalize(est FoodEstimate) model.AnalyzedFood {
	name := ""
	if est.Name != nil {
		name = strings.TrimSpace(*est.Name)
	}
	if name == "" {
		name = a.messages.UnknownFood
	}
	return model.AnalyzedFood{
		Name: name,
		Nutrients: model.NutrientProfile{
			Calories: orZero(est.Calories),
			Protein:  orZero(est.Protein),
			Carbs:    orZero(est.Carbs),
			Fat:      orZero(est.Fat),
		},
	}
}

func orZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0
	}
	return *v
}

type geminiProvider struct {
	client *gemini.Client
}

func NewGeminiProvider(client *gemini.Client) ImageProvider {
	return &geminiProvider{client: client}
}

func (p *geminiProvider) Name() string { return AnalysisProviderGemini }

func (p *geminiProvider) Estimate(ctx context.Context, image []byte, mimeType, instruction string) (FoodEstimate, error) {
	est, _, err := p.client.AnalyzeFoodImage(ctx, image, mimeType, instruction)
	if errors.Is(err, gemini.ErrMissingAPIKey) {
		return FoodEstimate{}, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}
	if err != nil {
		return FoodEstimate{}, err
	}
	return FoodEstimate{
		Name:     est.Name,
		Calories: est.Calories,
		Protein:  est.Protein,
		Carbs:    est.Carbs,
		Fat:      est.Fat,
	}, nil
}

type rekognitionProvider struct {
	client    *rekognition.Client
	nutrients NutrientLookup
}

// NewRekognitionProvider names the food from image labels. When nutrients is
// set the label is looked up there; otherwise nutrients are left for the user
// to fill in.
func NewRekognitionProvider(client *rekognition.Client, nutrients NutrientLookup) ImageProvider {
	return &rekognitionProvider{client: client, nutrients: nutrients}
}

func (p *rekognitionProvider) Name() string { return AnalysisProviderRekognition }

func (p *rekognitionProvider) Estimate(ctx context.Context, image []byte, mimeType, instruction string) (FoodEstimate, error) {
	if p.client == nil || p.client.API == nil {
		return FoodEstimate{}, ErrAnalysisUnavailable
	}
	label, err := p.client.IdentifyFood(ctx, image)
	if err != nil {
		return FoodEstimate{}, err
	}
	name := label.Name
	est := FoodEstimate{Name: &name}
	if p.nutrients == nil {
		return est, nil
	}
	n, err := p.nutrients.LookupNutrients(ctx, label.Name)
	if err != nil {
		// A name without nutrients is still a usable answer.
		return est, nil
	}
	est.Calories = &n.Calories
	est.Protein = &n.Protein
	est.Carbs = &n.Carbs
	est.Fat = &n.Fat
	return est, nil
}
