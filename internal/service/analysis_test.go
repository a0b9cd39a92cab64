package service_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsrek "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saadjs/kcal-snap/internal/locale"
	"github.com/saadjs/kcal-snap/internal/provider/gemini"
	"github.com/saadjs/kcal-snap/internal/provider/openfoodfacts"
	"github.com/saadjs/kcal-snap/internal/provider/rekognition"
	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/service"
)

type fakeProvider struct {
	name  string
	est   service.FoodEstimate
	err   error
	block bool
	calls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Estimate(ctx context.Context, image []byte, mimeType, instruction string) (service.FoodEstimate, error) {
	p.calls++
	if p.block {
		<-ctx.Done()
		return service.FoodEstimate{}, ctx.Err()
	}
	return p.est, p.err
}

func newAnalyzer(timeout time.Duration, providers ...service.ImageProvider) *service.ImageAnalyzer {
	return service.NewImageAnalyzer(providers, service.AnalyzerOptions{
		Timeout: timeout,
		Locale:  locale.Thai,
		Logger:  quietLogger(),
	})
}

func TestImageAnalyzerAppliesLenientDefaults(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{name: "fake", est: service.FoodEstimate{
		Name:     ptr("  "),
		Calories: ptr(-5.0),
		Protein:  ptr(math.NaN()),
		Carbs:    ptr(42.0),
	}}
	got, err := newAnalyzer(time.Second, p).Analyze(context.Background(), pngHeader, "image/png")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Name != "ไม่สามารถระบุชื่ออาหารได้" {
		t.Fatalf("expected placeholder name, got %q", got.Name)
	}
	if got.Nutrients.Calories != 0 || got.Nutrients.Protein != 0 || got.Nutrients.Carbs != 42 || got.Nutrients.Fat != 0 {
		t.Fatalf("unexpected nutrients: %+v", got.Nutrients)
	}
	if got.Provider != "fake" {
		t.Fatalf("expected provider fake, got %q", got.Provider)
	}
}

func TestImageAnalyzerFallsBackToNextProvider(t *testing.T) {
	t.Parallel()
	first := &fakeProvider{name: "first", err: errors.New("connection refused")}
	second := &fakeProvider{name: "second", est: service.FoodEstimate{Name: ptr("ข้าวผัด"), Calories: ptr(450.0)}}

	got, err := newAnalyzer(time.Second, first, second).Analyze(context.Background(), pngHeader, "image/png")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Name != "ข้าวผัด" || got.Nutrients.Calories != 450 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if strings.Join(got.Trail, ",") != "first,second" {
		t.Fatalf("unexpected trail: %v", got.Trail)
	}
}

func TestImageAnalyzerTransportFailureIsAnalysisError(t *testing.T) {
	t.Parallel()
	cause := errors.New("dial tcp: no route to host")
	p := &fakeProvider{name: "fake", err: cause}

	_, err := newAnalyzer(time.Second, p).Analyze(context.Background(), pngHeader, "image/png")
	var ae *service.AnalysisError
	if !asAnalysis(err, &ae) {
		t.Fatalf("expected analysis error, got %v", err)
	}
	if ae.Message != locale.For(locale.Thai).AnalysisFailed {
		t.Fatalf("unexpected message %q", ae.Message)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
}

func TestImageAnalyzerTimeout(t *testing.T) {
	t.Parallel()
	slow := &fakeProvider{name: "slow", block: true}
	next := &fakeProvider{name: "next", est: service.FoodEstimate{Name: ptr("late")}}

	_, err := newAnalyzer(20*time.Millisecond, slow, next).Analyze(context.Background(), pngHeader, "image/png")
	var ae *service.AnalysisError
	if !asAnalysis(err, &ae) {
		t.Fatalf("expected analysis error, got %v", err)
	}
	if ae.Message != locale.For(locale.Thai).AnalysisTimeout {
		t.Fatalf("expected timeout message, got %q", ae.Message)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
	if next.calls != 0 {
		t.Fatalf("expected no attempt after the deadline, got %d", next.calls)
	}
}

func TestImageAnalyzerWithoutProviders(t *testing.T) {
	t.Parallel()
	_, err := newAnalyzer(time.Second).Analyze(context.Background(), pngHeader, "image/png")
	var ae *service.AnalysisError
	if !asAnalysis(err, &ae) || !errors.Is(err, service.ErrAnalysisUnavailable) {
		t.Fatalf("expected unavailable analysis error, got %v", err)
	}

	_, err = newAnalyzer(time.Second, &fakeProvider{name: "fake"}).Analyze(context.Background(), nil, "image/png")
	if !service.IsValidation(err) {
		t.Fatalf("expected validation error for empty image, got %v", err)
	}
}

func TestGeminiProviderMissingKeyIsUnavailable(t *testing.T) {
	t.Parallel()
	p := service.NewGeminiProvider(&gemini.Client{})
	_, err := newAnalyzer(time.Second, p).Analyze(context.Background(), pngHeader, "image/png")
	var ae *service.AnalysisError
	if !asAnalysis(err, &ae) {
		t.Fatalf("expected analysis error, got %v", err)
	}
	if ae.Message != locale.For(locale.Thai).AnalysisDisabled {
		t.Fatalf("expected disabled message, got %q", ae.Message)
	}
}

func TestGeminiProviderEndToEnd(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"name\":\"ต้มยำกุ้ง\",\"calories\":\"320\",\"protein\":25}"}]}}]}`))
	}))
	defer srv.Close()

	p := service.NewGeminiProvider(&gemini.Client{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	got, err := newAnalyzer(time.Second, p).Analyze(context.Background(), pngHeader, "image/png")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Name != "ต้มยำกุ้ง" || got.Nutrients.Calories != 320 || got.Nutrients.Protein != 25 || got.Nutrients.Fat != 0 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Provider != service.AnalysisProviderGemini {
		t.Fatalf("unexpected provider %q", got.Provider)
	}
}

type fakeLabels struct{ name string }

func (f fakeLabels) DetectLabels(ctx context.Context, params *awsrek.DetectLabelsInput, optFns ...func(*awsrek.Options)) (*awsrek.DetectLabelsOutput, error) {
	return &awsrek.DetectLabelsOutput{Labels: []types.Label{
		{Name: aws.String("Food"), Confidence: aws.Float32(99)},
		{Name: aws.String(f.name), Confidence: aws.Float32(91), Parents: []types.Parent{{Name: aws.String("Food")}}},
	}}, nil
}

type fakeNutrients struct {
	profile model.NutrientProfile
	err     error
	calls   int
}

func (f *fakeNutrients) LookupNutrients(ctx context.Context, name string) (model.NutrientProfile, error) {
	f.calls++
	if f.err != nil {
		return model.NutrientProfile{}, f.err
	}
	return f.profile, nil
}

func TestRekognitionProviderFillsNutrients(t *testing.T) {
	t.Parallel()
	client := &rekognition.Client{API: fakeLabels{name: "Pizza"}}

	p := service.NewRekognitionProvider(client, &fakeNutrients{profile: model.NutrientProfile{Calories: 266, Protein: 11.4, Carbs: 33.3, Fat: 9.7}})
	got, err := newAnalyzer(time.Second, p).Analyze(context.Background(), pngHeader, "image/png")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Name != "Pizza" || got.Nutrients.Calories != 266 || got.Nutrients.Fat != 9.7 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Provider != service.AnalysisProviderRekognition {
		t.Fatalf("unexpected provider %q", got.Provider)
	}

	p = service.NewRekognitionProvider(client, &fakeNutrients{err: errors.New("no match")})
	got, err = newAnalyzer(time.Second, p).Analyze(context.Background(), pngHeader, "image/png")
	if err != nil {
		t.Fatalf("lookup failure should not fail analysis: %v", err)
	}
	if got.Name != "Pizza" || got.Nutrients.Calories != 0 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRekognitionProviderWithoutClientIsUnavailable(t *testing.T) {
	t.Parallel()
	p := service.NewRekognitionProvider(&rekognition.Client{}, nil)
	_, err := newAnalyzer(time.Second, p).Analyze(context.Background(), pngHeader, "image/png")
	var ae *service.AnalysisError
	if !asAnalysis(err, &ae) || ae.Message != locale.For(locale.Thai).AnalysisDisabled {
		t.Fatalf("expected disabled analysis error, got %v", err)
	}
}

func TestNutrientLookupsUsesFirstAnswer(t *testing.T) {
	t.Parallel()
	failing := &fakeNutrients{err: errors.New("down")}
	ok := &fakeNutrients{profile: model.NutrientProfile{Calories: 175}}
	unused := &fakeNutrients{profile: model.NutrientProfile{Calories: 1}}

	got, err := service.NutrientLookups{failing, ok, unused}.LookupNutrients(context.Background(), "Pad Thai")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Calories != 175 || unused.calls != 0 {
		t.Fatalf("got %+v, unused calls %d", got, unused.calls)
	}

	if _, err := (service.NutrientLookups{failing}).LookupNutrients(context.Background(), "x"); err == nil {
		t.Fatal("expected error when every source fails")
	}
	if _, err := (service.NutrientLookups{}).LookupNutrients(context.Background(), "x"); err == nil {
		t.Fatal("expected error with no sources")
	}
}

func TestOpenFoodFactsLookup(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"code":"1","product_name":"Pad Thai","nutriments":{"energy-kcal_100g":175,"fat_100g":5.8}}]}`))
	}))
	defer srv.Close()

	l := service.NewOpenFoodFactsLookup(&openfoodfacts.Client{BaseURL: srv.URL, HTTPClient: srv.Client()})
	got, err := l.LookupNutrients(context.Background(), "Pad Thai")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Calories != 175 || got.Fat != 5.8 || got.Protein != 0 {
		t.Fatalf("unexpected nutrients: %+v", got)
	}
}
