// Package config loads the kcal-snap YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/saadjs/kcal-snap/internal/locale"
)

const (
	ProviderGemini      = "gemini"
	ProviderRekognition = "rekognition"

	NutrientSourceUSDA          = "usda"
	NutrientSourceOpenFoodFacts = "openfoodfacts"
)

// Validator is implemented by configs that can check themselves after load.
type Validator interface {
	Validate() error
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	Nutrition NutritionConfig `yaml:"nutrition"`
	Weights   WeightsConfig   `yaml:"weights"`
	Drafts    DraftsConfig    `yaml:"drafts"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Nutrition.Validate(); err != nil {
		return fmt.Errorf("nutrition: %w", err)
	}
	if err := c.Drafts.Validate(); err != nil {
		return fmt.Errorf("drafts: %w", err)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

type AppConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Locale   string     `yaml:"locale"`
	HTTP     HTTPConfig `yaml:"http"`
}

func (c *AppConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Locale, validation.Required, validation.By(func(value any) error {
			if _, ok := locale.Parse(value.(string)); !ok {
				return errors.New("must be th or en")
			}
			return nil
		})),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// LocaleTag returns the normalized locale.
func (c *AppConfig) LocaleTag() locale.Locale {
	l, _ := locale.Parse(c.Locale)
	return l
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

type NutritionConfig struct {
	TDEE float64 `yaml:"tdee"`
}

func (c *NutritionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TDEE, validation.Required, validation.Min(500.0), validation.Max(10000.0)),
	)
}

type WeightsConfig struct {
	SeedSample bool `yaml:"seed_sample"`
}

// DraftsConfig bounds the drafts a client may leave open.
type DraftsConfig struct {
	MaxOpen     int           `yaml:"max_open"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

func (c *DraftsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxOpen, validation.Required, validation.Min(1)),
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Minute)),
	)
}

type AnalysisConfig struct {
	Providers     []string          `yaml:"providers"`
	Timeout       time.Duration     `yaml:"timeout"`
	MaxImageBytes int               `yaml:"max_image_bytes"`
	Gemini        GeminiConfig      `yaml:"gemini"`
	Rekognition   RekognitionConfig `yaml:"rekognition"`
	Nutrients     NutrientsConfig   `yaml:"nutrients"`
}

func (c *AnalysisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Providers, validation.Each(validation.In(ProviderGemini, ProviderRekognition))),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxImageBytes, validation.Required, validation.Min(1024)),
		validation.Field(&c.Rekognition),
		validation.Field(&c.Nutrients),
	)
}

// Enabled reports whether provider is listed.
func (c *AnalysisConfig) Enabled(provider string) bool {
	for _, p := range c.Providers {
		if p == provider {
			return true
		}
	}
	return false
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type RekognitionConfig struct {
	Region        string  `yaml:"region"`
	MaxLabels     int32   `yaml:"max_labels"`
	MinConfidence float32 `yaml:"min_confidence"`
}

// NutrientsConfig lists where nutrients are looked up for foods that a
// provider only names. Sources are tried in order.
type NutrientsConfig struct {
	Sources       []string            `yaml:"sources"`
	USDA          USDAConfig          `yaml:"usda"`
	OpenFoodFacts OpenFoodFactsConfig `yaml:"openfoodfacts"`
}

func (c NutrientsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Sources, validation.Each(validation.In(NutrientSourceUSDA, NutrientSourceOpenFoodFacts))),
	)
}

type USDAConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type OpenFoodFactsConfig struct {
	BaseURL string `yaml:"base_url"`
}

func (c RekognitionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxLabels, validation.Min(int32(1)), validation.Max(int32(100))),
		validation.Field(&c.MinConfidence, validation.Min(float32(0)), validation.Max(float32(100))),
	)
}

func NewDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: slog.LevelInfo,
			Locale:   string(locale.Thai),
			HTTP:     HTTPConfig{Port: 8080},
		},
		Nutrition: NutritionConfig{TDEE: 2000},
		Drafts: DraftsConfig{
			MaxOpen:     8,
			IdleTimeout: 30 * time.Minute,
		},
		Analysis: AnalysisConfig{
			Providers:     []string{ProviderGemini},
			Timeout:       30 * time.Second,
			MaxImageBytes: 8 << 20,
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash",
			},
			Rekognition: RekognitionConfig{
				MaxLabels:     5,
				MinConfidence: 75,
			},
			Nutrients: NutrientsConfig{
				Sources: []string{NutrientSourceUSDA, NutrientSourceOpenFoodFacts},
			},
		},
	}
}

// Load reads filename into target after expanding ${VAR} references. The
// target is validated when it implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// LoadFile builds the application config. A missing file leaves the defaults
// in place; an empty path means no file at all.
func LoadFile(filename string) (*Config, error) {
	cfg := NewDefaultConfig()
	filename = strings.TrimSpace(filename)
	if filename != "" {
		err := Load(filename, cfg)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	fillFromEnv(&c.Analysis.Gemini.APIKey, "GEMINI_API_KEY", "API_KEY")
	fillFromEnv(&c.Analysis.Nutrients.USDA.APIKey, "USDA_API_KEY")
}

// fillFromEnv sets an empty *dst from the first non-empty variable in names.
func fillFromEnv(dst *string, names ...string) {
	if strings.TrimSpace(*dst) != "" {
		return
	}
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
			return
		}
	}
}
