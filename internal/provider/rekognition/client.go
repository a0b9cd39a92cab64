package rekognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// MaxImageBytes is the largest inline image DetectLabels accepts.
const MaxImageBytes = 5 << 20

// DetectLabelsAPI is the part of the Rekognition client used here.
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

type Client struct {
	API           DetectLabelsAPI
	MaxLabels     int32
	MinConfidence float32
}

// FoodLabel is the best food-like label found in an image.
type FoodLabel struct {
	Name       string   `json:"name"`
	Confidence float32  `json:"confidence"`
	Candidates []string `json:"candidates"`
}

// New builds a client from the default AWS credential chain.
func New(ctx context.Context, region string, maxLabels int32, minConfidence float32) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(region) != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Client{
		API:           rekognition.NewFromConfig(cfg),
		MaxLabels:     maxLabels,
		MinConfidence: minConfidence,
	}, nil
}

// generic labels say "this is food" without naming the dish.
var genericLabels = map[string]bool{
	"food":       true,
	"dish":       true,
	"meal":       true,
	"plate":      true,
	"lunch":      true,
	"dinner":     true,
	"breakfast":  true,
	"cuisine":    true,
	"produce":    true,
	"tableware":  true,
	"bowl":       true,
	"platter":    true,
	"food court": true,
}

func (c *Client) IdentifyFood(ctx context.Context, image []byte) (FoodLabel, error) {
	if c.API == nil {
		return FoodLabel{}, fmt.Errorf("rekognition client is not configured")
	}
	if len(image) == 0 {
		return FoodLabel{}, fmt.Errorf("image is empty")
	}
	if len(image) > MaxImageBytes {
		return FoodLabel{}, fmt.Errorf("image is %d bytes, rekognition accepts at most %d", len(image), MaxImageBytes)
	}
	maxLabels := c.MaxLabels
	if maxLabels <= 0 {
		maxLabels = 5
	}
	minConfidence := c.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 75
	}

	out, err := c.API.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(maxLabels),
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return FoodLabel{}, fmt.Errorf("detect labels: %w", err)
	}
	return pickFoodLabel(out.Labels)
}

func pickFoodLabel(labels []types.Label) (FoodLabel, error) {
	var candidates []string
	var best, fallback *types.Label
	for i := range labels {
		l := &labels[i]
		name := strings.TrimSpace(aws.ToString(l.Name))
		if name == "" {
			continue
		}
		candidates = append(candidates, name)
		if genericLabels[strings.ToLower(name)] {
			continue
		}
		if best == nil && hasFoodParent(l) {
			best = l
		}
		if fallback == nil {
			fallback = l
		}
	}
	if best == nil {
		best = fallback
	}
	if best == nil {
		return FoodLabel{}, fmt.Errorf("no food label detected")
	}
	return FoodLabel{
		Name:       strings.TrimSpace(aws.ToString(best.Name)),
		Confidence: aws.ToFloat32(best.Confidence),
		Candidates: candidates,
	}, nil
}

func hasFoodParent(l *types.Label) bool {
	for _, p := range l.Parents {
		switch strings.ToLower(aws.ToString(p.Name)) {
		case "food", "dish", "meal":
			return true
		}
	}
	return false
}
