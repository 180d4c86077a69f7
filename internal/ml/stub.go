package ml

import (
	"context"
	"os"
	"strconv"

	"github.com/franckalain/freshness/internal/imaging"
)

// StubConfig holds configuration for the deterministic stub model
type StubConfig struct {
	BaseConfig
	// Score, when set, is returned for every image
	Score *float64 `json:"score"`
}

// Load loads the stub configuration
func (c *StubConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "stub", c); err != nil {
		return err
	}
	if c.Score == nil {
		if v, err := strconv.ParseFloat(os.Getenv("STUB_SCORE"), 64); err == nil {
			c.Score = &v
		}
	}
	return nil
}

// StubModel is a no-network estimator for local runs and CI. Without a fixed
// score it rates an image by its mean brightness, so output is stable per input.
type StubModel struct {
	config StubConfig
}

// StubModelFactory implements ModelFactory for stub models
type StubModelFactory struct {
	config StubConfig
}

// NewStubModelFactory creates a new stub model factory
func NewStubModelFactory(config StubConfig) *StubModelFactory {
	return &StubModelFactory{config: config}
}

// CreateModel creates a new stub model instance
func (f *StubModelFactory) CreateModel() (Model, error) {
	return &StubModel{config: f.config}, nil
}

func (m *StubModel) Load(ctx context.Context) error { return nil }

func (m *StubModel) Estimate(ctx context.Context, tensor *imaging.Tensor) (float64, error) {
	if m.config.Score != nil {
		return *m.config.Score, nil
	}
	return tensor.Mean() * 100, nil
}

func (m *StubModel) Close() error { return nil }
