package ml

import (
	"context"
	"errors"
	"fmt"

	"github.com/franckalain/freshness/internal/imaging"
)

// ErrEstimatorFailure marks any failure of the freshness estimator
var ErrEstimatorFailure = errors.New("estimator failure")

// Estimator scores a normalized image. The result is an uncalibrated
// percentage; callers clamp it to [0, 100].
type Estimator interface {
	Estimate(ctx context.Context, tensor *imaging.Tensor) (float64, error)
}

// Model represents a freshness model backend that is loaded once at start
type Model interface {
	Estimator
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// Close releases any resources held by the model
	Close() error
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	// CreateModel creates a new model instance
	CreateModel() (Model, error)
}

// Options carries settings that override the backend configuration file
type Options struct {
	ConfigPath string
	ModelPath  string
}

// NewModel creates a new, not yet loaded, model instance for modelType
func NewModel(modelType string, opts Options) (Model, error) {
	var factory ModelFactory

	switch modelType {
	case "onnx", "local":
		config := ONNXConfig{
			BaseConfig: BaseConfig{
				ConfigPath: opts.ConfigPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load onnx config: %w", err)
		}
		if opts.ModelPath != "" {
			config.ModelPath = opts.ModelPath
		}
		factory = NewONNXModelFactory(config)
	case "google":
		config := GoogleConfig{
			BaseConfig: BaseConfig{
				ConfigPath: opts.ConfigPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Google config: %w", err)
		}
		factory = NewGoogleModelFactory(config)
	case "stub":
		config := StubConfig{
			BaseConfig: BaseConfig{
				ConfigPath: opts.ConfigPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load stub config: %w", err)
		}
		factory = NewStubModelFactory(config)
	default:
		return nil, fmt.Errorf("unsupported model type: %s", modelType)
	}
	return factory.CreateModel()
}
