package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/apex/log"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/franckalain/freshness/internal/imaging"
)

// ONNXConfig holds configuration for the local ONNX model
type ONNXConfig struct {
	BaseConfig
	ModelPath   string `json:"model_path"`
	LibraryPath string `json:"library_path"`
	InputName   string `json:"input_name"`
	OutputName  string `json:"output_name"`
}

// Load loads the ONNX configuration
func (c *ONNXConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "onnx", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	c.ModelPath = envOr(c.ModelPath, "ONNX_MODEL_PATH")
	c.LibraryPath = envOr(c.LibraryPath, "ONNXRUNTIME_LIB_PATH")
	if c.InputName == "" {
		c.InputName = "input"
	}
	if c.OutputName == "" {
		c.OutputName = "output"
	}
	return nil
}

// ONNXModel runs the freshness regressor locally with onnxruntime. The
// session reuses pre-allocated tensors, so runs are serialized.
type ONNXModel struct {
	config ONNXConfig

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// ONNXModelFactory implements ModelFactory for ONNX models
type ONNXModelFactory struct {
	config ONNXConfig
}

// NewONNXModelFactory creates a new ONNX model factory
func NewONNXModelFactory(config ONNXConfig) *ONNXModelFactory {
	return &ONNXModelFactory{config: config}
}

// CreateModel creates a new ONNX model instance
func (f *ONNXModelFactory) CreateModel() (Model, error) {
	return &ONNXModel{config: f.config}, nil
}

// Load initializes the onnxruntime environment and the inference session
func (m *ONNXModel) Load(ctx context.Context) error {
	if m.config.ModelPath == "" {
		return errors.New("onnx model path is not set")
	}
	if _, err := os.Stat(m.config.ModelPath); err != nil {
		return fmt.Errorf("onnx model not found: %w", err)
	}

	if m.config.LibraryPath != "" {
		ort.SetSharedLibraryPath(m.config.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, imaging.Size, imaging.Size, imaging.Channels))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(m.config.ModelPath,
		[]string{m.config.InputName}, []string{m.config.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}

	m.session = session
	m.inputTensor = inputTensor
	m.outputTensor = outputTensor

	log.WithField("model_path", m.config.ModelPath).Info("ml.onnx.loaded")
	return nil
}

// Estimate runs one inference and returns the raw regression output
func (m *ONNXModel) Estimate(ctx context.Context, tensor *imaging.Tensor) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0, errors.New("model not loaded")
	}

	input := m.inputTensor.GetData()
	if len(tensor.Data) != len(input) {
		return 0, fmt.Errorf("expected %d input values, got %d", len(input), len(tensor.Data))
	}
	copy(input, tensor.Data)

	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}

	out := m.outputTensor.GetData()
	if len(out) == 0 {
		return 0, errors.New("empty model output")
	}
	return float64(out[0]), nil
}

// Close destroys the session, its tensors and the onnxruntime environment
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inputTensor != nil {
		m.inputTensor.Destroy()
		m.inputTensor = nil
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
		return ort.DestroyEnvironment()
	}
	return nil
}
