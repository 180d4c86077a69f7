package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/freshness/internal/imaging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewModelUnsupportedType(t *testing.T) {
	_, err := NewModel("tensorflow", Options{})
	assert.EqualError(t, err, "unsupported model type: tensorflow")
}

func TestStubModelFixedScore(t *testing.T) {
	m, err := NewModel("stub", Options{ConfigPath: writeConfig(t, `{"score": 123.4}`)})
	require.NoError(t, err)
	require.NoError(t, m.Load(context.Background()))
	defer m.Close()

	score, err := m.Estimate(context.Background(), imaging.NewTensor())
	require.NoError(t, err)
	assert.Equal(t, 123.4, score)
}

func TestStubModelBrightness(t *testing.T) {
	t.Setenv("STUB_SCORE", "")
	m, err := NewModel("stub", Options{ConfigPath: writeConfig(t, `{}`)})
	require.NoError(t, err)

	tensor := imaging.NewTensor()
	for i := range tensor.Data {
		tensor.Data[i] = 0.5
	}
	score, err := m.Estimate(context.Background(), tensor)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, score, 1e-9)
}

func TestStubConfigFromEnv(t *testing.T) {
	t.Setenv("STUB_SCORE", "42.5")
	cfg := StubConfig{BaseConfig: BaseConfig{ConfigPath: writeConfig(t, `{}`)}}
	require.NoError(t, cfg.Load())
	require.NotNil(t, cfg.Score)
	assert.Equal(t, 42.5, *cfg.Score)
}

func TestONNXConfigDefaultsAndOverride(t *testing.T) {
	m, err := NewModel("onnx", Options{
		ConfigPath: writeConfig(t, `{"model_path": "from-file.onnx"}`),
		ModelPath:  "override.onnx",
	})
	require.NoError(t, err)

	onnx, ok := m.(*ONNXModel)
	require.True(t, ok)
	assert.Equal(t, "override.onnx", onnx.config.ModelPath)
	assert.Equal(t, "input", onnx.config.InputName)
	assert.Equal(t, "output", onnx.config.OutputName)
}

func TestONNXLoadMissingModel(t *testing.T) {
	m, err := NewModel("onnx", Options{
		ConfigPath: writeConfig(t, `{}`),
		ModelPath:  filepath.Join(t.TempDir(), "missing.onnx"),
	})
	require.NoError(t, err)

	assert.Error(t, m.Load(context.Background()))
	_, err = m.Estimate(context.Background(), imaging.NewTensor())
	assert.EqualError(t, err, "model not loaded")
	assert.NoError(t, m.Close())
}

func TestGoogleLoadRequiresProject(t *testing.T) {
	t.Setenv("GOOGLE_PROJECT_ID", "")
	t.Setenv("GOOGLE_LOCATION", "")
	m, err := NewModel("google", Options{ConfigPath: writeConfig(t, `{}`)})
	require.NoError(t, err)

	assert.Error(t, m.Load(context.Background()))
	assert.NoError(t, m.Close())
}

func TestMalformedConfigFile(t *testing.T) {
	_, err := NewModel("stub", Options{ConfigPath: writeConfig(t, `{not json`)})
	assert.Error(t, err)
}

func TestParseScore(t *testing.T) {
	cases := map[string]float64{
		`{"freshness": 87.5}`:                  87.5,
		"```json\n{\"freshness\": 12}\n```":    12,
		" ```\n{\"freshness\": 101.3}\n``` \n": 101.3,
	}
	for in, want := range cases {
		got, err := parseScore(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := parseScore(`{"score": 3}`)
	assert.Error(t, err)
	_, err = parseScore(`fresh!`)
	assert.Error(t, err)
}
