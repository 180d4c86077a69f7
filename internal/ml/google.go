package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/apex/log"
	"google.golang.org/api/option"

	"github.com/franckalain/freshness/internal/imaging"
)

const freshnessPrompt = `Rate the visual freshness of the fruit or vegetable in this photo.
Consider color, texture, bruising, mould, wrinkling and soft spots.
Respond with a single JSON object and nothing else:
{"freshness": <number between 0 and 100, where 100 is perfectly fresh and 0 is fully rotten>}`

// GoogleConfig holds configuration for the Google model
type GoogleConfig struct {
	BaseConfig
	ProjectID       string `json:"project_id"`
	Location        string `json:"location"`
	CredentialsFile string `json:"credentials_file"`
	ModelName       string `json:"model_name"`
}

// Load loads the Google configuration
func (c *GoogleConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "google", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	c.ProjectID = envOr(c.ProjectID, "GOOGLE_PROJECT_ID")
	c.Location = envOr(c.Location, "GOOGLE_LOCATION")
	c.CredentialsFile = envOr(c.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	c.ModelName = envOr(c.ModelName, "GOOGLE_MODEL_NAME")
	if c.ModelName == "" {
		c.ModelName = "gemini-1.5-flash"
	}

	return nil
}

// GoogleModel implements the Model interface with a Vertex AI vision model
type GoogleModel struct {
	config GoogleConfig
	client *genai.Client
	model  *genai.GenerativeModel
}

// GoogleModelFactory implements ModelFactory for Google models
type GoogleModelFactory struct {
	config GoogleConfig
}

// NewGoogleModelFactory creates a new Google model factory
func NewGoogleModelFactory(config GoogleConfig) *GoogleModelFactory {
	return &GoogleModelFactory{config: config}
}

// CreateModel creates a new Google model instance
func (f *GoogleModelFactory) CreateModel() (Model, error) {
	return &GoogleModel{
		config: f.config,
	}, nil
}

// Load initializes the Google model
func (m *GoogleModel) Load(ctx context.Context) error {
	if m.config.ProjectID == "" || m.config.Location == "" {
		return errors.New("google project id and location are required")
	}

	opts := []option.ClientOption{}
	if m.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(m.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, m.config.ProjectID, m.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	m.client = client
	m.model = client.GenerativeModel(m.config.ModelName)
	m.model.SetTemperature(0)
	return nil
}

// Estimate sends the normalized image to the model and parses its score
func (m *GoogleModel) Estimate(ctx context.Context, tensor *imaging.Tensor) (float64, error) {
	if m.model == nil {
		return 0, errors.New("model not loaded")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, tensor.Image(), &jpeg.Options{Quality: 95}); err != nil {
		return 0, fmt.Errorf("failed to encode image: %w", err)
	}

	resp, err := m.model.GenerateContent(ctx, genai.Text(freshnessPrompt), genai.ImageData("jpeg", buf.Bytes()))
	if err != nil {
		return 0, fmt.Errorf("failed to call ai: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return 0, errors.New("no response generated")
	}
	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return 0, errors.New("no content in response")
	}

	text, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return 0, fmt.Errorf("unexpected response part %T", candidate.Content.Parts[0])
	}

	score, err := parseScore(string(text))
	if err != nil {
		return 0, err
	}
	log.WithField("score", score).Debug("ml.google.estimate")
	return score, nil
}

// Close closes the Vertex AI client
func (m *GoogleModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// parseScore extracts the freshness value from a JSON reply, tolerating a
// markdown code fence around it.
func parseScore(text string) (float64, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var output struct {
		Freshness *float64 `json:"freshness"`
	}
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		return 0, fmt.Errorf("failed to parse model response: %w while parsing %s", err, text)
	}
	if output.Freshness == nil {
		return 0, errors.New("missing required field 'freshness' in response")
	}
	return *output.Freshness, nil
}
