package predict

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tariffdesk/tariffdesk/internal/platform/config"
	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Config selects the report model.
type Config struct {
	APIKey string `env:"TARIFFDESK_GEMINI_API_KEY"`
	Model  string `env:"TARIFFDESK_GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
}

// LoadConfigFromEnv reads predictor configuration.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Predictor writes a tariff impact report for a document.
type Predictor interface {
	Predict(ctx context.Context, upload Upload) (string, error)
}

// New returns a Gemini predictor, or one that always reports the feature
// as unavailable when no API key is configured.
func New(ctx context.Context, cfg Config) (Predictor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Unavailable{}, nil
	}
	return NewGemini(ctx, cfg)
}

// Unavailable is the predictor used without credentials.
type Unavailable struct{}

// Predict always fails with a 503 error.
func (Unavailable) Predict(context.Context, Upload) (string, error) {
	return "", apperrors.New(apperrors.CodePredictionUnavailable, "prediction is not configured")
}

// Gemini sends documents to the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed predictor.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Predict sends the PDF inline with the report prompt and returns the
// model's text.
func (g *Gemini) Predict(ctx context.Context, upload Upload) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(upload.Data, "application/pdf"),
			genai.NewPartFromText(Prompt(upload.Country)),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodePredictionUnavailable, "prediction service request failed", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", apperrors.New(apperrors.CodePredictionUnavailable, "prediction service returned no report")
	}
	return text, nil
}

// Prompt is the instruction sent alongside a document.
func Prompt(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		country = "the importing country named in the document"
	}
	var b strings.Builder
	b.WriteString("You are a trade compliance analyst. Read the attached trade document ")
	b.WriteString("and write a concise tariff impact report for ")
	b.WriteString(country)
	b.WriteString(". List the goods and their likely HTS codes, the applicable ad valorem ")
	b.WriteString("and specific duty rates, the estimated duty owed, and any recent tariff ")
	b.WriteString("changes that affect the shipment. Use plain text headings.")
	return b.String()
}
