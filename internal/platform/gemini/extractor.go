package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/scry-ingest/internal/config"
	"github.com/phrazzld/scry-ingest/internal/domain"
	"github.com/phrazzld/scry-ingest/internal/extraction"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models used by the extractor.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Extractor implements extraction.Extractor using the Gemini API.
type Extractor struct {
	logger      *slog.Logger
	models      contentGenerator
	model       string
	temperature float32
	prompt      *template.Template
	readFile    func(string) ([]byte, error)
	now         func() time.Time
}

var _ extraction.Extractor = (*Extractor)(nil)

// NewExtractor creates a Gemini-backed extractor from the LLM configuration.
func NewExtractor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Extractor, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", extraction.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", extraction.ErrInvalidConfig, err)
	}

	return newExtractor(logger, client.Models, cfg)
}

func newExtractor(logger *slog.Logger, models contentGenerator, cfg config.LLMConfig) (*Extractor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", extraction.ErrInvalidConfig)
	}

	return &Extractor{
		logger:      logger.With("component", "gemini_extractor", "model", cfg.ModelName),
		models:      models,
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		prompt:      promptTemplate,
		readFile:    os.ReadFile,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Extract sends the document to Gemini and parses the returned fields.
func (e *Extractor) Extract(ctx context.Context, doc domain.Document) (*domain.Registration, error) {
	data, err := e.readFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", extraction.ErrUnreadableDocument, doc.RelPath, err)
	}

	prompt, err := buildPrompt(e.prompt, promptData{
		FileName: filepath.Base(doc.Path),
		MIMEType: doc.MIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", extraction.ErrExtractionFailed, err)
	}

	temperature := e.temperature
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: data, MIMEType: doc.MIMEType}},
			{Text: prompt},
		},
	}}
	genConfig := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}

	e.logger.DebugContext(ctx, "calling Gemini API",
		"document_id", doc.ID.String(),
		"size_bytes", len(data))

	resp, err := e.models.GenerateContent(ctx, e.model, contents, genConfig)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", extraction.ErrTransientFailure, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	reg, err := e.parseResponse(doc, text)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "registration extracted",
		"document_id", doc.ID.String(),
		"confidence", reg.Confidence)
	return reg, nil
}

// responseText validates the response envelope and joins the text parts of
// the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", extraction.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", extraction.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", extraction.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", extraction.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", extraction.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// parseResponse converts the model's JSON answer into a validated Registration.
func (e *Extractor) parseResponse(doc domain.Document, text string) (*domain.Registration, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response text", extraction.ErrInvalidResponse)
	}

	var parsed ResponseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", extraction.ErrInvalidResponse, err)
	}

	reg := &domain.Registration{
		DocumentID:   doc.ID,
		PlateNumber:  strings.TrimSpace(parsed.PlateNumber),
		VIN:          strings.TrimSpace(parsed.VIN),
		Make:         parsed.Make,
		Model:        parsed.Model,
		Year:         parsed.Year,
		OwnerName:    parsed.OwnerName,
		ExpiryDate:   parsed.ExpiryDate,
		DocumentType: parsed.DocumentType,
		Confidence:   parsed.Confidence,
		ExtractedAt:  e.now(),
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", extraction.ErrInvalidResponse, err)
	}
	return reg, nil
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
