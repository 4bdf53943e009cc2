package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/utils"
)

// contentGenerator is the part of *genai.GenerativeModel the client uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	classifier    contentGenerator
	generator     contentGenerator
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// ResponseSchema constrains classification answers to the three required fields
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			core.FieldCompanyName: {
				Type:        genai.TypeString,
				Description: "Name of the company that sent the email",
			},
			core.FieldInteractionType: {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   core.InteractionEnum,
			},
			core.FieldWebsite: {
				Type:        genai.TypeString,
				Description: "Company website domain",
			},
		},
		Required: core.RequiredFields,
	}
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	classifier := client.GenerativeModel(modelName)
	classifier.SetTemperature(temperature)
	classifier.SetTopP(topP)
	classifier.SetMaxOutputTokens(int32(maxTokens))
	classifier.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(core.SystemInstruction)},
	}
	classifier.ResponseMIMEType = "application/json"
	classifier.ResponseSchema = ResponseSchema()

	// Free-form prompts (contact lookup) must not be forced into the schema
	generator := client.GenerativeModel(modelName)
	generator.SetTemperature(temperature)
	generator.SetMaxOutputTokens(int32(maxTokens))

	c := newClient(classifier, generator, modelName, maxBodySize, logger, textProcessor)
	c.client = client
	return c, nil
}

func newClient(classifier, generator contentGenerator, modelName string, maxBodySize int, logger *zap.Logger, textProcessor *utils.TextProcessor) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	return &GeminiClient{
		classifier:    classifier,
		generator:     generator,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify asks the model for company, interaction type and website
func (c *GeminiClient) Classify(ctx context.Context, body string) (*core.ClassificationResult, error) {
	prompt := core.BuildPrompt(c.textProcessor.ProcessText(body, c.maxBodySize))

	text, err := c.call(ctx, c.classifier, prompt)
	if err != nil {
		return nil, err
	}

	result, err := core.ParseClassification(text)
	if err != nil {
		c.logger.Debug("Unparseable Gemini response",
			zap.String("model", c.modelName),
			zap.String("response", text))
		return nil, err
	}
	return result, nil
}

// Generate answers a free-form prompt
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := c.call(ctx, c.generator, c.textProcessor.ProcessText(prompt, c.maxBodySize))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *GeminiClient) call(ctx context.Context, model contentGenerator, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %w", core.ErrRateLimited, err)
		}
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func isQuotaError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}
