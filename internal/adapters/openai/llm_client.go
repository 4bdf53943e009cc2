package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/utils"
)

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ResponseSchema is the strict JSON schema for classification answers
func ResponseSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			core.FieldCompanyName: {
				Type:        jsonschema.String,
				Description: "Name of the company that sent the email",
			},
			core.FieldInteractionType: {
				Type: jsonschema.String,
				Enum: core.InteractionEnum,
			},
			core.FieldWebsite: {
				Type:        jsonschema.String,
				Description: "Company website domain",
			},
		},
		Required:             core.RequiredFields,
		AdditionalProperties: false,
	}
}

// Classify asks the model for company, interaction type and website
func (c *OpenAIClient) Classify(ctx context.Context, body string) (*core.ClassificationResult, error) {
	prompt := core.BuildPrompt(c.textProcessor.ProcessText(body, c.maxBodySize))

	req := c.request(core.SystemInstruction, prompt)
	schema := ResponseSchema()
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   "email_classification",
			Schema: &schema,
			Strict: true,
		},
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := core.ParseClassification(text)
	if err != nil {
		c.logger.Debug("Unparseable OpenAI response",
			zap.String("model", c.modelName),
			zap.String("response", text))
		return nil, err
	}
	return result, nil
}

// Generate answers a free-form prompt
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := c.request("", c.textProcessor.ProcessText(prompt, c.maxBodySize))
	text, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *OpenAIClient) request(system, prompt string) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	return openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimit(err) {
			return "", fmt.Errorf("%w: %w", core.ErrRateLimited, err)
		}
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests
}
