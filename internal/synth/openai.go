package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is the default chat model. Structured output requires a model
// with JSON schema support.
const DefaultModel = openai.ChatModelGPT4o2024_08_06

const systemPrompt = "You answer user's questions based on the relevant text and links provided to you."

const promptTemplate = `You are an intelligent assistant. Using the following information from various sources, answer the user's query comprehensively and cite the sources you used.

### User Query:
%s

### Information:
%s

### Response Format:
Provide your answer under the "answer" field and list all the sources you used under the "citations" field.

Example:
{
  "answer": "Your comprehensive answer here.",
  "citations": [
    "https://example.com/source1",
    "https://example.com/source2"
  ]
}
`

// answerSchema constrains the model output to the Answer shape.
var answerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"answer": map[string]any{
			"type": "string",
		},
		"citations": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"answer", "citations"},
	"additionalProperties": false,
}

// OpenAIConfig configures the OpenAI-backed synthesizer.
type OpenAIConfig struct {
	APIKey string
	// Model overrides DefaultModel.
	Model string
	// BaseURL overrides the OpenAI endpoint, mainly for tests.
	BaseURL string
}

// OpenAI synthesizes answers through the OpenAI chat completions API with a
// strict JSON schema response format.
type OpenAI struct {
	client   openai.Client
	model    string
	logger   *slog.Logger
	validate *validator.Validate
}

var _ Synthesizer = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI synthesizer.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		logger:   logger,
		validate: validator.New(),
	}, nil
}

// Synthesize sends the query and context to the model and parses the
// structured answer. Any failure is returned as a *SynthesisError.
func (o *OpenAI) Synthesize(ctx context.Context, query, sourceContext string) (*Answer, error) {
	prompt := fmt.Sprintf(promptTemplate, query, sourceContext)

	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "response",
					Schema: answerSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &SynthesisError{Model: o.model, Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &SynthesisError{Model: o.model, Err: fmt.Errorf("no choices in response")}
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, &SynthesisError{Model: o.model, Err: fmt.Errorf("model refused: %s", choice.Message.Refusal)}
	}

	var answer Answer
	if err := json.Unmarshal([]byte(choice.Message.Content), &answer); err != nil {
		return nil, &SynthesisError{Model: o.model, Err: fmt.Errorf("parse structured output: %w", err)}
	}
	if err := o.validate.Struct(&answer); err != nil {
		return nil, &SynthesisError{Model: o.model, Err: fmt.Errorf("invalid structured output: %w", err)}
	}

	o.logger.Debug("synthesis completed",
		"model", o.model,
		"citations", len(answer.Citations),
		"duration", time.Since(start))

	return &answer, nil
}
