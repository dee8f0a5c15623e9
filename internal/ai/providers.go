package ai

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/openai"
)

// Default model per provider. Overridable through config.
const (
	defaultGeminiModel  = "gemini-2.5-flash"
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultMistralModel = "mistral-small-latest"
)

// llmProvider adapts a langchaingo model to the Provider interface.
type llmProvider struct {
	model llms.Model
}

func (p *llmProvider) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	var callOpts []llms.CallOption
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	return llms.GenerateFromSinglePrompt(ctx, p.model, prompt, callOpts...)
}

// NewGeminiProvider builds the Google Gemini backend.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &llmProvider{model: llm}, nil
}

// NewOpenAIProvider builds the OpenAI backend.
func NewOpenAIProvider(apiKey, model string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &llmProvider{model: llm}, nil
}

// NewMistralProvider builds the Mistral backend.
func NewMistralProvider(apiKey, model string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("mistral api key is required")
	}
	if model == "" {
		model = defaultMistralModel
	}
	llm, err := mistral.New(
		mistral.WithAPIKey(apiKey),
		mistral.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &llmProvider{model: llm}, nil
}
