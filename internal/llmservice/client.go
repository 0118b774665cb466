package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"study-stream/internal/config"
	"study-stream/internal/models"
)

// NewClient builds the chat model client for the configured provider.
func NewClient(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Initializing LLM client")

	switch llmConfig.Provider {
	case "ollama", "":
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case "openai":
		return openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", llmConfig.Provider)
	}
}

// Generate invokes the model and returns the first choice. Any transport
// or model failure is reported as an LLM invocation error; no answer is
// ever synthesized in its place.
func Generate(ctx context.Context, llm llms.Model, messages []llms.MessageContent) (string, error) {
	response, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrLLMInvocation, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", models.ErrLLMInvocation)
	}
	return response.Choices[0].Content, nil
}
