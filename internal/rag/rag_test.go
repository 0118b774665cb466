package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"study-stream/internal/models"
	"study-stream/internal/prompt"
)

type stubRetriever struct {
	chunks []models.Chunk
	err    error
	gotK   int
}

func (r *stubRetriever) SimilaritySearch(_ context.Context, _ string, k int) ([]models.Chunk, error) {
	r.gotK = k
	return r.chunks, r.err
}

type stubLLM struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (l *stubLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	l.messages = messages
	if l.err != nil {
		return nil, l.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: l.answer}}}, nil
}

func (l *stubLLM) Call(ctx context.Context, promptText string, options ...llms.CallOption) (string, error) {
	response, err := l.GenerateContent(ctx, []llms.MessageContent{}, options...)
	if err != nil {
		return "", err
	}
	return response.Choices[0].Content, nil
}

func TestAsk_ReturnsAnswerWithSources(t *testing.T) {
	retriever := &stubRetriever{chunks: []models.Chunk{
		{Content: "Paris is the capital of France.", Source: "geo.txt", ChunkID: 1},
	}}
	llm := &stubLLM{answer: "The capital of France is Paris."}
	spec := prompt.Spec{SystemPrompt: "sys", Template: prompt.TemplateDefault}
	service := NewQAService(retriever, llm, spec, 4)

	result, err := service.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, 4, retriever.gotK)
	assert.Equal(t, "The capital of France is Paris.", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "geo.txt", result.Sources[0].Source)

	// The retrieved chunk must be part of the rendered prompt.
	var rendered string
	for _, message := range llm.messages {
		for _, part := range message.Parts {
			if text, ok := part.(llms.TextContent); ok {
				rendered += text.Text
			}
		}
	}
	assert.Contains(t, rendered, "Paris is the capital of France.")
}

func TestAsk_LLMFailureDoesNotFabricateAnswer(t *testing.T) {
	retriever := &stubRetriever{chunks: []models.Chunk{{Content: "c", Source: "s"}}}
	llm := &stubLLM{err: errors.New("connection timed out")}
	spec := prompt.Spec{SystemPrompt: "sys", UseHistory: true}
	service := NewQAService(retriever, llm, spec, 4)

	result, err := service.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrLLMInvocation))
	assert.Nil(t, result)
	// A failed question must not enter the conversation history.
	assert.Empty(t, service.History())
}

func TestAsk_RetrieverFailurePropagates(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("store offline")}
	service := NewQAService(retriever, &stubLLM{answer: "x"}, prompt.Spec{}, 4)

	_, err := service.Ask(context.Background(), "q")
	require.Error(t, err)
}

func TestAsk_HistoryGrowsAndIsCapped(t *testing.T) {
	retriever := &stubRetriever{}
	llm := &stubLLM{answer: "a"}
	spec := prompt.Spec{SystemPrompt: "sys", UseHistory: true}
	service := NewQAService(retriever, llm, spec, 2)

	for i := 0; i < maxHistoryTurns+3; i++ {
		_, err := service.Ask(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.Len(t, service.History(), maxHistoryTurns)
}

func TestAsk_HistoryDisabledKeepsNothing(t *testing.T) {
	service := NewQAService(&stubRetriever{}, &stubLLM{answer: "a"}, prompt.Spec{UseHistory: false}, 2)
	_, err := service.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, service.History())
}
