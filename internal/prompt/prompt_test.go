package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"study-stream/internal/models"
)

var testChunks = []models.Chunk{
	{Content: "Paris is the capital of France.", Source: "geography.txt", PageNumber: 3, ChunkID: 7},
	{Content: "France is in western Europe.", Source: "geography.txt", PageNumber: 1, ChunkID: 2},
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.Len(t, msg.Parts, 1)
	part, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestParseTemplateType(t *testing.T) {
	for name, want := range map[string]TemplateType{
		"":        TemplateDefault,
		"default": TemplateDefault,
		"llama":   TemplateLlama,
		"mistral": TemplateMistral,
	} {
		got, err := ParseTemplateType(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTemplateType("gpt")
	assert.Error(t, err)
}

func TestRenderDefault(t *testing.T) {
	spec := Spec{SystemPrompt: "You are a study assistant.", Template: TemplateDefault}
	messages := spec.Render(nil, testChunks, "What is the capital of France?")

	require.Len(t, messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	assert.Equal(t, "You are a study assistant.", textOf(t, messages[0]))

	body := textOf(t, messages[1])
	assert.Contains(t, body, "Paris is the capital of France.")
	assert.Contains(t, body, "[source: geography.txt, page 3]")
	assert.Contains(t, body, "Question: What is the capital of France?")
}

func TestRenderDefault_WithHistory(t *testing.T) {
	spec := Spec{SystemPrompt: "sys", Template: TemplateDefault, UseHistory: true}
	history := []Turn{{Question: "Where is France?", Answer: "Western Europe."}}
	messages := spec.Render(history, testChunks, "And its capital?")

	// system + question + answer + current question
	require.Len(t, messages, 4)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)
	assert.Equal(t, "Where is France?", textOf(t, messages[1]))
	assert.Equal(t, llms.ChatMessageTypeAI, messages[2].Role)
	assert.Equal(t, "Western Europe.", textOf(t, messages[2]))
}

func TestRenderDefault_HistoryDisabled(t *testing.T) {
	spec := Spec{SystemPrompt: "sys", Template: TemplateDefault, UseHistory: false}
	history := []Turn{{Question: "q", Answer: "a"}}
	messages := spec.Render(history, nil, "current")
	require.Len(t, messages, 2)
}

func TestRenderLlama(t *testing.T) {
	spec := Spec{SystemPrompt: "You are helpful.", Template: TemplateLlama}
	messages := spec.Render(nil, testChunks, "capital?")

	require.Len(t, messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[0].Role)
	body := textOf(t, messages[0])
	assert.Contains(t, body, "[INST] <<SYS>>\nYou are helpful.\n<</SYS>>")
	assert.Contains(t, body, "Paris is the capital of France.")
	assert.Contains(t, body, "Question: capital? [/INST]")
}

func TestRenderMistral(t *testing.T) {
	spec := Spec{SystemPrompt: "You are helpful.", Template: TemplateMistral, UseHistory: true}
	history := []Turn{{Question: "prior q", Answer: "prior a"}}
	messages := spec.Render(history, testChunks, "capital?")

	require.Len(t, messages, 1)
	body := textOf(t, messages[0])
	assert.True(t, len(body) > 0)
	assert.Contains(t, body, "<s>[INST] You are helpful.")
	assert.Contains(t, body, "Student: prior q")
	assert.Contains(t, body, "Assistant: prior a")
	assert.Contains(t, body, "[/INST]")
	assert.NotContains(t, body, "<<SYS>>")
}
