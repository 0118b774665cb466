package prompt

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"study-stream/internal/models"
)

// TemplateType selects the token layout an LLM family expects.
type TemplateType int

const (
	TemplateDefault TemplateType = iota
	TemplateLlama
	TemplateMistral
)

// ParseTemplateType maps a configuration string to a TemplateType.
func ParseTemplateType(name string) (TemplateType, error) {
	switch name {
	case "", "default":
		return TemplateDefault, nil
	case "llama":
		return TemplateLlama, nil
	case "mistral":
		return TemplateMistral, nil
	default:
		return 0, fmt.Errorf("unknown prompt template: %s", name)
	}
}

func (t TemplateType) String() string {
	switch t {
	case TemplateLlama:
		return "llama"
	case TemplateMistral:
		return "mistral"
	default:
		return "default"
	}
}

// Spec is the immutable prompt configuration of a QA service instance.
type Spec struct {
	SystemPrompt string
	Template     TemplateType
	UseHistory   bool
}

// Turn is one completed question/answer exchange kept for history.
type Turn struct {
	Question string
	Answer   string
}

// Render produces the message sequence for one question: system
// instructions, optional prior turns, the retrieved chunks tagged with
// their sources, and the question itself, in the layout the selected
// template requires.
func (s Spec) Render(history []Turn, chunks []models.Chunk, question string) []llms.MessageContent {
	context := renderContext(chunks)
	switch s.Template {
	case TemplateLlama:
		return []llms.MessageContent{human(s.renderLlama(history, context, question))}
	case TemplateMistral:
		return []llms.MessageContent{human(s.renderMistral(history, context, question))}
	default:
		return s.renderDefault(history, context, question)
	}
}

func (s Spec) renderDefault(history []Turn, context, question string) []llms.MessageContent {
	messages := []llms.MessageContent{{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextContent{Text: s.SystemPrompt}},
	}}
	if s.UseHistory {
		for _, turn := range history {
			messages = append(messages,
				human(turn.Question),
				llms.MessageContent{
					Role:  llms.ChatMessageTypeAI,
					Parts: []llms.ContentPart{llms.TextContent{Text: turn.Answer}},
				})
		}
	}
	messages = append(messages, human(fmt.Sprintf("Context:\n%s\nQuestion: %s", context, question)))
	return messages
}

// Llama instruction format: system prompt inside <<SYS>> markers, the
// whole turn wrapped in [INST] ... [/INST].
func (s Spec) renderLlama(history []Turn, context, question string) string {
	var b strings.Builder
	b.WriteString("[INST] <<SYS>>\n")
	b.WriteString(s.SystemPrompt)
	b.WriteString("\n<</SYS>>\n\n")
	if s.UseHistory {
		b.WriteString(renderHistory(history))
	}
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString(" [/INST]")
	return b.String()
}

// Mistral instruction format: no system marker, one [INST] block after the
// beginning-of-sequence token.
func (s Spec) renderMistral(history []Turn, context, question string) string {
	var b strings.Builder
	b.WriteString("<s>[INST] ")
	b.WriteString(s.SystemPrompt)
	b.WriteString("\n\n")
	if s.UseHistory {
		b.WriteString(renderHistory(history))
	}
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString(" [/INST]")
	return b.String()
}

// renderContext tags every retrieved chunk with its source so answers can
// cite where they came from.
func renderContext(chunks []models.Chunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "[source: %s, page %d]\n%s\n\n", chunk.Source, chunk.PageNumber, chunk.Content)
	}
	return b.String()
}

func renderHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Prior conversation:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "Student: %s\nAssistant: %s\n", turn.Question, turn.Answer)
	}
	b.WriteString("\n")
	return b.String()
}

func human(text string) llms.MessageContent {
	return llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: text}},
	}
}
