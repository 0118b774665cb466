package rag

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"study-stream/internal/llmservice"
	"study-stream/internal/models"
	"study-stream/internal/prompt"
)

// Retriever is the similarity-search surface the QA service needs from the
// vector store.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]models.Chunk, error)
}

// Maximum prior turns kept when history is enabled; older turns fall off
// the front of the buffer.
const maxHistoryTurns = 6

// QAService answers questions grounded in the ingested content: retrieve
// the nearest chunks, render the prompt for the configured template,
// invoke the LLM, and return the answer with its source chunks.
type QAService struct {
	retriever Retriever
	llm       llms.Model
	spec      prompt.Spec
	topK      int

	mu      sync.Mutex
	history []prompt.Turn
}

func NewQAService(retriever Retriever, llm llms.Model, spec prompt.Spec, topK int) *QAService {
	return &QAService{retriever: retriever, llm: llm, spec: spec, topK: topK}
}

// Ask runs one retrieval-augmented question. On LLM failure no answer is
// synthesized and the conversation history is left untouched.
func (q *QAService) Ask(ctx context.Context, question string) (*models.QAResult, error) {
	sources, err := q.retriever.SimilaritySearch(ctx, question, q.topK)
	if err != nil {
		return nil, err
	}

	messages := q.spec.Render(q.snapshotHistory(), sources, question)
	answer, err := llmservice.Generate(ctx, q.llm, messages)
	if err != nil {
		return nil, err
	}

	if q.spec.UseHistory {
		q.appendHistory(prompt.Turn{Question: question, Answer: answer})
	}

	log.Debug().Str("question", question).Int("sources", len(sources)).Msg("Answered question")
	return &models.QAResult{Question: question, Answer: answer, Sources: sources}, nil
}

// History returns a copy of the retained conversation turns.
func (q *QAService) History() []prompt.Turn {
	return q.snapshotHistory()
}

func (q *QAService) snapshotHistory() []prompt.Turn {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]prompt.Turn, len(q.history))
	copy(out, q.history)
	return out
}

func (q *QAService) appendHistory(turn prompt.Turn) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.history = append(q.history, turn)
	if len(q.history) > maxHistoryTurns {
		q.history = q.history[len(q.history)-maxHistoryTurns:]
	}
}
