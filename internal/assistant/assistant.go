package assistant

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"study-stream/internal/db"
	"study-stream/internal/filetype"
	"study-stream/internal/models"
	"study-stream/internal/parser"
	"study-stream/internal/task"
)

// ChunkStore is the write surface of the vector store.
type ChunkStore interface {
	AddFileChunks(ctx context.Context, chunks []models.Chunk) error
}

// Answerer is the question surface of the QA service.
type Answerer interface {
	Ask(ctx context.Context, question string) (*models.QAResult, error)
}

// MessageLog persists the conversation so it survives restarts.
type MessageLog interface {
	CreateMessage(ctx context.Context, msg *db.Message) error
	RecentMessages(ctx context.Context, n int) ([]*db.Message, error)
}

// Assistant coordinates ingestion (classify -> split -> embed -> store)
// and querying for the study shell. Errors from the pipeline are recovered
// here and delivered through task callbacks, never thrown across
// goroutines; document status is always settled to PROCESSED or back to
// NEW.
type Assistant struct {
	splitter *parser.Splitter
	store    ChunkStore
	qa       Answerer
	repo     db.DocumentRepo
	messages MessageLog

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func New(splitter *parser.Splitter, store ChunkStore, qa Answerer, repo db.DocumentRepo, messages MessageLog) *Assistant {
	return &Assistant{
		splitter: splitter,
		store:    store,
		qa:       qa,
		repo:     repo,
		messages: messages,
		inFlight: make(map[int64]struct{}),
	}
}

// Ingest processes one document synchronously. It must be called from a
// worker context; the interactive layer should use IngestAsync.
func (a *Assistant) Ingest(ctx context.Context, documentID int64) error {
	if !a.acquire(documentID) {
		return fmt.Errorf("%w: document %d", models.ErrIngestInProgress, documentID)
	}
	defer a.release(documentID)
	return a.ingest(ctx, documentID)
}

// IngestAsync claims the document's in-flight marker before dispatching,
// so a second request while one is running is rejected immediately instead
// of starting a second embedding run.
func (a *Assistant) IngestAsync(ctx context.Context, documentID int64) (*task.Task[models.DocumentStatus], error) {
	if !a.acquire(documentID) {
		return nil, fmt.Errorf("%w: document %d", models.ErrIngestInProgress, documentID)
	}
	t := task.Run(func() (models.DocumentStatus, error) {
		defer a.release(documentID)
		if err := a.ingest(ctx, documentID); err != nil {
			return models.StatusNew, err
		}
		return models.StatusProcessed, nil
	})
	return t, nil
}

// Ask answers one question against the ingested content. A successful
// exchange is recorded as a question/answer message pair; a failed call
// leaves no trace in the conversation log.
func (a *Assistant) Ask(ctx context.Context, question string) (*models.QAResult, error) {
	result, err := a.qa.Ask(ctx, question)
	if err != nil {
		return nil, err
	}
	a.recordTurn(ctx, question, result.Answer)
	return result, nil
}

// AskAsync runs the question on a worker; the result or error arrives via
// the task handle.
func (a *Assistant) AskAsync(ctx context.Context, question string) *task.Task[*models.QAResult] {
	return task.Run(func() (*models.QAResult, error) {
		return a.Ask(ctx, question)
	})
}

// Transcript returns the last n recorded messages in chronological order.
func (a *Assistant) Transcript(ctx context.Context, n int) ([]*db.Message, error) {
	return a.messages.RecentMessages(ctx, n)
}

// recordTurn is best-effort: a logging failure must not fail the answer
// the user already has.
func (a *Assistant) recordTurn(ctx context.Context, question, answer string) {
	for _, msg := range []*db.Message{
		{Type: db.MessageTypeQuestion, Content: question},
		{Type: db.MessageTypeAnswer, Content: answer},
	} {
		if err := a.messages.CreateMessage(ctx, msg); err != nil {
			log.Warn().Err(err).Msg("Failed to record conversation message")
			return
		}
	}
}

func (a *Assistant) ingest(ctx context.Context, documentID int64) error {
	doc, err := a.repo.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	fileType, ok := filetype.FromFileName(doc.FilePath)
	if !ok {
		// Rejected before any I/O; the document never leaves NEW.
		return fmt.Errorf("%w: %s", models.ErrUnsupportedFileType, doc.FilePath)
	}

	if err := a.repo.UpdateStatus(ctx, documentID, models.StatusInProgress); err != nil {
		return err
	}

	if err := a.process(ctx, doc, fileType); err != nil {
		a.revert(ctx, documentID)
		return err
	}

	if err := a.repo.UpdateStatus(ctx, documentID, models.StatusProcessed); err != nil {
		a.revert(ctx, documentID)
		return err
	}
	log.Info().Int64("document", documentID).Str("file", doc.FilePath).Msg("Document processed")
	return nil
}

func (a *Assistant) process(ctx context.Context, doc *db.Document, fileType filetype.FileType) error {
	chunks, err := a.splitter.Split(doc.FilePath, fileType)
	if err != nil {
		return err
	}
	return a.store.AddFileChunks(ctx, chunks)
}

// revert puts a failed document back to NEW so it is never left stuck
// IN_PROGRESS.
func (a *Assistant) revert(ctx context.Context, documentID int64) {
	if err := a.repo.UpdateStatus(ctx, documentID, models.StatusNew); err != nil {
		log.Error().Err(err).Int64("document", documentID).Msg("Failed to revert document status")
	}
}

func (a *Assistant) acquire(documentID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inFlight[documentID]; busy {
		return false
	}
	a.inFlight[documentID] = struct{}{}
	return true
}

func (a *Assistant) release(documentID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inFlight, documentID)
}
