package models

import "errors"

// Errors shared across the ingestion and query layers. Wrapped with %w at
// the point of failure so callers can classify with errors.Is.
var (
	// ErrUnsupportedFileType indicates the file extension is not in the
	// supported set; ingestion never starts.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrIngestion indicates the file could not be read or parsed, even by
	// the generic fallback splitter.
	ErrIngestion = errors.New("ingestion failed")

	// ErrStoreUnavailable indicates the vector store could not be opened.
	// Fatal at startup: the application cannot run without its knowledge base.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrEmbeddingBackend indicates a failure while computing embeddings or
	// upserting them; the whole add is treated as failed.
	ErrEmbeddingBackend = errors.New("embedding backend failure")

	// ErrLLMInvocation indicates the LLM could not produce an answer.
	ErrLLMInvocation = errors.New("llm invocation failed")

	// ErrIngestInProgress indicates the document is already being ingested.
	ErrIngestInProgress = errors.New("ingestion already in progress")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
