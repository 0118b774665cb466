package models

// Chunk represents an ordered fragment of source text produced by the
// document parser and consumed by the embedding store. Immutable once
// produced.
type Chunk struct {
	Content    string
	Source     string
	PageNumber int
	ChunkID    int
}

// QAResult is the transient outcome of one retrieval-augmented question:
// the generated answer plus the chunks it was grounded on, nearest first.
type QAResult struct {
	Question string
	Answer   string
	Sources  []Chunk
}
