package vectordb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"study-stream/internal/models"
)

// Store owns one named persistent vector collection. It is opened once per
// application run and shared by all ingestion and query calls; writes are
// serialized so two concurrent file ingests cannot interleave a partial
// upsert.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	modelName  string

	mu sync.Mutex // guards writes to the collection
}

const compress = false

// Open opens (or creates) the persistent collection under persistDir.
// The embedding model is fixed for the lifetime of the collection; the
// model name is recorded in the collection metadata.
func Open(embedder embeddings.Embedder, modelName, collectionName, persistDir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(persistDir, compress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s := &Store{db: db, embedder: embedder, modelName: modelName}
	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	collection, err := db.GetOrCreateCollection(
		collectionName,
		map[string]string{"embedding_model": modelName},
		embeddingFunc,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", models.ErrStoreUnavailable, collectionName, err)
	}
	s.collection = collection

	log.Info().
		Str("collection", collectionName).
		Str("persist_dir", persistDir).
		Str("embedding_model", modelName).
		Int("documents", collection.Count()).
		Msg("Opened vector store")
	return s, nil
}

// AddFileChunks embeds and upserts all chunks of one file. The call is
// all-or-nothing from the caller's point of view: every chunk is embedded
// before anything is written, and a failed upsert removes whatever part of
// the file made it into the collection.
func (s *Store) AddFileChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	source := chunks[0].Source

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("%w: chunk %d of %s: %v", models.ErrEmbeddingBackend, chunk.ChunkID, source, err)
		}
		docs = append(docs, chromem.Document{
			ID:        fmt.Sprintf("%s-%d", chunk.Source, chunk.ChunkID),
			Content:   chunk.Content,
			Embedding: vector,
			Metadata: map[string]string{
				"source": chunk.Source,
				"page":   strconv.Itoa(chunk.PageNumber),
				"chunk":  strconv.Itoa(chunk.ChunkID),
			},
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		// Roll back any chunks of this file that were written before the
		// failure, so the file is never half-ingested.
		if delErr := s.collection.Delete(ctx, map[string]string{"source": source}, nil); delErr != nil {
			log.Error().Err(delErr).Str("file", source).Msg("Failed to roll back partial upsert")
		}
		return fmt.Errorf("%w: upsert for %s: %v", models.ErrEmbeddingBackend, source, err)
	}

	log.Debug().Str("file", source).Int("chunks", len(docs)).Msg("Added file to vector store")
	return nil
}

// SimilaritySearch embeds the query with the collection's model and
// returns the k nearest chunks, nearest first. k is clamped to the range
// [1, collection size]; chunks at equal distance keep their insertion
// order within the file.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k < 1 {
		k = 1
	}
	if k > count {
		k = count
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %v", models.ErrEmbeddingBackend, err)
	}

	results, err := s.collection.QueryEmbedding(ctx, queryVector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Metadata["source"] != results[j].Metadata["source"] {
			return results[i].Metadata["source"] < results[j].Metadata["source"]
		}
		ci, _ := strconv.Atoi(results[i].Metadata["chunk"])
		cj, _ := strconv.Atoi(results[j].Metadata["chunk"])
		return ci < cj
	})

	chunks := make([]models.Chunk, 0, len(results))
	for _, result := range results {
		page, _ := strconv.Atoi(result.Metadata["page"])
		chunkID, _ := strconv.Atoi(result.Metadata["chunk"])
		chunks = append(chunks, models.Chunk{
			Content:    result.Content,
			Source:     result.Metadata["source"],
			PageNumber: page,
			ChunkID:    chunkID,
		})
	}
	return chunks, nil
}

// Count reports the number of embedding records in the collection.
func (s *Store) Count() int {
	return s.collection.Count()
}

// DeleteCollection drops the whole collection from the store.
func (s *Store) DeleteCollection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}
