package indexer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"ragstore/internal/models"
	"ragstore/internal/vectordb"
)

// Embedder is the slice of the embedding capability the indexer needs.
// EmbedDocuments returns vectors in the same order as the input texts.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index is the write side of the vector index.
type Index interface {
	Upsert(ctx context.Context, collection string, docs []vectordb.Document) error
}

// Metadata keys stored alongside every indexed chunk.
const (
	MetaSource = "source"
	MetaPage   = "page"
	MetaSeq    = "seq"
)

// one cheap embedding call proves the backend is reachable before any write
const preflightProbe = "ping"

// Indexer drives chunk-to-vector conversion in fixed-size batches and
// upserts the results. Batches are issued sequentially: no two batches'
// upserts interleave, which keeps progress accounting and the caller's
// rollback logic simple.
type Indexer struct {
	batchSize int
}

func New(batchSize int) (*Indexer, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	return &Indexer{batchSize: batchSize}, nil
}

// Index embeds and upserts all chunks into the store's collection and
// returns the number of chunks indexed. On any failure the collection may
// hold a partial batch set; the caller owns rollback (it deletes the whole
// provisional collection), so nothing half-indexed ever becomes visible.
//
// Document ids follow {storeId}-{sequenceIndex}, collision-free within a
// run because sequence indexes are strictly increasing.
func (ix *Indexer) Index(ctx context.Context, storeID string, chunks []models.Chunk, embedder Embedder, index Index) (int, error) {
	if _, err := embedder.EmbedQuery(ctx, preflightProbe); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}

	processed := 0
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		batchNum := start/ix.batchSize + 1

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return processed, fmt.Errorf("failed to embed batch %d: %w", batchNum, err)
		}
		if len(vectors) != len(texts) {
			return processed, fmt.Errorf("embedder returned %d vectors for %d texts in batch %d", len(vectors), len(texts), batchNum)
		}

		docs := make([]vectordb.Document, len(batch))
		for i, c := range batch {
			docs[i] = vectordb.Document{
				ID:        fmt.Sprintf("%s-%d", storeID, c.SequenceIndex),
				Content:   c.Text,
				Embedding: vectors[i],
				Metadata: map[string]string{
					MetaSource: c.SourceName,
					MetaPage:   strconv.Itoa(c.PageNumber),
					MetaSeq:    strconv.Itoa(c.SequenceIndex),
				},
			}
		}

		if err := index.Upsert(ctx, storeID, docs); err != nil {
			return processed, &models.IndexWriteError{Batch: batchNum, Err: err}
		}

		// observability only; correctness never depends on this counter
		processed += len(batch)
		log.Debug().
			Str("store", storeID).
			Int("batch", batchNum).
			Int("processed", processed).
			Int("total", len(chunks)).
			Msg("Indexed batch")
	}

	return processed, nil
}
