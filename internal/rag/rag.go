package rag

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"ragstore/internal/embedding"
	"ragstore/internal/indexer"
	"ragstore/internal/models"
	"ragstore/internal/registry"
	"ragstore/internal/vectordb"
)

// Registry is the read side of store metadata needed for querying.
type Registry interface {
	Get(ctx context.Context, id string) (*registry.StoreRecord, error)
}

// Index is the read side of the vector index.
type Index interface {
	Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vectordb.Result, error)
}

// EmbedderProvider yields an embedder for a model name.
type EmbedderProvider interface {
	New(model string) (embedding.Embedder, error)
}

// Generator is the generation capability: one synchronous completion.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RAG answers questions against a store: similarity search over its
// collection, then grounded generation over the retrieved chunks.
type RAG struct {
	reg       Registry
	index     Index
	embedders EmbedderProvider
	llm       Generator
	topK      int
}

func NewRAG(reg Registry, index Index, embedders EmbedderProvider, llm Generator, topK int) *RAG {
	return &RAG{reg: reg, index: index, embedders: embedders, llm: llm, topK: topK}
}

// Search returns up to topK chunks most similar to the query, best first.
// The query is embedded with the model the store was built with, read from
// its record; a mismatched model would silently corrupt similarity, so the
// caller cannot choose one. topK <= 0 selects the configured default.
// An empty result is not an error.
func (r *RAG) Search(ctx context.Context, storeID, queryText string, topK int) ([]models.RetrievedChunk, error) {
	rec, err := r.reg.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = r.topK
	}

	embedder, err := r.embedders.New(rec.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	queryEmbedding, err := embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}

	hits, err := r.index.Query(ctx, storeID, queryEmbedding, topK)
	if err != nil {
		return nil, err
	}

	// deterministic order: similarity descending, sequence index ascending
	// on ties
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return seqOf(hits[i]) < seqOf(hits[j])
	})

	retrieved := make([]models.RetrievedChunk, len(hits))
	for i, h := range hits {
		retrieved[i] = models.RetrievedChunk{
			Text:       h.Content,
			SourceName: h.Metadata[indexer.MetaSource],
			PageNumber: pageOf(h),
			Rank:       i + 1,
		}
	}
	return retrieved, nil
}

// Answer builds a grounded prompt from the retrieved chunks and invokes the
// generation capability once. With nothing retrieved it returns the fixed
// no-documents answer without calling the generator.
func (r *RAG) Answer(ctx context.Context, queryText string, retrieved []models.RetrievedChunk) (string, error) {
	if len(retrieved) == 0 {
		return models.NoDocumentsAnswer, nil
	}

	var contextBlock strings.Builder
	for i, chunk := range retrieved {
		contextBlock.WriteString(fmt.Sprintf(models.ContextBlockTemplate, i+1, chunk.SourceName, chunk.Text))
	}

	userPrompt := fmt.Sprintf(models.AnswerUserPromptTemplate, contextBlock.String(), queryText)
	answer, err := r.llm.Generate(ctx, models.AnswerSystemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// Query runs the full pipeline: retrieve, then answer.
func (r *RAG) Query(ctx context.Context, storeID, queryText string, topK int) (*models.PromptResponse, error) {
	retrieved, err := r.Search(ctx, storeID, queryText, topK)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("store", storeID).Int("hits", len(retrieved)).Msg("Retrieved context")

	answer, err := r.Answer(ctx, queryText, retrieved)
	if err != nil {
		return nil, err
	}
	return &models.PromptResponse{
		Query:   queryText,
		Sources: retrieved,
		Content: answer,
	}, nil
}

// page number reported when a hit carries unusable page metadata
const defaultPageNumber = 1

func pageOf(res vectordb.Result) int {
	page, err := strconv.Atoi(res.Metadata[indexer.MetaPage])
	if err != nil {
		log.Warn().Str("id", res.ID).Str("page", res.Metadata[indexer.MetaPage]).Msg("Invalid page metadata on hit")
		return defaultPageNumber
	}
	return page
}

func seqOf(res vectordb.Result) int {
	seq, err := strconv.Atoi(res.Metadata[indexer.MetaSeq])
	if err != nil {
		return 0
	}
	return seq
}
