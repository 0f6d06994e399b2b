package ingest

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"ragstore/internal/chunker"
	"ragstore/internal/embedding"
	"ragstore/internal/helper"
	"ragstore/internal/indexer"
	"ragstore/internal/loader"
	"ragstore/internal/models"
	"ragstore/internal/registry"
	"ragstore/internal/vectordb"
)

// Registry is the slice of store metadata persistence the pipeline needs.
type Registry interface {
	Get(ctx context.Context, id string) (*registry.StoreRecord, error)
	Put(ctx context.Context, rec *registry.StoreRecord) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]registry.StoreRecord, error)
}

// Index is the slice of the vector index the pipeline needs.
type Index interface {
	CreateCollection(name string) error
	Upsert(ctx context.Context, collection string, docs []vectordb.Document) error
	DeleteCollection(name string) error
}

// EmbedderProvider yields an embedder for a model name.
type EmbedderProvider interface {
	New(model string) (embedding.Embedder, error)
}

// FileInput is one uploaded document: its original name plus content.
type FileInput struct {
	Name   string
	Reader io.Reader
}

// Service runs the ingestion pipeline: load, chunk, batch-index, then write
// the store record. A store only becomes visible after every batch has been
// durably indexed; any failure rolls the whole run back.
type Service struct {
	reg       Registry
	index     Index
	embedders EmbedderProvider
	chunker   *chunker.Chunker
	indexer   *indexer.Indexer
}

func NewService(reg Registry, index Index, embedders EmbedderProvider, ch *chunker.Chunker, ix *indexer.Indexer) *Service {
	return &Service{reg: reg, index: index, embedders: embedders, chunker: ch, indexer: ix}
}

// CreateStore ingests the given files into a brand-new store and returns
// its record. The store id is generated fresh per run, so no two runs ever
// write the same collection.
func (s *Service) CreateStore(ctx context.Context, name, embeddingModel string, files []FileInput) (*registry.StoreRecord, error) {
	if err := validateRequest(name, embeddingModel, files); err != nil {
		return nil, err
	}

	storeID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	rec := &registry.StoreRecord{
		ID:             storeID,
		Name:           name,
		EmbeddingModel: embeddingModel,
		FileCount:      len(files),
		Status:         registry.StatusProcessing,
		CreatedAt:      time.Now().UTC(),
	}

	run, err := newRun(storeID, s.index)
	if err != nil {
		return nil, err
	}
	defer run.cleanup()

	staged, err := run.stageFiles(files)
	if err != nil {
		return nil, err
	}

	pages, err := loadAll(staged)
	if err != nil {
		return nil, err
	}

	chunks := s.chunker.Split(pages)
	if len(chunks) == 0 {
		return nil, models.ErrEmptyCorpus
	}

	embedder, err := s.embedders.New(embeddingModel)
	if err != nil {
		return nil, err
	}

	if err := s.index.CreateCollection(storeID); err != nil {
		return nil, err
	}
	run.collectionCreated = true

	count, err := s.indexer.Index(ctx, storeID, chunks, embedder, s.index)
	if err != nil {
		return nil, err
	}
	rec.ChunkCount = count
	rec.Status = registry.StatusReady

	if err := s.reg.Put(ctx, rec); err != nil {
		return nil, err
	}
	run.commit()

	log.Info().
		Str("store", storeID).
		Int("files", rec.FileCount).
		Int("chunks", rec.ChunkCount).
		Msg("Store created")
	return rec, nil
}

// DeleteStore removes a store's record and vector collection together. The
// record goes first: if collection removal then fails, the leftover
// collection is invisible orphaned data, whereas a leftover record would
// keep advertising a store that no longer answers queries.
func (s *Service) DeleteStore(ctx context.Context, storeID string) error {
	if _, err := s.reg.Get(ctx, storeID); err != nil {
		return err
	}
	if err := s.reg.Delete(ctx, storeID); err != nil {
		return err
	}
	return s.index.DeleteCollection(storeID)
}

// ListStores returns all store records, newest first.
func (s *Service) ListStores(ctx context.Context) ([]registry.StoreRecord, error) {
	return s.reg.List(ctx)
}

func validateRequest(name, embeddingModel string, files []FileInput) error {
	if len(files) == 0 {
		return models.NewValidationError("no input files provided")
	}
	if name == "" {
		return models.NewValidationError("store name must not be empty")
	}
	if embeddingModel == "" {
		return models.NewValidationError("embedding model must not be empty")
	}
	for _, f := range files {
		if !loader.Supported(f.Name) {
			return models.NewValidationError("file %s is not a supported document type", f.Name)
		}
	}
	return nil
}

// stagedFile is a file copied into the run's working directory.
type stagedFile struct {
	path       string
	sourceName string
}

func loadAll(staged []stagedFile) ([]models.PageUnit, error) {
	var pages []models.PageUnit
	for _, f := range staged {
		filePages, err := loader.Load(f.path, f.sourceName)
		if err != nil {
			return nil, err
		}
		pages = append(pages, filePages...)
	}
	// zero pages across all files is an empty corpus, not a bad file
	if len(pages) == 0 {
		return nil, models.ErrEmptyCorpus
	}
	return pages, nil
}
