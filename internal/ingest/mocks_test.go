package ingest

import (
	"context"
	"errors"

	"ragstore/internal/embedding"
	"ragstore/internal/models"
	"ragstore/internal/registry"
	"ragstore/internal/vectordb"
)

type fakeRegistry struct {
	records   map[string]*registry.StoreRecord
	putErr    error
	deleteErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{records: make(map[string]*registry.StoreRecord)}
}

func (f *fakeRegistry) Get(ctx context.Context, id string) (*registry.StoreRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, models.ErrStoreNotFound
	}
	return rec, nil
}

func (f *fakeRegistry) Put(ctx context.Context, rec *registry.StoreRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeRegistry) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.records[id]; !ok {
		return models.ErrStoreNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRegistry) List(ctx context.Context) ([]registry.StoreRecord, error) {
	var recs []registry.StoreRecord
	for _, rec := range f.records {
		recs = append(recs, *rec)
	}
	return recs, nil
}

type fakeIndex struct {
	collections map[string][]vectordb.Document
	deleted     []string
	failUpsert  int // 1-based Upsert call to fail on, 0 = never
	upsertCalls int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{collections: make(map[string][]vectordb.Document)}
}

func (f *fakeIndex) CreateCollection(name string) error {
	f.collections[name] = nil
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, collection string, docs []vectordb.Document) error {
	f.upsertCalls++
	if f.failUpsert != 0 && f.upsertCalls == f.failUpsert {
		return errors.New("index write refused")
	}
	f.collections[collection] = append(f.collections[collection], docs...)
	return nil
}

func (f *fakeIndex) DeleteCollection(name string) error {
	delete(f.collections, name)
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeEmbedder struct {
	queryErr error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

type fakeProvider struct {
	embedder *fakeEmbedder
	models   []string
}

func (f *fakeProvider) New(model string) (embedding.Embedder, error) {
	f.models = append(f.models, model)
	return f.embedder, nil
}
