package vectordb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// Document is one (id, vector, text, metadata) tuple to be indexed.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Result is one similarity-search hit.
type Result struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32
}

const compress = false

// Manager encapsulates the chromem-go database. One collection per store id;
// similarity is cosine throughout. A store's collection is written only by
// its ingestion run and read-only afterward.
type Manager struct {
	db *chromem.DB
}

// NewManager opens (or creates) the vector database at dbPath. With
// inMemory set, nothing is persisted; useful for dry runs.
func NewManager(dbPath string, inMemory bool) (*Manager, error) {
	if inMemory {
		return &Manager{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(dbPath, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %v", err)
	}
	return &Manager{db: db}, nil
}

func (m *Manager) CreateCollection(name string) error {
	if _, err := m.db.GetOrCreateCollection(name, nil, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %v", name, err)
	}
	return nil
}

// Upsert adds the documents to the named collection in one call. Callers
// provide embeddings; chromem never computes them itself here.
func (m *Manager) Upsert(ctx context.Context, collection string, docs []Document) error {
	c := m.db.GetCollection(collection, nil)
	if c == nil {
		return fmt.Errorf("collection %s does not exist", collection)
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}
	if err := c.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query runs a similarity search against the named collection. topK is
// clamped to the collection size, so asking for more hits than exist
// returns everything available rather than an error.
func (m *Manager) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]Result, error) {
	c := m.db.GetCollection(collection, nil)
	if c == nil {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}
	count := c.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	hits, err := c.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %v", collection, err)
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:         h.ID,
			Content:    h.Content,
			Metadata:   h.Metadata,
			Similarity: h.Similarity,
		}
	}
	return results, nil
}

// Count returns the number of documents in the named collection, zero if
// the collection does not exist.
func (m *Manager) Count(collection string) int {
	c := m.db.GetCollection(collection, nil)
	if c == nil {
		return 0
	}
	return c.Count()
}

// DeleteCollection removes the collection and its persisted footprint.
// Deleting a collection that does not exist is not an error.
func (m *Manager) DeleteCollection(name string) error {
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %v", name, err)
	}
	return nil
}
