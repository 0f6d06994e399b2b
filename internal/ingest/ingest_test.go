package ingest

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragstore/internal/chunker"
	"ragstore/internal/indexer"
	"ragstore/internal/models"
	"ragstore/internal/registry"
)

func newTestService(t *testing.T, reg Registry, idx Index, provider EmbedderProvider) *Service {
	t.Helper()
	ch, err := chunker.New(50, 10)
	require.NoError(t, err)
	ix, err := indexer.New(10)
	require.NoError(t, err)
	return NewService(reg, idx, provider, ch, ix)
}

func textFile(name, content string) FileInput {
	return FileInput{Name: name, Reader: strings.NewReader(content)}
}

func TestCreateStoreValidation(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	svc := newTestService(t, reg, idx, &fakeProvider{embedder: &fakeEmbedder{}})
	ctx := context.Background()

	var validationErr *models.ValidationError

	t.Run("No Files", func(t *testing.T) {
		_, err := svc.CreateStore(ctx, "my store", "nomic-embed-text", nil)
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("Empty Name", func(t *testing.T) {
		_, err := svc.CreateStore(ctx, "", "nomic-embed-text", []FileInput{textFile("a.txt", "hello")})
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("Empty Model", func(t *testing.T) {
		_, err := svc.CreateStore(ctx, "my store", "", []FileInput{textFile("a.txt", "hello")})
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("Unsupported File Named", func(t *testing.T) {
		_, err := svc.CreateStore(ctx, "my store", "nomic-embed-text", []FileInput{
			textFile("a.txt", "hello"),
			textFile("virus.exe", "xx"),
		})
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, err.Error(), "virus.exe")
	})

	// nothing was written on any of the rejected requests
	assert.Empty(t, reg.records)
	assert.Empty(t, idx.collections)
	assert.Empty(t, idx.deleted)
}

func TestCreateStoreSuccess(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	provider := &fakeProvider{embedder: &fakeEmbedder{}}
	svc := newTestService(t, reg, idx, provider)

	files := []FileInput{
		textFile("a.txt", strings.Repeat("alpha ", 30)),
		textFile("b.txt", strings.Repeat("bravo ", 30)),
		textFile("c.md", "# heading\n\nsome markdown body text"),
	}
	rec, err := svc.CreateStore(context.Background(), "my store", "nomic-embed-text", files)
	require.NoError(t, err)

	assert.Equal(t, "my store", rec.Name)
	assert.Equal(t, "nomic-embed-text", rec.EmbeddingModel)
	assert.Equal(t, 3, rec.FileCount)
	assert.Equal(t, registry.StatusReady, rec.Status)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	// the record is visible and counts match what was indexed
	stored, err := reg.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ChunkCount, stored.ChunkCount)
	assert.Len(t, idx.collections[rec.ID], rec.ChunkCount)
	assert.Greater(t, rec.ChunkCount, 0)

	// the embedder was built for the requested model
	assert.Contains(t, provider.models, "nomic-embed-text")
}

func TestCreateStoreDuplicateBaseNames(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	svc := newTestService(t, reg, idx, &fakeProvider{embedder: &fakeEmbedder{}})

	// same base name from two directories: both files must be indexed
	rec, err := svc.CreateStore(context.Background(), "my store", "nomic-embed-text", []FileInput{
		textFile("dir1/doc.txt", "alpha alpha alpha"),
		textFile("dir2/doc.txt", "bravo bravo bravo"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.FileCount)
	assert.Equal(t, 2, rec.ChunkCount)

	var sawAlpha, sawBravo bool
	for _, doc := range idx.collections[rec.ID] {
		if strings.Contains(doc.Content, "alpha") {
			sawAlpha = true
		}
		if strings.Contains(doc.Content, "bravo") {
			sawBravo = true
		}
	}
	assert.True(t, sawAlpha, "first file's text must be indexed")
	assert.True(t, sawBravo, "second file's text must be indexed")
}

func TestCreateStoreEmptyCorpus(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	svc := newTestService(t, reg, idx, &fakeProvider{embedder: &fakeEmbedder{}})

	_, err := svc.CreateStore(context.Background(), "my store", "nomic-embed-text", []FileInput{
		textFile("a.txt", ""),
	})
	assert.ErrorIs(t, err, models.ErrEmptyCorpus)
	assert.Empty(t, reg.records)
	assert.Empty(t, idx.collections)
}

func TestCreateStoreRollback(t *testing.T) {
	t.Run("Upsert Fails Mid Run", func(t *testing.T) {
		reg := newFakeRegistry()
		idx := newFakeIndex()
		idx.failUpsert = 2
		svc := newTestService(t, reg, idx, &fakeProvider{embedder: &fakeEmbedder{}})

		// enough text for several batches of 10 chunks
		_, err := svc.CreateStore(context.Background(), "my store", "nomic-embed-text", []FileInput{
			textFile("a.txt", strings.Repeat("abcdefghij", 200)),
		})
		require.Error(t, err)

		var writeErr *models.IndexWriteError
		assert.True(t, errors.As(err, &writeErr))

		// no record and no collection survive a failed run
		assert.Empty(t, reg.records)
		assert.Empty(t, idx.collections)
		assert.NotEmpty(t, idx.deleted)
	})

	t.Run("Embedding Unavailable", func(t *testing.T) {
		reg := newFakeRegistry()
		idx := newFakeIndex()
		svc := newTestService(t, reg, idx, &fakeProvider{embedder: &fakeEmbedder{queryErr: errors.New("connection refused")}})

		_, err := svc.CreateStore(context.Background(), "my store", "nomic-embed-text", []FileInput{
			textFile("a.txt", "hello world"),
		})
		assert.ErrorIs(t, err, models.ErrEmbeddingUnavailable)
		assert.Empty(t, reg.records)
		assert.Empty(t, idx.collections)
	})

	t.Run("Registry Write Fails", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.putErr = errors.New("registry down")
		idx := newFakeIndex()
		svc := newTestService(t, reg, idx, &fakeProvider{embedder: &fakeEmbedder{}})

		_, err := svc.CreateStore(context.Background(), "my store", "nomic-embed-text", []FileInput{
			textFile("a.txt", "hello world"),
		})
		require.Error(t, err)
		assert.Empty(t, reg.records)
		// the provisional collection is rolled back too
		assert.Empty(t, idx.collections)
	})
}

func TestRunCleanup(t *testing.T) {
	idx := newFakeIndex()

	t.Run("Removes Working Directory", func(t *testing.T) {
		r, err := newRun("store-1", idx)
		require.NoError(t, err)
		staged, err := r.stageFiles([]FileInput{textFile("a.txt", "hello")})
		require.NoError(t, err)
		require.Len(t, staged, 1)
		assert.FileExists(t, staged[0].path)

		r.cleanup()
		_, err = os.Stat(r.tempDir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Rolls Back Uncommitted Collection", func(t *testing.T) {
		r, err := newRun("store-2", idx)
		require.NoError(t, err)
		require.NoError(t, idx.CreateCollection("store-2"))
		r.collectionCreated = true

		r.cleanup()
		assert.Contains(t, idx.deleted, "store-2")
	})

	t.Run("Keeps Committed Collection", func(t *testing.T) {
		r, err := newRun("store-3", idx)
		require.NoError(t, err)
		require.NoError(t, idx.CreateCollection("store-3"))
		r.collectionCreated = true
		r.commit()

		r.cleanup()
		assert.NotContains(t, idx.deleted, "store-3")
		assert.Contains(t, idx.collections, "store-3")
	})

	t.Run("Strips Path From Staged Name", func(t *testing.T) {
		r, err := newRun("store-4", idx)
		require.NoError(t, err)
		defer r.cleanup()

		staged, err := r.stageFiles([]FileInput{textFile("../some/dir/a.txt", "hello")})
		require.NoError(t, err)
		assert.Equal(t, "a.txt", staged[0].sourceName)
	})

	t.Run("Same Base Name Staged Separately", func(t *testing.T) {
		r, err := newRun("store-5", idx)
		require.NoError(t, err)
		defer r.cleanup()

		staged, err := r.stageFiles([]FileInput{
			textFile("dir1/doc.txt", "first"),
			textFile("dir2/doc.txt", "second"),
		})
		require.NoError(t, err)
		require.Len(t, staged, 2)
		assert.NotEqual(t, staged[0].path, staged[1].path)

		first, err := os.ReadFile(staged[0].path)
		require.NoError(t, err)
		second, err := os.ReadFile(staged[1].path)
		require.NoError(t, err)
		assert.Equal(t, "first", string(first))
		assert.Equal(t, "second", string(second))
	})
}

func TestDeleteStore(t *testing.T) {
	reg := newFakeRegistry()
	idx := newFakeIndex()
	svc := newTestService(t, reg, idx, &fakeProvider{embedder: &fakeEmbedder{}})
	ctx := context.Background()

	rec, err := svc.CreateStore(ctx, "my store", "nomic-embed-text", []FileInput{
		textFile("a.txt", "hello world"),
	})
	require.NoError(t, err)

	t.Run("Removes Record And Collection", func(t *testing.T) {
		require.NoError(t, svc.DeleteStore(ctx, rec.ID))
		assert.Empty(t, reg.records)
		assert.NotContains(t, idx.collections, rec.ID)
	})

	t.Run("Unknown Store", func(t *testing.T) {
		err := svc.DeleteStore(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrStoreNotFound)
	})

	t.Run("Record Removed Before Collection", func(t *testing.T) {
		failReg := newFakeRegistry()
		failIdx := newFakeIndex()
		failSvc := newTestService(t, failReg, failIdx, &fakeProvider{embedder: &fakeEmbedder{}})

		rec, err := failSvc.CreateStore(ctx, "my store", "nomic-embed-text", []FileInput{
			textFile("a.txt", "hello world"),
		})
		require.NoError(t, err)

		// a registry failure must not orphan a visible record: nothing is
		// deleted and the store still answers queries
		failReg.deleteErr = errors.New("registry down")
		err = failSvc.DeleteStore(ctx, rec.ID)
		require.Error(t, err)
		assert.Contains(t, failReg.records, rec.ID)
		assert.Contains(t, failIdx.collections, rec.ID)
	})
}
