package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// run is the scoped resource wrapper around one ingestion: it owns the
// working directory and the provisional vector collection. cleanup runs on
// every exit path; until commit is called it also rolls back the collection,
// so a failed run never leaves a half-indexed store behind.
type run struct {
	storeID           string
	tempDir           string
	index             Index
	collectionCreated bool
	committed         bool
}

func newRun(storeID string, index Index) (*run, error) {
	dir, err := os.MkdirTemp("", "ragstore-"+storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %v", err)
	}
	return &run{storeID: storeID, tempDir: dir, index: index}, nil
}

// stageFiles copies the inputs into the run's working directory so loaders
// can seek through them (PDF extraction needs random access). Staged names
// carry the input's position so two files sharing a base name never
// overwrite each other.
func (r *run) stageFiles(files []FileInput) ([]stagedFile, error) {
	staged := make([]stagedFile, 0, len(files))
	for i, f := range files {
		name := filepath.Base(f.Name)
		path := filepath.Join(r.tempDir, fmt.Sprintf("%d-%s", i, name))
		out, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stage %s: %v", name, err)
		}
		_, err = io.Copy(out, f.Reader)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stage %s: %v", name, err)
		}
		staged = append(staged, stagedFile{path: path, sourceName: name})
	}
	return staged, nil
}

func (r *run) commit() {
	r.committed = true
}

func (r *run) cleanup() {
	if err := os.RemoveAll(r.tempDir); err != nil {
		log.Warn().Err(err).Str("dir", r.tempDir).Msg("Failed to remove working directory")
	}
	if r.committed || !r.collectionCreated {
		return
	}
	if err := r.index.DeleteCollection(r.storeID); err != nil {
		log.Warn().Err(err).Str("store", r.storeID).Msg("Failed to roll back partial collection")
	}
}
