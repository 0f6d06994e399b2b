package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"ragstore/internal/config"
	"ragstore/internal/models"
)

// Store lifecycle. A record only ever becomes visible with StatusReady:
// it is written after every batch of the ingestion run has succeeded.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
)

// StoreRecord is the durable metadata of one store.
type StoreRecord struct {
	bun.BaseModel `bun:"table:stores,alias:s"`

	ID             string    `bun:"id,pk"`
	Name           string    `bun:"name,notnull"`
	EmbeddingModel string    `bun:"embedding_model,notnull"`
	FileCount      int       `bun:"file_count,notnull"`
	ChunkCount     int       `bun:"chunk_count,notnull"`
	Status         string    `bun:"status,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Registry persists one StoreRecord per store in Postgres.
type Registry struct {
	db *bun.DB
}

func ConnectDB(cfg *config.RegistryConfig) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	)), nil
}

func New(sqldb *sql.DB, debug bool) *Registry {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Registry{db: db}
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Init creates the stores table if it does not exist.
func (r *Registry) Init(ctx context.Context) error {
	_, err := r.db.NewCreateTable().Model((*StoreRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (r *Registry) Get(ctx context.Context, id string) (*StoreRecord, error) {
	rec := new(StoreRecord)
	err := r.db.NewSelect().Model(rec).Where("s.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to read store record %s: %v", id, err)
	}
	return rec, nil
}

func (r *Registry) Put(ctx context.Context, rec *StoreRecord) error {
	_, err := r.db.NewInsert().Model(rec).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write store record %s: %v", rec.ID, err)
	}
	return nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*StoreRecord)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete store record %s: %v", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrStoreNotFound
	}
	return nil
}

// List returns all store records, newest first.
func (r *Registry) List(ctx context.Context) ([]StoreRecord, error) {
	var recs []StoreRecord
	err := r.db.NewSelect().Model(&recs).Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list store records: %v", err)
	}
	return recs, nil
}
