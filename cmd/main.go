package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ragstore/internal/chunker"
	"ragstore/internal/config"
	"ragstore/internal/embedding"
	"ragstore/internal/helper"
	"ragstore/internal/indexer"
	"ragstore/internal/ingest"
	"ragstore/internal/llmservice"
	"ragstore/internal/rag"
	"ragstore/internal/registry"
	"ragstore/internal/vectordb"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	files := flag.String("files", "", "Comma-separated document files to ingest into a new store")
	name := flag.String("name", "", "Display name for the new store")
	model := flag.String("model", "", "Embedding model for the new store")
	query := flag.String("query", "", "Question to answer against a store")
	store := flag.String("store", "", "Store id for -query or -delete")
	topK := flag.Int("topk", 0, "Number of chunks to retrieve (0 = configured default)")
	list := flag.Bool("list", false, "List all stores")
	del := flag.Bool("delete", false, "Delete the store given by -store")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	switch {
	case *files != "":
		createStore(ctx, cfg, *files, *name, *model)
	case *query != "":
		queryStore(ctx, cfg, *store, *query, *topK)
	case *list:
		listStores(ctx, cfg)
	case *del:
		deleteStore(ctx, cfg, *store)
	default:
		log.Fatal().Msg("Provide one of -files (with -name and -model), -query (with -store), -list or -delete (with -store)")
	}
}

func newCollaborators(ctx context.Context, cfg *config.Config) (*registry.Registry, *ingest.Service, *rag.RAG) {
	sqldb, err := registry.ConnectDB(&cfg.Registry)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to registry database")
	}
	reg := registry.New(sqldb, cfg.Registry.Debug)
	if err := reg.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing registry")
	}

	if !cfg.Store.InMemory {
		if err := helper.CreateFolder(cfg.Store.DBPath); err != nil {
			log.Fatal().Err(err).Msg("Error creating vector database folder")
		}
	}
	vdb, err := vectordb.NewManager(cfg.Store.DBPath, cfg.Store.InMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector database")
	}

	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating chunker")
	}
	ix, err := indexer.New(cfg.RAG.BatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating indexer")
	}

	embedders := embedding.NewFactory(&cfg.EmbedLLM)
	llm := llmservice.NewClient(&cfg.InferenceLLM)

	ingestSvc := ingest.NewService(reg, vdb, embedders, ch, ix)
	ragSvc := rag.NewRAG(reg, vdb, embedders, llm, cfg.RAG.TopK)
	return reg, ingestSvc, ragSvc
}

func createStore(ctx context.Context, cfg *config.Config, fileList, name, model string) {
	reg, ingestSvc, _ := newCollaborators(ctx, cfg)
	defer reg.Close()

	var inputs []ingest.FileInput
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, path := range strings.Split(fileList, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Error opening input file")
		}
		opened = append(opened, f)
		inputs = append(inputs, ingest.FileInput{Name: path, Reader: f})
	}

	rec, err := ingestSvc.CreateStore(ctx, name, model, inputs)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating store")
	}
	helper.PrettyPrint(rec)
}

func queryStore(ctx context.Context, cfg *config.Config, storeID, query string, topK int) {
	reg, _, ragSvc := newCollaborators(ctx, cfg)
	defer reg.Close()

	if storeID == "" {
		log.Fatal().Msg("Please provide the store id using the -store flag")
	}

	response, err := ragSvc.Query(ctx, storeID, query, topK)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying store")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, src := range response.Sources {
		fmt.Printf("[%d] %s (page %d)\n", src.Rank, src.SourceName, src.PageNumber)
	}
	fmt.Println()

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func listStores(ctx context.Context, cfg *config.Config) {
	reg, ingestSvc, _ := newCollaborators(ctx, cfg)
	defer reg.Close()

	stores, err := ingestSvc.ListStores(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing stores")
	}
	helper.PrettyPrint(stores)
}

func deleteStore(ctx context.Context, cfg *config.Config, storeID string) {
	reg, ingestSvc, _ := newCollaborators(ctx, cfg)
	defer reg.Close()

	if storeID == "" {
		log.Fatal().Msg("Please provide the store id using the -store flag")
	}
	if err := ingestSvc.DeleteStore(ctx, storeID); err != nil {
		log.Fatal().Err(err).Msg("Error deleting store")
	}
	log.Info().Str("store", storeID).Msg("Store deleted")
}
