package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"PCHAT/relay/internal/config"
	"PCHAT/relay/internal/db"
	"PCHAT/relay/internal/ingest"
	"PCHAT/relay/internal/llm"
)

func main() {
	configPath := pflag.String("config", "config/config.yaml", "path to the YAML config file")
	envPath := pflag.String("env", "config/.env", "path to the dotenv file")
	query := pflag.String("query", "", "search stored chunks instead of ingesting")
	k := pflag.Int("k", 4, "number of search results")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath, *envPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetDefault(config.NewLogger(os.Stderr, cfg.Log.Level))

	if cfg.OpenAI.APIKey == "" {
		log.Fatal("OPENAI_API_KEY is required for embeddings")
	}
	if cfg.Database.URL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hdb, err := db.NewHDb(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := hdb.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	store := db.NewVectorStore(hdb, cfg.Ingest.Table, cfg.Ingest.Dimensions)
	embedder := llm.NewOpenAIEmbedder(llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), cfg.Ingest.EmbeddingModel)

	if *query != "" {
		if err := search(ctx, embedder, store, *query, *k); err != nil {
			slog.Error("Search failed", "error", err)
			os.Exit(1)
		}
		return
	}

	urls := pflag.Args()
	if len(urls) == 0 {
		urls = cfg.Ingest.URLs
	}
	if len(urls) == 0 {
		log.Fatal("no URLs to ingest: pass them as arguments or set ingest.urls")
	}

	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to prepare vector store", "error", err)
		os.Exit(1)
	}

	splitter, err := ingest.NewRecursiveCharacterSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid splitter settings: %v", err)
	}
	loader, err := ingest.NewWebLoader(&http.Client{Timeout: 30 * time.Second}, cfg.Ingest.Selector)
	if err != nil {
		log.Fatalf("Invalid loader settings: %v", err)
	}
	pipeline := ingest.NewPipeline(loader, splitter, embedder, store, cfg.Ingest.Concurrency, cfg.Ingest.BatchSize)

	result, err := pipeline.Run(ctx, urls)
	if err != nil {
		slog.Error("Ingestion failed", "pages", result.Pages, "stored_chunks", result.Chunks, "error", err)
		os.Exit(1)
	}
	slog.Info("Ingestion finished", "pages", result.Pages, "chunks", result.Chunks)
}

func search(ctx context.Context, embedder llm.Embedder, store *db.VectorStore, query string, k int) error {
	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return err
	}
	if len(vectors) != 1 {
		return fmt.Errorf("expected one query vector, got %d", len(vectors))
	}

	results, err := store.SimilaritySearch(ctx, vectors[0], k)
	if err != nil {
		return err
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %v\n%s\n\n", i+1, r.Score, r.Metadata["source"], r.PageContent)
	}
	return nil
}
