package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"PCHAT/relay/internal/db"
	"PCHAT/relay/internal/llm"
)

type Loader interface {
	Load(ctx context.Context, url string) (db.Document, error)
}

type Store interface {
	AddDocuments(ctx context.Context, docs []db.Document, vectors [][]float32) ([]string, error)
}

// Result counts what one Run stored.
type Result struct {
	Pages  int
	Chunks int
}

// Pipeline loads pages, splits them into chunks, embeds the chunks in
// batches and stores each batch.
type Pipeline struct {
	loader      Loader
	splitter    *RecursiveCharacterSplitter
	embedder    llm.Embedder
	store       Store
	concurrency int
	batchSize   int
}

func NewPipeline(loader Loader, splitter *RecursiveCharacterSplitter, embedder llm.Embedder, store Store, concurrency, batchSize int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Pipeline{
		loader:      loader,
		splitter:    splitter,
		embedder:    embedder,
		store:       store,
		concurrency: concurrency,
		batchSize:   batchSize,
	}
}

// Run fails on the first page that cannot be loaded. Batches stored before a
// later embedding or storage failure stay stored.
func (p *Pipeline) Run(ctx context.Context, urls []string) (Result, error) {
	pages := make([]db.Document, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			doc, err := p.loader.Load(gctx, url)
			if err != nil {
				return err
			}
			slog.Info("loaded page", "url", url, "runes", utf8.RuneCountInString(doc.PageContent))
			pages[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	chunks, err := p.splitter.SplitDocuments(pages)
	if err != nil {
		return Result{Pages: len(pages)}, err
	}
	result := Result{Pages: len(pages)}

	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.PageContent
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return result, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}
		if _, err := p.store.AddDocuments(ctx, batch, vectors); err != nil {
			return result, fmt.Errorf("failed to store chunks %d-%d: %w", start, end, err)
		}
		result.Chunks += len(batch)
		slog.Debug("stored batch", "from", start, "to", end)
	}

	return result, nil
}
