package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PCHAT/relay/internal/db"
)

type fakeLoader struct {
	pages map[string]string
}

func (l *fakeLoader) Load(ctx context.Context, url string) (db.Document, error) {
	text, ok := l.pages[url]
	if !ok {
		return db.Document{}, errors.New("not found: " + url)
	}
	return db.Document{PageContent: text, Metadata: map[string]any{"source": url}}, nil
}

type fakeEmbedder struct {
	mu      sync.Mutex
	batches []int
	err     error
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.batches = append(e.batches, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

type fakeStore struct {
	docs    []db.Document
	vectors [][]float32
}

func (s *fakeStore) AddDocuments(ctx context.Context, docs []db.Document, vectors [][]float32) ([]string, error) {
	s.docs = append(s.docs, docs...)
	s.vectors = append(s.vectors, vectors...)
	ids := make([]string, len(docs))
	return ids, nil
}

func TestPipeline_Run(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		"https://a": "aaaa bbbb cccc dddd",
		"https://b": "eeee",
	}}
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	p := NewPipeline(loader, newSplitter(t, 10, 0), embedder, store, 2, 2)

	result, err := p.Run(context.Background(), []string{"https://a", "https://b"})
	require.NoError(t, err)

	assert.Equal(t, Result{Pages: 2, Chunks: 3}, result)
	assert.Equal(t, []int{2, 1}, embedder.batches)
	require.Len(t, store.docs, 3)
	assert.Equal(t, "aaaa bbbb", store.docs[0].PageContent)
	assert.Equal(t, "https://b", store.docs[2].Metadata["source"])
	assert.Equal(t, []float32{9, 1}, store.vectors[0])
}

func TestPipeline_Errors(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{"https://a": "aaaa"}}

	_, err := NewPipeline(loader, newSplitter(t, 10, 0), &fakeEmbedder{}, &fakeStore{}, 4, 8).
		Run(context.Background(), []string{"https://a", "https://missing"})
	assert.ErrorContains(t, err, "not found: https://missing")

	store := &fakeStore{}
	_, err = NewPipeline(loader, newSplitter(t, 10, 0), &fakeEmbedder{err: errors.New("quota")}, store, 1, 8).
		Run(context.Background(), []string{"https://a"})
	assert.ErrorContains(t, err, "quota")
	assert.Empty(t, store.docs)
}
