package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// VectorStore keeps embedded chunks in a pgvector table and delegates
// nearest-neighbour search to the <=> cosine distance operator.
type VectorStore struct {
	db         *HDb
	table      string
	dimensions int
}

func NewVectorStore(db *HDb, table string, dimensions int) *VectorStore {
	if table == "" {
		table = DefaultTable
	}
	return &VectorStore{db: db, table: table, dimensions: dimensions}
}

func (vs *VectorStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range vectorStoreDDL(vs.table, vs.dimensions) {
		if _, err := vs.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// AddDocuments stores docs with their vectors in one transaction and returns
// the generated ids.
func (vs *VectorStore) AddDocuments(ctx context.Context, docs []Document, vectors [][]float32) ([]string, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil, nil
	}

	tx, err := vs.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3::jsonb, $4::vector)",
		pq.QuoteIdentifier(vs.table)))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, len(docs))
	for i, doc := range docs {
		if vs.dimensions > 0 && len(vectors[i]) != vs.dimensions {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(vectors[i]), vs.dimensions)
		}
		metadata, err := marshalMetadata(doc.Metadata)
		if err != nil {
			return nil, err
		}
		ids[i] = uuid.NewString()
		if _, err := stmt.ExecContext(ctx, ids[i], doc.PageContent, metadata, pgvector.NewVector(vectors[i])); err != nil {
			return nil, fmt.Errorf("failed to insert document %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit documents: %w", err)
	}
	return ids, nil
}

// SimilaritySearch returns the k stored chunks closest to vector, nearest
// first.
func (vs *VectorStore) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}

	var rows []embeddingRow
	query := fmt.Sprintf(
		"SELECT id, content, metadata, embedding <=> $1::vector AS distance FROM %s ORDER BY distance LIMIT $2",
		pq.QuoteIdentifier(vs.table))
	if err := vs.db.SelectContext(ctx, &rows, query, pgvector.NewVector(vector), k); err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	results := make([]ScoredDocument, 0, len(rows))
	for _, row := range rows {
		metadata := map[string]any{}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of %s: %w", row.ID, err)
			}
		}
		results = append(results, ScoredDocument{
			ID:       row.ID,
			Document: Document{PageContent: row.Content, Metadata: metadata},
			Score:    1 - row.Distance,
		})
	}
	return results, nil
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}
