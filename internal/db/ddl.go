package db

import (
	"fmt"

	"github.com/lib/pq"
)

const DefaultTable = "embeddings"

// vectorStoreDDL returns the statements that create the pgvector extension
// and the embeddings table, in execution order.
func vectorStoreDDL(table string, dimensions int) []string {
	quoted := pq.QuoteIdentifier(table)
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	content text NOT NULL,
	metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(%d) NOT NULL
)`, quoted, dimensions),
	}
}
