package db

// Document is one stored text chunk. Metadata carries at least the source
// URL and the chunk position within it.
type Document struct {
	PageContent string         `json:"pageContent"`
	Metadata    map[string]any `json:"metadata"`
}

// ScoredDocument is a search hit. Score is cosine similarity, 1 - distance.
type ScoredDocument struct {
	ID string
	Document
	Score float64
}

type embeddingRow struct {
	ID       string  `db:"id"`
	Content  string  `db:"content"`
	Metadata []byte  `db:"metadata"`
	Distance float64 `db:"distance"`
}
