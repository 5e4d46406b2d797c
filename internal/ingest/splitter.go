package ingest

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"PCHAT/relay/internal/db"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveCharacterSplitter splits on the first separator present in the
// text, recursing into pieces that are still too long with the remaining
// separators, then merges neighbouring pieces back up to ChunkSize. Lengths
// are counted in runes.
type RecursiveCharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string

	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveCharacterSplitter(chunkSize, chunkOverlap int) (*RecursiveCharacterSplitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		return nil, errors.New("chunk overlap must not be negative")
	}
	if chunkOverlap >= chunkSize {
		return nil, errors.New("chunk overlap must be smaller than chunk size")
	}
	return &RecursiveCharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(DefaultSeparators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}, nil
}

// SplitDocuments splits every document. Chunks copy the document metadata
// and add loc.chunk, the chunk index within its document.
func (s *RecursiveCharacterSplitter) SplitDocuments(docs []db.Document) ([]db.Document, error) {
	var out []db.Document
	for _, doc := range docs {
		chunks, err := s.SplitText(doc.PageContent)
		if err != nil {
			return nil, err
		}
		for i, chunk := range chunks {
			metadata := maps.Clone(doc.Metadata)
			if metadata == nil {
				metadata = map[string]any{}
			}
			metadata["loc"] = map[string]any{"chunk": i}
			out = append(out, db.Document{PageContent: chunk, Metadata: metadata})
		}
	}
	return out, nil
}

// SplitText returns nil for blank text.
func (s *RecursiveCharacterSplitter) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	chunks, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return chunks, nil
}
