package ingest

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// DocumentChunk is the unit of retrieval: a bounded span of source-document
// text plus its identity metadata. ChunkIndex is 1-based; TotalChunks is
// fixed at split time and never recomputed. Page is 0 when the chunk spans
// pages, which is the norm for whole-document splitting.
type DocumentChunk struct {
	Text        string
	SourceID    string
	ChunkIndex  int
	TotalChunks int
	Page        int
}

// Splitter cuts document text into overlapping chunks using a recursive
// separator strategy (paragraph, line, sentence punctuation, space,
// character) so context is not severed mid-sentence more than necessary.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

// NewSplitter creates a Splitter with the given chunk size and overlap in
// characters.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 100
	}
	inner := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}),
	)
	return &Splitter{inner: inner}
}

// Split chunks the text and attaches identity metadata for the given source.
func (s *Splitter) Split(sourceID, text string) ([]DocumentChunk, error) {
	parts, err := s.inner.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", sourceID, err)
	}

	chunks := make([]DocumentChunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, DocumentChunk{
			Text:        part,
			SourceID:    sourceID,
			ChunkIndex:  i + 1,
			TotalChunks: len(parts),
		})
	}
	return chunks, nil
}
