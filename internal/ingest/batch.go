package ingest

import (
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with the cl100k_base encoding, matching the
// embedding endpoint's tokenizer.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter initializes the tokenizer.
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("loading cl100k_base encoding: %w", err)
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the token count of text.
func (t *TokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Batch is a group of chunks whose combined token count fits one embedding
// request.
type Batch struct {
	Chunks []DocumentChunk
	Tokens int
}

// BatchByTokens groups chunks into batches bounded by maxTokens per request.
// A single chunk whose own token count exceeds maxTokens is rejected with a
// logged warning, never truncated.
func BatchByTokens(chunks []DocumentChunk, maxTokens int, count func(string) int) []Batch {
	var batches []Batch
	var current Batch

	for _, chunk := range chunks {
		tokens := count(chunk.Text)
		if tokens > maxTokens {
			slog.Warn("chunk exceeds the per-request token budget, skipping",
				"source", chunk.SourceID, "chunk", chunk.ChunkIndex, "tokens", tokens, "max", maxTokens)
			continue
		}

		if current.Tokens+tokens > maxTokens {
			batches = append(batches, current)
			current = Batch{}
		}

		current.Chunks = append(current.Chunks, chunk)
		current.Tokens += tokens
	}

	if len(current.Chunks) > 0 {
		batches = append(batches, current)
	}

	return batches
}
