package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// maxBatchSize bounds the number of texts per embedding request.
const maxBatchSize = 128

// TextClient is the embedding surface the Embedder needs from the LLM client.
type TextClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder generates text embeddings for queries and document chunks.
type Embedder struct {
	client TextClient
}

// NewEmbedder creates an Embedder over the given client.
func NewEmbedder(client TextClient) *Embedder {
	return &Embedder{client: client}
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// EmbedBatch returns embedding vectors for multiple texts, splitting them
// into bounded sub-batches embedded concurrently.
// Returns nil (not error) for empty/nil input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the endpoint.

	for start := 0; start < len(texts); start += maxBatchSize {
		start := start
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vecs, err := e.client.CreateEmbedding(gCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding batch [%d:%d]: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("batch [%d:%d]: expected %d embeddings, got %d", start, end, end-start, len(vecs))
			}
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
