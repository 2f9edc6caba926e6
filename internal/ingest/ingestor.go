package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/store"
)

// ChunkWriter is the vector-collection surface the ingestor writes to.
type ChunkWriter interface {
	Insert(records []store.Record) error
}

// TextEmbedder batches chunk texts into embedding vectors.
type TextEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Counter counts tokens for batch budgeting.
type Counter interface {
	Count(text string) int
}

// Stats summarizes one ingestion run.
type Stats struct {
	Documents int
	Chunks    int
	Skipped   int
}

// Ingestor walks a directory of source documents, extracts and chunks their
// text, and upserts embedded chunks into the manual-text collection.
// A failure on one document is logged and must not abort the rest.
type Ingestor struct {
	extractor      *Extractor
	recognizer     Recognizer
	splitter       *Splitter
	counter        Counter
	embedder       TextEmbedder
	collection     ChunkWriter
	maxBatchTokens int
	logger         *slog.Logger
}

// NewIngestor wires an Ingestor. recognizer may be nil to disable ingestion
// of standalone image documents.
func NewIngestor(extractor *Extractor, recognizer Recognizer, splitter *Splitter, counter Counter,
	embedder TextEmbedder, collection ChunkWriter, maxBatchTokens int) *Ingestor {
	if maxBatchTokens <= 0 {
		maxBatchTokens = 300000
	}
	return &Ingestor{
		extractor:      extractor,
		recognizer:     recognizer,
		splitter:       splitter,
		counter:        counter,
		embedder:       embedder,
		collection:     collection,
		maxBatchTokens: maxBatchTokens,
		logger:         slog.Default(),
	}
}

// Discover returns all ingestible files under dir, recursively.
func (ing *Ingestor) Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".png", ".jpg", ".jpeg":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return paths, nil
}

// Run ingests every discovered document under dir sequentially.
func (ing *Ingestor) Run(ctx context.Context, dir string) (Stats, error) {
	paths, err := ing.Discover(dir)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, path := range paths {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		chunks, err := ing.IngestFile(ctx, path)
		if err != nil {
			ing.logger.Warn("document ingestion failed, continuing", "path", path, "error", err)
			stats.Skipped++
			continue
		}
		stats.Documents++
		stats.Chunks += chunks
	}
	return stats, nil
}

// IngestFile runs the full pipeline for one document and returns the number
// of chunks written.
func (ing *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	text, err := ing.documentText(path)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("no text extracted from %s", path)
	}

	sourceID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	chunks, err := ing.splitter.Split(sourceID, text)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, batch := range BatchByTokens(chunks, ing.maxBatchTokens, ing.counter.Count) {
		if err := ing.writeBatch(ctx, batch); err != nil {
			return written, err
		}
		written += len(batch.Chunks)
	}

	ing.logger.Debug("document ingested", "source", sourceID, "chunks", written)
	return written, nil
}

func (ing *Ingestor) documentText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ing.extractor.ExtractText(path)
	}

	// Standalone image documents are OCR'd whole.
	if ing.recognizer == nil {
		return "", fmt.Errorf("no recognizer configured for image document %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return ing.recognizer.Recognize(data)
}

func (ing *Ingestor) writeBatch(ctx context.Context, batch Batch) error {
	texts := make([]string, len(batch.Chunks))
	for i, c := range batch.Chunks {
		texts[i] = c.Text
	}

	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}

	records := make([]store.Record, len(batch.Chunks))
	now := time.Now().UTC()
	for i, c := range batch.Chunks {
		records[i] = store.Record{
			ID:          uuid.New().String(),
			SourceID:    c.SourceID,
			ChunkIndex:  c.ChunkIndex,
			TotalChunks: c.TotalChunks,
			Page:        c.Page,
			Text:        c.Text,
			Embedding:   vectors[i],
			CreatedAt:   now,
		}
	}

	if err := ing.collection.Insert(records); err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	return nil
}
