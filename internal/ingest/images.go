package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/store"
)

// ImageEmbedder embeds a base64-encoded product photo.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, imageB64 string) ([]float32, error)
}

// ImageIndexer populates the catalog-image collection. Each image file's
// embedding is stored together with its filename-derived identity label
// (e.g. "아가사랑_3kg_WA30DG2120EE"), which the identity resolver later
// recovers by nearest-neighbor search.
type ImageIndexer struct {
	embedder   ImageEmbedder
	collection ChunkWriter
	logger     *slog.Logger
}

// NewImageIndexer wires an ImageIndexer.
func NewImageIndexer(embedder ImageEmbedder, collection ChunkWriter) *ImageIndexer {
	return &ImageIndexer{
		embedder:   embedder,
		collection: collection,
		logger:     slog.Default(),
	}
}

// Discover returns all catalog images under dir, recursively.
func (x *ImageIndexer) Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return paths, nil
}

// Run indexes every catalog image under dir. Failing images are logged and
// skipped.
func (x *ImageIndexer) Run(ctx context.Context, dir string) (int, error) {
	paths, err := x.Discover(dir)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			return indexed, ctx.Err()
		}
		if err := x.IndexImage(ctx, path); err != nil {
			x.logger.Warn("catalog image indexing failed, continuing", "path", path, "error", err)
			continue
		}
		indexed++
	}
	return indexed, nil
}

// IndexImage embeds a single catalog image and stores it with its label.
func (x *ImageIndexer) IndexImage(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	vec, err := x.embedder.EmbedImage(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return fmt.Errorf("embedding %s: %w", path, err)
	}

	label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rec := store.Record{
		ID:        uuid.New().String(),
		SourceID:  label,
		Text:      label,
		Embedding: vec,
		CreatedAt: time.Now().UTC(),
	}
	if err := x.collection.Insert([]store.Record{rec}); err != nil {
		return fmt.Errorf("inserting catalog record for %s: %w", path, err)
	}
	return nil
}
