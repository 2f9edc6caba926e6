package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/embedding"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/store"
)

const resolveTimeout = 30 * time.Second

// ImageEmbedder embeds a base64-encoded product photo.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, imageB64 string) ([]float32, error)
}

// CatalogSearcher is the nearest-neighbor surface over the catalog-image
// collection.
type CatalogSearcher interface {
	Search(vector []float32, topK int) ([]store.ScoredRecord, error)
}

// Resolver maps a product photo to its catalog identity label via
// nearest-neighbor image search.
type Resolver struct {
	embedder ImageEmbedder
	catalog  CatalogSearcher
	logger   *slog.Logger
}

// NewResolver creates a Resolver over the given embedder and catalog
// collection.
func NewResolver(embedder ImageEmbedder, catalog CatalogSearcher) *Resolver {
	return &Resolver{
		embedder: embedder,
		catalog:  catalog,
		logger:   slog.Default(),
	}
}

// Resolve returns the raw catalog label best matching the photo at
// imagePath, or NoMatch when the catalog is empty or any step fails.
// Failures are logged, never propagated: the query simply proceeds without
// a model-code hint.
func (r *Resolver) Resolve(ctx context.Context, imagePath string) string {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	imageB64, err := embedding.EncodeImageFile(imagePath)
	if err != nil {
		r.logger.Warn("identity resolution: reading photo failed", "path", imagePath, "error", err)
		return NoMatch
	}

	vec, err := r.embedder.EmbedImage(ctx, imageB64)
	if err != nil {
		r.logger.Warn("identity resolution: embedding photo failed", "path", imagePath, "error", err)
		return NoMatch
	}

	matches, err := r.catalog.Search(vec, 1)
	if err != nil {
		r.logger.Warn("identity resolution: catalog search failed", "error", err)
		return NoMatch
	}
	if len(matches) == 0 {
		return NoMatch
	}
	return matches[0].Text
}

// ResolveIdentity is Resolve followed by ParseProductInfo.
func (r *Resolver) ResolveIdentity(ctx context.Context, imagePath string) ProductIdentity {
	return ParseProductInfo(r.Resolve(ctx, imagePath))
}
