// Package retrieval merges vector-index hits and live web results into the
// ordered, deduplicated context handed to answer generation.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/config"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/store"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/websearch"
)

// ContextEntry is one retrieved passage with its provenance.
type ContextEntry struct {
	Content     string
	Source      string // source document id, or "web" for search hits
	Title       string // web results only
	URL         string // web results only
	ChunkIndex  int
	TotalChunks int
}

// ContextSet is an ordered, content-deduplicated list of context entries.
type ContextSet []ContextEntry

// Render joins the set into the context blob for the generation prompt, each
// entry prefixed with its provenance.
func (s ContextSet) Render() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range s {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.URL != "" {
			fmt.Fprintf(&b, "[웹: %s](%s)\n", e.Title, e.URL)
		} else {
			fmt.Fprintf(&b, "[매뉴얼: %s (%d/%d)]\n", e.Source, e.ChunkIndex, e.TotalChunks)
		}
		b.WriteString(e.Content)
	}
	return b.String()
}

// Embedder embeds a single query keyword.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher is the diversity-aware search surface over the manual-chunk
// collection.
type ChunkSearcher interface {
	SearchDiverse(vector []float32, fetchK, k int) ([]store.ScoredRecord, error)
}

// WebSearcher runs a live web search. A nil WebSearcher disables the web path.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// TokenCounter measures entry sizes for the optional context token budget.
type TokenCounter interface {
	Count(text string) int
}

// Aggregator gathers context for a query from the manual index and the web.
type Aggregator struct {
	embedder Embedder
	chunks   ChunkSearcher
	web      WebSearcher
	counter  TokenCounter
	cfg      config.RetrievalConfig
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. web and counter may be nil, disabling
// the web path and the token budget respectively.
func NewAggregator(embedder Embedder, chunks ChunkSearcher, web WebSearcher, counter TokenCounter, cfg config.RetrievalConfig) *Aggregator {
	return &Aggregator{
		embedder: embedder,
		chunks:   chunks,
		web:      web,
		counter:  counter,
		cfg:      cfg,
		logger:   slog.Default(),
	}
}

// Gather runs the web and vector paths concurrently and merges their results.
// Web entries come first, then vector entries in keyword order; duplicates by
// exact content are dropped (first occurrence wins) and the merged set is
// capped by entry count and, when a counter is configured, by token budget.
// Both paths absorb their own failures: Gather never fails, it only shrinks.
func (a *Aggregator) Gather(ctx context.Context, query string, keywords []string) ContextSet {
	var webEntries, vectorEntries []ContextEntry

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		webEntries = a.searchWeb(ctx, query)
		return nil
	})
	g.Go(func() error {
		vectorEntries = a.searchVectors(ctx, keywords)
		return nil
	})
	_ = g.Wait()

	merged := append(webEntries, vectorEntries...)
	return a.dedupAndCap(merged)
}

// searchWeb runs the single web search on the raw query. Failures yield zero
// entries; the pipeline proceeds on vector-only context.
func (a *Aggregator) searchWeb(ctx context.Context, query string) []ContextEntry {
	if a.web == nil {
		return nil
	}

	results, err := a.web.Search(ctx, query)
	if err != nil {
		a.logger.Warn("web search failed, continuing without web context", "error", err)
		return nil
	}

	entries := make([]ContextEntry, 0, len(results))
	for _, r := range results {
		if r.Content == "" {
			continue
		}
		entries = append(entries, ContextEntry{
			Content: r.Content,
			Source:  "web",
			Title:   r.Title,
			URL:     r.URL,
		})
	}
	return entries
}

// searchVectors queries the manual index once per keyword, in keyword order.
// A failing keyword is logged and skipped.
func (a *Aggregator) searchVectors(ctx context.Context, keywords []string) []ContextEntry {
	var entries []ContextEntry
	for _, kw := range keywords {
		vec, err := a.embedder.Embed(ctx, kw)
		if err != nil {
			a.logger.Warn("keyword embedding failed, skipping", "keyword", kw, "error", err)
			continue
		}

		matches, err := a.chunks.SearchDiverse(vec, a.cfg.FetchK, a.cfg.TopK)
		if err != nil {
			a.logger.Warn("vector search failed, skipping keyword", "keyword", kw, "error", err)
			continue
		}

		for _, m := range matches {
			entries = append(entries, ContextEntry{
				Content:     m.Text,
				Source:      m.SourceID,
				ChunkIndex:  m.ChunkIndex,
				TotalChunks: m.TotalChunks,
			})
		}
	}
	return entries
}

func (a *Aggregator) dedupAndCap(entries []ContextEntry) ContextSet {
	seen := make(map[string]struct{}, len(entries))
	budget := a.cfg.MaxContextTokens

	var out ContextSet
	for _, e := range entries {
		if a.cfg.MaxEntries > 0 && len(out) >= a.cfg.MaxEntries {
			break
		}
		if _, dup := seen[e.Content]; dup {
			continue
		}
		if budget > 0 && a.counter != nil {
			cost := a.counter.Count(e.Content)
			if cost > budget {
				break
			}
			budget -= cost
		}
		seen[e.Content] = struct{}{}
		out = append(out, e)
	}
	return out
}
