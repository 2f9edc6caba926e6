// Package pipeline orchestrates a single question-answering turn: identity
// resolution, query analysis, context aggregation, and answer synthesis.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/analyzer"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/composer"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/identity"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/llm"
	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/retrieval"
)

// ConversationTurn is one prior exchange in the conversation, owned by the
// caller. Roles are "user" and "assistant".
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the outcome of one answered turn.
type Result struct {
	Answer   string
	Identity identity.ProductIdentity
	Context  retrieval.ContextSet
	Duration time.Duration
}

// IdentityResolver maps a product photo to its parsed identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, imagePath string) identity.ProductIdentity
}

// QueryAnalyzer decomposes a question into search keywords and analysis text.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, query string) (analyzer.Result, error)
}

// ContextGatherer collects the merged context for a query.
type ContextGatherer interface {
	Gather(ctx context.Context, query string, keywords []string) retrieval.ContextSet
}

// AnswerSynthesizer generates the final answer from a composed request.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, req composer.Request) (string, error)
}

// Engine wires the QA stages together. Every stage before synthesis degrades
// gracefully; only a failing generation call surfaces to the caller.
type Engine struct {
	resolver    IdentityResolver
	analyzer    QueryAnalyzer
	gatherer    ContextGatherer
	synthesizer AnswerSynthesizer
	logger      *slog.Logger
}

// NewEngine creates an Engine. resolver may be nil when no image catalog is
// available; image paths are then ignored.
func NewEngine(resolver IdentityResolver, qa QueryAnalyzer, gatherer ContextGatherer, synthesizer AnswerSynthesizer) *Engine {
	return &Engine{
		resolver:    resolver,
		analyzer:    qa,
		gatherer:    gatherer,
		synthesizer: synthesizer,
		logger:      slog.Default(),
	}
}

// Answer runs one full QA turn.
//
// Identity is resolved only when an image path is supplied for this turn; a
// resolved model code is prepended to the retrieval query so manual chunks
// for that product rank higher. Analysis failure falls back to searching on
// the raw query. Empty context still generates an answer.
func (e *Engine) Answer(ctx context.Context, query, imagePath string, history []ConversationTurn) (Result, error) {
	start := time.Now()

	ident := identity.ProductIdentity{
		ProductName: identity.UnknownProductName,
		ModelCode:   identity.UnknownModelCode,
	}
	retrievalQuery := query
	modelCode := ""
	if imagePath != "" && e.resolver != nil {
		ident = e.resolver.ResolveIdentity(ctx, imagePath)
		if !ident.Unknown() {
			modelCode = ident.ModelCode
			retrievalQuery = ident.ModelCode + " " + query
		}
	}

	analysis, err := e.analyzer.Analyze(ctx, retrievalQuery)
	if err != nil {
		e.logger.Warn("query analysis failed, searching on raw query", "error", err)
		analysis = analyzer.Result{
			Analysis: analyzer.Analysis{Keywords: []string{retrievalQuery}},
			Fallback: true,
			Raw:      retrievalQuery,
		}
	}

	contextSet := e.gatherer.Gather(ctx, retrievalQuery, analysis.Analysis.Keywords)
	if len(contextSet) == 0 {
		e.logger.Warn("no context retrieved, generating from model knowledge", "query", query)
	}

	answer, err := e.synthesizer.Synthesize(ctx, composer.Request{
		Query:     query,
		Analysis:  analysis.Raw,
		Context:   contextSet.Render(),
		ModelCode: modelCode,
		History:   toMessages(history),
	})
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("answer generated",
		"model_code", modelCode,
		"keywords", len(analysis.Analysis.Keywords),
		"context_entries", len(contextSet),
		"duration", time.Since(start),
	)

	return Result{
		Answer:   answer,
		Identity: ident,
		Context:  contextSet,
		Duration: time.Since(start),
	}, nil
}

func toMessages(history []ConversationTurn) []llm.Message {
	if len(history) == 0 {
		return nil
	}
	msgs := make([]llm.Message, len(history))
	for i, t := range history {
		msgs[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return msgs
}
