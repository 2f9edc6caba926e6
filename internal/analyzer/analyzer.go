package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/llm"
)

const analysisTimeout = 20 * time.Second

const systemPrompt = `당신은 사용자의 질문을 분석하는 전문가입니다.
주어진 질문에서 다음을 추출하세요:

1. 주요 키워드 (3-5개)
2. 질문의 핵심 주제
3. 구체적인 조건이나 요구사항
4. 답변에서 다뤄야 할 세부 사항들

JSON 형식으로 출력하세요:
{
    "keywords": ["키워드1", "키워드2", "키워드3"],
    "main_topic": "주제",
    "conditions": ["조건1", "조건2"],
    "details": ["세부사항1", "세부사항2"]
}`

// Chatter is the chat surface the analyzer needs from the LLM client.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Analysis is the structured decomposition of a user question.
type Analysis struct {
	Keywords  []string `json:"keywords"`
	MainTopic string   `json:"main_topic"`
	Conditions []string `json:"conditions"`
	Details   []string `json:"details"`
}

// Result is the tagged outcome of query analysis. When Fallback is true the
// model output could not be parsed and Keywords holds exactly the original
// query, guaranteeing the aggregator always has at least one search term.
// Raw carries the analysis text for the generation prompt in either case.
type Result struct {
	Analysis Analysis
	Fallback bool
	Raw      string
}

// Analyzer decomposes a free-text question into keywords, topic, conditions
// and required answer details using a language model.
type Analyzer struct {
	client Chatter
	logger *slog.Logger
}

// New creates an Analyzer over the given chat client.
func New(client Chatter) *Analyzer {
	return &Analyzer{client: client, logger: slog.Default()}
}

// Analyze runs query decomposition. A malformed model response is recovered
// locally via the fallback keyword set; only a failing chat call is returned
// as an error (generation failures are the caller's concern).
func (a *Analyzer) Analyze(ctx context.Context, query string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "질문: " + query},
	}

	raw, err := a.client.Chat(ctx, messages, llm.Options{JSONMode: true, Temperature: 0.3})
	if err != nil {
		return Result{}, fmt.Errorf("query analysis: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &analysis); err != nil || len(analysis.Keywords) == 0 {
		a.logger.Warn("analysis output unparseable, falling back to raw query", "error", err, "response", raw)
		return fallbackResult(query, raw), nil
	}

	return Result{Analysis: analysis, Raw: raw}, nil
}

func fallbackResult(query, raw string) Result {
	if raw == "" {
		raw = query
	}
	return Result{
		Analysis: Analysis{Keywords: []string{query}},
		Fallback: true,
		Raw:      raw,
	}
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the first {...} object in the response. Chat models frequently wrap JSON
// in fences or prepend filler even when JSON output is requested.
func extractJSON(resp string) string {
	s := strings.TrimSpace(resp)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}
